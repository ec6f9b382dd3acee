package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		homePage    string
		projectURLs []string
		wantOwner   string
		wantRepo    string
		wantOK      bool
	}{
		{
			name:      "homepage is a github url",
			homePage:  "https://github.com/acme/widget",
			wantOwner: "acme",
			wantRepo:  "widget",
			wantOK:    true,
		},
		{
			name:      "trailing slash",
			homePage:  "https://github.com/acme/widget/",
			wantOwner: "acme",
			wantRepo:  "widget",
			wantOK:    true,
		},
		{
			name:      "deep path keeps owner and repo only",
			homePage:  "https://github.com/acme/widget/tree/main/docs",
			wantOwner: "acme",
			wantRepo:  "widget",
			wantOK:    true,
		},
		{
			name:        "labelled project url",
			homePage:    "https://example.com",
			projectURLs: []string{"Source, https://github.com/acme/widget"},
			wantOwner:   "acme",
			wantRepo:    "widget",
			wantOK:      true,
		},
		{
			name:        "homepage wins over project urls",
			homePage:    "https://github.com/first/one",
			projectURLs: []string{"Source, https://github.com/second/two"},
			wantOwner:   "first",
			wantRepo:    "one",
			wantOK:      true,
		},
		{
			name:        "first matching project url wins",
			homePage:    "https://example.com",
			projectURLs: []string{"Docs, https://docs.example.com", "Source, https://github.com/acme/widget"},
			wantOwner:   "acme",
			wantRepo:    "widget",
			wantOK:      true,
		},
		{
			name:        "unlabelled project url",
			projectURLs: []string{"https://github.com/acme/widget"},
			wantOwner:   "acme",
			wantRepo:    "widget",
			wantOK:      true,
		},
		{
			name:     "no github url anywhere",
			homePage: "https://example.com",
			wantOK:   false,
		},
		{
			name:     "github org page without repo",
			homePage: "https://github.com/acme",
			wantOK:   false,
		},
		{
			name:     "http scheme rejected",
			homePage: "http://github.com/acme/widget",
			wantOK:   false,
		},
		{
			name:      "dots and hyphens in owner and repo",
			homePage:  "https://github.com/acme-corp/widget.py",
			wantOwner: "acme-corp",
			wantRepo:  "widget.py",
			wantOK:    true,
		},
		{
			name:   "empty input",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := Resolve(tt.homePage, tt.projectURLs)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}
