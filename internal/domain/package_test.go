package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Django", "django"},
		{"python_dateutil", "python-dateutil"},
		{"zope.interface", "zope-interface"},
		{"a--b__c..d", "a-b-c-d"},
		{"simple", "simple"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in))
	}
}

func TestSetDerivedFields(t *testing.T) {
	p := &Package{Name: "My_Package", Summary: "Does Things"}
	p.SetDerivedFields()

	assert.Equal(t, "my-package", p.NameNormalized)
	assert.Equal(t, "my_package", p.NameLower)
	assert.Equal(t, "does things", p.SummaryLower)
}

func TestEligibleForEnrichment(t *testing.T) {
	tests := []struct {
		name string
		pkg  Package
		want bool
	}{
		{
			name: "resolved and never fetched",
			pkg:  Package{GithubOwner: "acme", GithubName: "widget"},
			want: true,
		},
		{
			name: "no resolved repository",
			pkg:  Package{},
			want: false,
		},
		{
			name: "already fetched",
			pkg:  Package{GithubOwner: "acme", GithubName: "widget", GithubFetchedAt: 100},
			want: false,
		},
		{
			name: "url present from a snapshot",
			pkg:  Package{GithubOwner: "acme", GithubName: "widget", GithubURL: "https://github.com/acme/widget"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pkg.EligibleForEnrichment())
		})
	}
}

func TestCarryForwardStats(t *testing.T) {
	prior := &Package{
		Name:            "widget",
		GithubOwner:     "acme",
		GithubName:      "widget",
		Stars:           42,
		Forks:           7,
		GithubURL:       "https://github.com/acme/widget",
		GithubFetchedAt: 1700000000,
	}

	t.Run("matching identity carries stats", func(t *testing.T) {
		incoming := &Package{Name: "widget", GithubOwner: "acme", GithubName: "widget"}
		CarryForwardStats(incoming, prior)

		assert.Equal(t, 42, incoming.Stars)
		assert.Equal(t, 7, incoming.Forks)
		assert.Equal(t, "https://github.com/acme/widget", incoming.GithubURL)
		assert.Equal(t, int64(1700000000), incoming.GithubFetchedAt)
		assert.False(t, incoming.EligibleForEnrichment())
	})

	t.Run("changed repository starts over", func(t *testing.T) {
		incoming := &Package{Name: "widget", GithubOwner: "acme", GithubName: "widget2"}
		CarryForwardStats(incoming, prior)

		assert.Zero(t, incoming.Stars)
		assert.Empty(t, incoming.GithubURL)
		assert.Zero(t, incoming.GithubFetchedAt)
		assert.True(t, incoming.EligibleForEnrichment())
	})

	t.Run("nil prior is a no-op", func(t *testing.T) {
		incoming := &Package{Name: "widget", GithubOwner: "acme", GithubName: "widget"}
		CarryForwardStats(incoming, nil)
		assert.Zero(t, incoming.GithubFetchedAt)
	})

	t.Run("unfetched prior is a no-op", func(t *testing.T) {
		incoming := &Package{Name: "widget", GithubOwner: "acme", GithubName: "widget"}
		CarryForwardStats(incoming, &Package{Name: "widget", GithubOwner: "acme", GithubName: "widget"})
		assert.Zero(t, incoming.GithubFetchedAt)
	})
}

func TestParseOrderField(t *testing.T) {
	assert.Equal(t, OrderStars, ParseOrderField("stars"))
	assert.Equal(t, OrderForks, ParseOrderField("forks"))
	assert.Equal(t, OrderLatestUpload, ParseOrderField("latest_upload"))
	assert.Equal(t, OrderDownloads, ParseOrderField("downloads"))
	assert.Equal(t, OrderDownloads, ParseOrderField(""))
	assert.Equal(t, OrderDownloads, ParseOrderField("bogus"))
}

func TestSortPackagesStable(t *testing.T) {
	pkgs := []*Package{
		{Name: "a", Stars: 5},
		{Name: "b", Stars: 20},
		{Name: "c", Stars: 0},
		{Name: "d", Stars: 20},
	}

	SortPackages(pkgs, OrderStars)

	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	// b precedes d: equal stars keep input order.
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
}

func TestSortPackagesByUpload(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	pkgs := []*Package{
		{Name: "old", UploadTime: old},
		{Name: "recent", UploadTime: recent},
		{Name: "mid", UploadTime: mid},
	}

	SortPackages(pkgs, OrderLatestUpload)

	assert.Equal(t, "recent", pkgs[0].Name)
	assert.Equal(t, "mid", pkgs[1].Name)
	assert.Equal(t, "old", pkgs[2].Name)
}

func TestSortPackagesByDownloads(t *testing.T) {
	pkgs := []*Package{
		{Name: "small", Downloads: 10},
		{Name: "big", Downloads: 1000000},
		{Name: "none", Downloads: 0},
	}

	SortPackages(pkgs, OrderDownloads)

	assert.Equal(t, "big", pkgs[0].Name)
	assert.Equal(t, "small", pkgs[1].Name)
	assert.Equal(t, "none", pkgs[2].Name)
}
