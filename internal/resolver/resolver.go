// Package resolver derives a canonical GitHub (owner, repository) pair from
// the loosely structured URL fields of a package's registry metadata.
package resolver

import (
	"regexp"
	"strings"
)

// githubRepoPattern matches a GitHub repository URL at the start of a
// candidate string. Owner and repository consist of word characters, dots
// and hyphens. No case normalization is applied.
var githubRepoPattern = regexp.MustCompile(`^https://github\.com/([\w.-]+)/([\w.-]+)/?`)

// Resolve extracts a GitHub (owner, repository) pair from a package's
// homepage and its "label, url" project URL entries. Candidates are tried in
// order, the homepage first, so a declared homepage wins over secondary
// links. Returns ok=false when no candidate is a GitHub repository URL.
func Resolve(homePage string, projectURLs []string) (owner, name string, ok bool) {
	candidates := make([]string, 0, len(projectURLs)+1)
	if homePage != "" {
		candidates = append(candidates, homePage)
	}
	for _, entry := range projectURLs {
		candidates = append(candidates, stripLabel(entry))
	}

	for _, candidate := range candidates {
		if m := githubRepoPattern.FindStringSubmatch(candidate); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// stripLabel removes the leading "label, " part of a project URL entry.
// An entry without a comma is used as-is.
func stripLabel(entry string) string {
	if _, url, found := strings.Cut(entry, ","); found {
		return strings.TrimSpace(url)
	}
	return strings.TrimSpace(entry)
}
