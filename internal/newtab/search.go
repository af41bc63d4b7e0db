package newtab

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultDestination is where the new tab goes when the countdown ends.
const DefaultDestination = "https://www.google.com"

const searchURL = "https://www.google.com/search?q="

var (
	schemeURL = regexp.MustCompile(`^(http|https)://[^ "]+$`)
	wwwURL    = regexp.MustCompile(`^www\.[^ "]+$`)
)

// LooksLikeURL reports whether the search box input should be opened directly.
func LooksLikeURL(query string) bool {
	return schemeURL.MatchString(query) ||
		wwwURL.MatchString(query) ||
		strings.Contains(query, ".com") ||
		strings.Contains(query, ".org") ||
		strings.Contains(query, ".net")
}

// ResolveSearch turns search box input into a destination. URL-like input
// is opened directly, with https:// added when no scheme is present;
// anything else becomes a web search. Blank input resolves to nothing.
func ResolveSearch(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	if LooksLikeURL(query) {
		if !strings.HasPrefix(query, "http") {
			query = "https://" + query
		}
		return query, true
	}
	return searchURL + strings.ReplaceAll(url.QueryEscape(query), "+", "%20"), true
}
