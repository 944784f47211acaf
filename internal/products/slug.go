package products

import (
	"regexp"
	"strings"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, collapses every run of other characters into a single
// hyphen and trims hyphens from both ends.
func Slugify(name string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
