package capsule

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// AllSources is the catalog filter value that matches every capsule.
const AllSources = "all"

// Normalize normalizes a string for comparison:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	// Trim leading/trailing whitespace
	s = strings.TrimSpace(s)

	// Lowercase
	s = strings.ToLower(s)

	// Collapse internal whitespace to single spaces
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return s
}

// MatchSource reports whether a capsule published under source passes filter.
// An empty filter or "all" matches everything.
func MatchSource(filter, source string) bool {
	filter = Normalize(filter)
	if filter == "" || filter == AllSources {
		return true
	}
	return filter == Normalize(source)
}

// Sources returns "all" followed by the distinct non-empty sources in catalog order.
func Sources(capsules []Capsule) []string {
	out := []string{AllSources}
	seen := make(map[string]bool)
	for _, c := range capsules {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, c.Source)
	}
	return out
}
