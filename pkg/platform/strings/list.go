// Package strings parses comma-separated settings such as broker lists and
// token scopes.
package strings

import "strings"

// SplitList splits raw on commas, trims each item and drops empty and
// repeated items. The first occurrence wins, so order is preserved.
func SplitList(raw string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
