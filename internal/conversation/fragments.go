package conversation

import "strings"

// FragmentDelimiter separates message bubbles in a completion response.
const FragmentDelimiter = "|SPLIT|"

// SplitFragments splits a completion response into trimmed, non-empty
// fragments in order.
func SplitFragments(text string) []string {
	parts := strings.Split(text, FragmentDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
