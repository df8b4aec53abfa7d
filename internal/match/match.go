// Package match implements the wildcard matching applied to allowlist
// patterns. A * anchors a literal prefix, suffix or substring depending on
// its position; a pattern without * requires an exact full match. Matching
// is case-sensitive and runs over the full command text, so patterns can
// constrain arguments, not only the executable name.
package match

import "strings"

// Matches reports whether candidate satisfies pattern. filepath.Match is
// deliberately not used here: its * refuses to cross path separators and it
// assigns meaning to ? and [ ], none of which belong in this contract.
func Matches(pattern, candidate string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == candidate
	}

	parts := strings.Split(pattern, "*")

	if !strings.HasPrefix(candidate, parts[0]) {
		return false
	}
	candidate = candidate[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(candidate, last) {
		return false
	}
	candidate = candidate[:len(candidate)-len(last)]

	// Middle literals must appear in order between the anchors.
	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		idx := strings.Index(candidate, mid)
		if idx < 0 {
			return false
		}
		candidate = candidate[idx+len(mid):]
	}
	return true
}
