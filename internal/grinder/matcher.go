package grinder

import (
	"strings"

	"vanity-sol/internal/keys"
)

// BuildMatcher returns a match function for the given criteria. Unless
// caseSensitive is set, both the address and the patterns are lowercased
// before comparing, so "AnZa..." matches the prefix "anza".
func BuildMatcher(source keys.Source, prefix, suffix string, caseSensitive bool) func(string) bool {
	normalize := func(s string) string {
		if caseSensitive {
			return s
		}
		return strings.ToLower(s)
	}
	prefix = normalize(source.Trim(prefix))
	suffix = normalize(suffix)

	return func(addr string) bool {
		a := normalize(source.Trim(addr))
		if prefix != "" && !strings.HasPrefix(a, prefix) {
			return false
		}
		if suffix != "" && !strings.HasSuffix(a, suffix) {
			return false
		}
		return true
	}
}
