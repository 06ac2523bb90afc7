package dedup

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of a and b, where
// M is the number of characters in matching blocks and T the combined
// length. Empty input on either side scores zero.
func Similarity(a, b string) float64 {
	ca, cb := chars(a), chars(b)
	if len(ca) == 0 || len(cb) == 0 {
		return 0
	}
	return difflib.NewMatcher(ca, cb).Ratio()
}

// chars splits s into one element per rune.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
