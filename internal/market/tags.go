package market

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTags canonicalizes a tag set for storage and matching:
// Unicode NFC, surrounding whitespace trimmed, empties dropped, duplicates
// collapsed, sorted. Order is irrelevant for matching, so sorting costs
// nothing and keeps stored JSON deterministic.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = norm.NFC.String(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AnyTagMatches reports whether have contains at least one of want (OR
// semantics). An empty want matches everything. Both sides are expected to
// be normalized already.
func AnyTagMatches(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
