// Package catalog models the candidate identities a harvest works through:
// author names and ISBNs, grouped by popularity tier.
package catalog

import (
	"fmt"
	"strings"
)

// Kind tells the remote API which lookup strategy an identity needs.
type Kind string

// Supported identity kinds.
const (
	KindAuthor Kind = "author"
	KindISBN   Kind = "isbn"
)

// Tier is the catalog popularity band an item belongs to. The remote catalog
// exposes the same bands for tier-scoped queries.
type Tier string

// Popularity tiers, most to least requested.
const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// ParseTier validates an operator-supplied tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierHot:
		return TierHot, nil
	case TierWarm:
		return TierWarm, nil
	case TierCold:
		return TierCold, nil
	}
	return "", fmt.Errorf("unknown tier %q (want hot, warm, or cold)", s)
}

// Item is one candidate in the work list. Identity is the normalized form;
// two raw spellings of the same author or ISBN collapse to one Item.
type Item struct {
	Identity string `json:"identity"`
	Kind     Kind   `json:"kind"`
	Tier     Tier   `json:"tier,omitempty"`
}

// New builds an Item from a raw identity string. The kind is detected from
// the shape of the input; anything that does not compact to an ISBN is an
// author name.
func New(raw string, tier Tier) Item {
	kind := DetectKind(raw)
	return Item{
		Identity: Normalize(raw, kind),
		Kind:     kind,
		Tier:     tier,
	}
}

// DetectKind classifies a raw identity. A string whose separator-stripped
// form is 13 digits, 10 digits, or 9 digits plus a trailing X or x is an
// ISBN; everything else is an author name.
func DetectKind(raw string) Kind {
	compact := compactISBN(raw)
	switch len(compact) {
	case 13:
		if allDigits(compact) {
			return KindISBN
		}
	case 10:
		if allDigits(compact[:9]) && (isDigit(compact[9]) || compact[9] == 'X') {
			return KindISBN
		}
	}
	return KindAuthor
}

// Normalize canonicalizes a raw identity for its kind. Author names are
// lowercased with whitespace runs collapsed; ISBNs lose separators and keep
// an uppercase check digit.
func Normalize(raw string, kind Kind) string {
	if kind == KindISBN {
		return compactISBN(raw)
	}
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Identities projects the normalized identity strings out of a slice of
// items, preserving order.
func Identities(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Identity)
	}
	return out
}

// compactISBN strips the separators publishers put in ISBNs and uppercases
// the check digit.
func compactISBN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		case r == '-' || r == ' ' || r == '\t':
		default:
			// Any other character means this is not an ISBN; return the
			// partial compaction so length checks fail.
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
