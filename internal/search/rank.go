// Package search ranks expenses against a free-text term.
package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"renovo/internal/core"
)

const (
	titleWeight       = 3
	exactTitleBonus   = 2
	wordPrefixBonus   = 1
	vendorWeight      = 2
	descriptionWeight = 1
)

// Tokenize lowercases s and splits it on anything that is not a letter or digit.
// Duplicate tokens are dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Score sums the per-token relevance of e for term.
func Score(e core.Expense, term string) int {
	tokens := Tokenize(term)
	title := strings.ToLower(e.Title)
	titleWords := Tokenize(e.Title)
	vendor := strings.ToLower(core.Deref(e.VendorName))
	description := strings.ToLower(core.Deref(e.Description))

	score := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += titleWeight
			if slices.ContainsFunc(titleWords, func(w string) bool { return strings.HasPrefix(w, tok) }) {
				score += wordPrefixBonus
			}
		}
		if strings.Contains(vendor, tok) {
			score += vendorWeight
		}
		if strings.Contains(description, tok) {
			score += descriptionWeight
		}
	}
	if score > 0 && strings.EqualFold(strings.TrimSpace(e.Title), strings.TrimSpace(term)) {
		score += exactTitleBonus
	}
	return score
}

// Rank returns the expenses matching term, best first, at most limit of them.
// Equal scores prefer the newer expense date, then the higher id.
func Rank(expenses []core.Expense, term string, limit int) []core.Expense {
	type scored struct {
		e     core.Expense
		score int
	}
	hits := make([]scored, 0, len(expenses))
	for _, e := range expenses {
		if s := Score(e, term); s > 0 {
			hits = append(hits, scored{e: e, score: s})
		}
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := b.e.ExpenseDate.Compare(a.e.ExpenseDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.e.ID, a.e.ID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]core.Expense, len(hits))
	for i, h := range hits {
		out[i] = h.e
	}
	return out
}
