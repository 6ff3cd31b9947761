package pairing

import "taxlot-matcher-go/internal/models"

// DefaultExemptAfterDays is the holding period after which gains are exempt.
const DefaultExemptAfterDays = 3 * 365

// Context carries everything a pairing run depends on besides the trades.
type Context struct {
	Strategy string
	// FromYear is the first closing year that is (re)matched. Retained pairs
	// closing before it are kept as they are.
	FromYear int
	Retained []models.Pair
	// ExemptAfterDays is the longest holding period, in whole days, that is
	// still taxable. Zero means DefaultExemptAfterDays.
	ExemptAfterDays int
}

func (c Context) exemptAfter() int {
	if c.ExemptAfterDays <= 0 {
		return DefaultExemptAfterDays
	}
	return c.ExemptAfterDays
}

// Taxable reports whether a lot held for the given number of days is taxable.
func (c Context) Taxable(days int) bool {
	return days <= c.exemptAfter()
}

// kept returns the retained pairs that stay fixed in this run.
func (c Context) kept() []models.Pair {
	var out []models.Pair
	for _, p := range c.Retained {
		if p.CloseTime.Year() < c.FromYear {
			out = append(out, p)
		}
	}
	return out
}
