package opportunity

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Rank drops entries below minProfitPct and orders the rest by profit % desc,
// then absolute profit desc, then fully filled ahead of partial. The input is
// not modified and ranking a ranked slice returns it unchanged.
func Rank(opps []Opportunity, minProfitPct decimal.Decimal) []Opportunity {
	out := make([]Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.ProfitPct.GreaterThanOrEqual(minProfitPct) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b Opportunity) int {
	if c := b.ProfitPct.Cmp(a.ProfitPct); c != 0 {
		return c
	}
	if c := b.Profit.Cmp(a.Profit); c != 0 {
		return c
	}
	switch {
	case a.FullyFilled && !b.FullyFilled:
		return -1
	case !a.FullyFilled && b.FullyFilled:
		return 1
	}
	return 0
}

// Top returns at most n entries of a ranked slice.
func Top(ranked []Opportunity, n int) []Opportunity {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
