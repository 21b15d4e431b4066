// Package discount implements the volume pricing rules applied at checkout.
// The rules operate on quantities aggregated per category across the whole
// cart, never per individual game.
package discount

import "github.com/cimillas/license-store/internal/domain"

// tier is one volume rule. Tiers are evaluated in declaration order and only
// the first match applies; rates are never combined.
type tier struct {
	percent int
	matches func(qty map[domain.Category]int) bool
}

var tiers = []tier{
	{
		percent: 20,
		matches: func(qty map[domain.Category]int) bool {
			return qty[domain.CategoryPuzzle] >= 25
		},
	},
	{
		// Sports and action thresholds must be met jointly; action volume on
		// its own triggers no tier.
		percent: 15,
		matches: func(qty map[domain.Category]int) bool {
			return qty[domain.CategorySports] >= 20 && qty[domain.CategoryAction] >= 15
		},
	},
}

// Compute returns the discount percentage for a checkout whose requested
// quantities, summed per category, are given in qty. It is pure: no state is
// read or written and equal inputs always yield equal outputs.
func Compute(qty map[domain.Category]int) int {
	for _, t := range tiers {
		if t.matches(qty) {
			return t.percent
		}
	}
	return 0
}
