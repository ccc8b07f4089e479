package strategy

import "github.com/DoyleJ11/table-balancer/internal/seating"

// Plan is a starting table configuration.
type Plan struct {
	PlayersPerTable int
	Tables          int
}

// OptimalConfiguration picks the largest players-per-table value within the
// rule bounds that leaves the smallest remainder, and enough tables to seat
// everyone at that size.
func OptimalConfiguration(eligible int, rules seating.Rules) Plan {
	if eligible <= 0 {
		return Plan{}
	}
	best := rules.MaxPlayersPerTable
	bestRem := eligible % best
	for p := rules.MaxPlayersPerTable - 1; p >= rules.MinPlayersPerTable && bestRem > 0; p-- {
		if r := eligible % p; r < bestRem {
			best, bestRem = p, r
		}
	}
	return Plan{PlayersPerTable: best, Tables: (eligible + best - 1) / best}
}
