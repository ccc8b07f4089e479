// Package balance measures how evenly participants are spread over the
// active tables of a layout. It only reports; callers decide what to do.
package balance

import "github.com/DoyleJ11/table-balancer/internal/seating"

type TableCount struct {
	TableNumber int `json:"table_number"`
	Occupied    int `json:"occupied"`
}

// Pair is the most and least occupied active tables.
type Pair struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type Report struct {
	Counts          []TableCount `json:"counts"`
	Variance        int          `json:"variance"`
	Balanced        bool         `json:"balanced"`
	BreakCandidates []int        `json:"break_candidates"`
	Rebalance       *Pair        `json:"rebalance,omitempty"`
}

// Analyze inspects the active tables among tables. Variance is the spread
// between the most and least occupied table, 0 with fewer than two tables.
// Tables under the minimum occupancy are always listed as break candidates.
func Analyze(tables []*seating.Table, rules seating.Rules) Report {
	r := Report{Counts: []TableCount{}, BreakCandidates: []int{}}
	var hi, lo *TableCount
	for _, t := range tables {
		if !t.IsActive() {
			continue
		}
		r.Counts = append(r.Counts, TableCount{TableNumber: t.Number, Occupied: t.Occupied()})
		if t.Occupied() < rules.MinPlayersPerTable {
			r.BreakCandidates = append(r.BreakCandidates, t.Number)
		}
	}
	for i := range r.Counts {
		c := &r.Counts[i]
		if hi == nil || c.Occupied > hi.Occupied {
			hi = c
		}
		if lo == nil || c.Occupied < lo.Occupied {
			lo = c
		}
	}
	if len(r.Counts) >= 2 {
		r.Variance = hi.Occupied - lo.Occupied
	}
	r.Balanced = r.Variance <= rules.BalanceThreshold
	if !r.Balanced {
		r.Rebalance = &Pair{From: hi.TableNumber, To: lo.TableNumber}
	}
	return r
}
