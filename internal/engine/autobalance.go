package engine

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/table-balancer/internal/balance"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// autoBalance evens out the active tables. Each step either breaks an
// underpopulated table or moves one participant from the fullest table to
// the emptiest, and the run ends once the layout is balanced or no legal
// step is left. A layout that starts balanced is left alone.
func (tx *txn) autoBalance() (*Event, error) {
	tx.begin(seating.ActionAutoBalance)
	if balance.Analyze(tx.l.Tables, tx.env.Rules).Balanced {
		return nil, nil
	}

	created := func(number int) bool {
		return slices.ContainsFunc(tx.entry.CreatedTables, func(r seating.TableRef) bool { return r.Number == number })
	}
	limit := 2*tx.l.Seated() + len(tx.l.Tables) + 1
	for step := 0; step < limit; step++ {
		if err := tx.ctx.Err(); err != nil {
			return nil, fmt.Errorf("auto balance: %w", err)
		}
		rep := balance.Analyze(tx.l.Tables, tx.env.Rules)
		if rep.Balanced {
			break
		}

		if target, ok := tx.breakTarget(rep, created); ok {
			if _, err := tx.breakOne(target); err != nil {
				return nil, err
			}
			continue
		}
		if !tx.moveOne(*rep.Rebalance) {
			break
		}
	}

	if len(tx.entry.Relocations) == 0 && len(tx.entry.BrokenTables) == 0 {
		return nil, nil
	}
	return &Event{Type: EvtBalanceCompleted, AffectedTables: tx.touched()}, nil
}

// breakTarget picks the least occupied break candidate that was not opened
// earlier in the same run.
func (tx *txn) breakTarget(rep balance.Report, created func(int) bool) (int, bool) {
	if len(rep.Counts) < 2 {
		return 0, false
	}
	occupied := map[int]int{}
	for _, c := range rep.Counts {
		occupied[c.TableNumber] = c.Occupied
	}
	best, found := 0, false
	for _, n := range rep.BreakCandidates {
		if created(n) {
			continue
		}
		if !found || occupied[n] < occupied[best] {
			best, found = n, true
		}
	}
	return best, found
}

// moveOne relocates a single participant across pair. It prefers the highest
// numbered seat that holds no role so the blinds stay put. It reports false
// when no legal move exists.
func (tx *txn) moveOne(pair balance.Pair) bool {
	src, dst := tx.l.TableByNumber(pair.From), tx.l.TableByNumber(pair.To)
	if src == nil || dst == nil || src == dst {
		return false
	}
	open := dst.OpenSeats()
	if len(open) == 0 || dst.Occupied() >= tx.env.Rules.MaxPlayersPerTable {
		return false
	}

	var pick, fallback *seating.Seat
	occ := src.OccupiedSeats()
	for i := len(occ) - 1; i >= 0; i-- {
		s := occ[i]
		if _, ok := tx.env.Eligible[s.Occupant.ID]; !ok {
			continue
		}
		if fallback == nil {
			fallback = s
		}
		if !s.Lead && !s.FirstBlind && !s.SecondBlind {
			pick = s
			break
		}
	}
	if pick == nil {
		pick = fallback
	}
	if pick == nil {
		return false
	}

	from := &seating.Location{TableNumber: src.Number, Seat: pick.Number}
	to := &seating.Location{TableNumber: dst.Number, Seat: open[0]}
	_, err := tx.relocate(pick.Occupant.ID, from, to)
	return err == nil
}

// touched lists every table number the current entry moved someone from or
// to, in ascending order.
func (tx *txn) touched() []int {
	seen := map[int]bool{}
	out := []int{}
	add := func(loc *seating.Location) {
		if loc != nil && !seen[loc.TableNumber] {
			seen[loc.TableNumber] = true
			out = append(out, loc.TableNumber)
		}
	}
	for _, rel := range tx.entry.Relocations {
		add(rel.From)
		add(rel.To)
	}
	slices.Sort(out)
	return out
}
