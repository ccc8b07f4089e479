package engine

import (
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// Check verifies the structural invariants of l. Any failure means the
// layout can no longer be trusted and is reported as an internal error.
func Check(l *seating.Layout) error {
	where := map[string]string{}
	numbers := map[int]bool{}
	for _, t := range l.Tables {
		if numbers[t.Number] {
			return seating.Corrupt("table number %d used twice", t.Number)
		}
		numbers[t.Number] = true
		if t.MaxSeats <= 0 || len(t.Seats) != t.MaxSeats {
			return seating.Corrupt("table %d has %d seats, expected %d", t.Number, len(t.Seats), t.MaxSeats)
		}
		for i, s := range t.Seats {
			if s.Number != i+1 || s.TableID != t.ID {
				return seating.Corrupt("table %d seat %d misplaced", t.Number, s.Number)
			}
			if s.Occupant == nil {
				continue
			}
			loc := (&seating.Location{TableNumber: t.Number, Seat: s.Number}).String()
			if prev, ok := where[s.Occupant.ID]; ok {
				return seating.Corrupt("participant %s seated at %s and %s", s.Occupant.ID, prev, loc)
			}
			where[s.Occupant.ID] = loc
		}
		if err := checkRoles(t); err != nil {
			return err
		}
	}
	for _, ev := range l.History {
		if ev.Kind == "" || ev.ID == "" {
			return seating.Corrupt("history entry without identity")
		}
	}
	return nil
}

func checkRoles(t *seating.Table) error {
	occ := t.OccupiedSeats()
	occupied := len(occ)
	var leads, firsts, seconds int
	for _, s := range t.Seats {
		if s.IsEmpty() && (s.Lead || s.FirstBlind || s.SecondBlind) {
			return seating.Corrupt("table %d seat %d holds a role while empty", t.Number, s.Number)
		}
		if s.Lead {
			leads++
		}
		if s.FirstBlind {
			firsts++
		}
		if s.SecondBlind {
			seconds++
		}
	}

	if !t.IsActive() || occupied < 2 {
		if leads+firsts+seconds > 0 && occupied < 2 {
			return seating.Corrupt("table %d has roles with %d occupants", t.Number, occupied)
		}
		return nil
	}
	if leads != 1 || firsts != 1 || seconds != 1 {
		return seating.Corrupt("table %d has %d/%d/%d role holders", t.Number, leads, firsts, seconds)
	}
	if !rolesValid(t, occ) {
		return seating.Corrupt("table %d role positions %d/%d/%d invalid for %d occupants",
			t.Number, t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat, occupied)
	}
	for _, n := range []int{t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat} {
		if s := t.Seat(n); s == nil || s.IsEmpty() {
			return seating.Corrupt("table %d role position %d is not an occupied seat", t.Number, n)
		}
	}
	if !t.Seat(t.LeadSeat).Lead || !t.Seat(t.FirstBlindSeat).FirstBlind || !t.Seat(t.SecondBlindSeat).SecondBlind {
		return seating.Corrupt("table %d role flags disagree with role positions", t.Number)
	}
	return nil
}
