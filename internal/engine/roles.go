package engine

import (
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// roleHolders are the participant ids at the lead, first-blind and
// second-blind positions, "" where unset.
type roleHolders [3]string

func holders(t *seating.Table) roleHolders {
	var h roleHolders
	for i, n := range []int{t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat} {
		if s := t.Seat(n); s != nil && s.Occupant != nil {
			h[i] = s.Occupant.ID
		}
	}
	return h
}

// settleRoles restores the role invariant after t's occupancy changed. Roles
// are kept when the same participants still hold them in a valid pattern,
// otherwise they are reassigned starting from the lead if it is still
// seated, or from the next occupied seat after it.
func settleRoles(t *seating.Table, before roleHolders) {
	occ := t.OccupiedSeats()
	if len(occ) < 2 {
		t.ClearRoles()
		return
	}
	if holders(t) == before && rolesValid(t, occ) {
		return
	}
	anchor := occ[0].Number
	if t.LeadSeat != 0 {
		if s := t.Seat(t.LeadSeat); s != nil && s.Occupant != nil && s.Occupant.ID == before[0] {
			anchor = s.Number
		} else {
			anchor = nextOccupied(occ, t.LeadSeat)
		}
	}
	assign(t, occ, anchor)
}

// rolesValid reports whether the blinds sit on the occupied seats that
// follow the lead in seat order.
func rolesValid(t *seating.Table, occ []*seating.Seat) bool {
	l, f, s := t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat
	if l == 0 || f == 0 || s == 0 || len(occ) < 2 {
		return false
	}
	if len(occ) == 2 {
		return l == f && s == nextOccupied(occ, l)
	}
	return l != s && f == nextOccupied(occ, l) && s == nextOccupied(occ, f)
}

// nextOccupied is the first occupied seat numbered after seat, wrapping to
// the lowest.
func nextOccupied(occ []*seating.Seat, seat int) int {
	for _, s := range occ {
		if s.Number > seat {
			return s.Number
		}
	}
	return occ[0].Number
}

// assign resets every role on t and hands them out from lead in seat order.
// Heads-up the lead also takes the first blind. occ must hold at least two
// seats including lead.
func assign(t *seating.Table, occ []*seating.Seat, lead int) {
	t.ClearRoles()
	i := 0
	for k, s := range occ {
		if s.Number == lead {
			i = k
			break
		}
	}
	n := len(occ)
	l := occ[i]
	f, s := occ[(i+1)%n], occ[(i+2)%n]
	if n == 2 {
		f, s = l, occ[(i+1)%n]
	}
	l.Lead = true
	f.FirstBlind = true
	s.SecondBlind = true
	t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat = l.Number, f.Number, s.Number
}

// AssignRoles puts the lead on leadSeat, or on the lowest occupied seat when
// leadSeat is 0.
func AssignRoles(t *seating.Table, leadSeat int) error {
	occ := t.OccupiedSeats()
	if len(occ) < 2 {
		return seating.Invalid(seating.ErrTooFewOccupants, "table %d has %d", t.Number, len(occ))
	}
	if leadSeat == 0 {
		leadSeat = occ[0].Number
	}
	s := t.Seat(leadSeat)
	if s == nil {
		return seating.Invalid(seating.ErrSeatNotFound, "table %d seat %d", t.Number, leadSeat)
	}
	if s.IsEmpty() {
		return seating.Invalid(seating.ErrSeatEmpty, "table %d seat %d", t.Number, leadSeat)
	}
	assign(t, occ, leadSeat)
	return nil
}

// RotateRoles moves the lead to the next occupied seat and reassigns the
// blinds behind it.
func RotateRoles(t *seating.Table) error {
	occ := t.OccupiedSeats()
	if len(occ) < 2 {
		return seating.Invalid(seating.ErrTooFewOccupants, "table %d has %d", t.Number, len(occ))
	}
	cur := 0
	for _, s := range occ {
		if s.Lead {
			cur = s.Number
			break
		}
	}
	if cur == 0 {
		assign(t, occ, occ[0].Number)
		return nil
	}
	assign(t, occ, nextOccupied(occ, cur))
	return nil
}

func (tx *txn) roleTable(number int) (*seating.Table, error) {
	t := tx.l.TableByNumber(number)
	if t == nil {
		return nil, seating.Invalid(seating.ErrTableNotFound, "table %d", number)
	}
	if !t.IsActive() {
		return nil, seating.Invalid(seating.ErrTableNotActive, "table %d is %s", number, t.Status)
	}
	return t, nil
}

func (tx *txn) assignRoles(number, leadSeat int) (*Event, error) {
	t, err := tx.roleTable(number)
	if err != nil {
		return nil, err
	}
	if err := AssignRoles(t, leadSeat); err != nil {
		return nil, err
	}
	return layoutUpdated(), nil
}

func (tx *txn) rotateRoles(number int) (*Event, error) {
	t, err := tx.roleTable(number)
	if err != nil {
		return nil, err
	}
	if err := RotateRoles(t); err != nil {
		return nil, err
	}
	return layoutUpdated(), nil
}
