package engine

import (
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/strategy"
)

// relocate is the single validated mutation every seating change goes
// through. A nil from means "wherever the participant is now", a nil to is a
// removal. Validation completes before anything is written.
func (tx *txn) relocate(pid string, from, to *seating.Location) (seating.Relocation, error) {
	curTable, curSeat := tx.l.Locate(pid)
	var cur *seating.Location
	if curSeat != nil {
		cur = &seating.Location{TableNumber: curTable.Number, Seat: curSeat.Number}
	}

	if from != nil && (cur == nil || *cur != *from) {
		if t := tx.l.TableByNumber(from.TableNumber); t != nil {
			if s := t.Seat(from.Seat); s != nil {
				return seating.Relocation{}, seating.Conflict(seating.ErrSourceMismatch, t.Number, s)
			}
		}
		return seating.Relocation{}, seating.Invalid(seating.ErrSourceMismatch, "%s at %s", pid, from)
	}

	if to == nil {
		if curSeat == nil {
			return seating.Relocation{}, seating.Invalid(seating.ErrParticipantNotSeated, "%s", pid)
		}
		rel := seating.Relocation{Participant: *curSeat.Occupant, From: cur}
		before := holders(curTable)
		curSeat.Occupant = nil
		settleRoles(curTable, before)
		tx.entry.Relocations = append(tx.entry.Relocations, rel)
		return rel, nil
	}

	p, ok := tx.env.Eligible[pid]
	if !ok {
		return seating.Relocation{}, seating.Invalid(seating.ErrParticipantNotEligible, "%s", pid)
	}
	dst := tx.l.TableByNumber(to.TableNumber)
	if dst == nil {
		return seating.Relocation{}, seating.Invalid(seating.ErrTableNotFound, "table %d", to.TableNumber)
	}
	if !dst.IsActive() {
		return seating.Relocation{}, seating.Invalid(seating.ErrTableNotActive, "table %d is %s", dst.Number, dst.Status)
	}
	seat := dst.Seat(to.Seat)
	if seat == nil {
		return seating.Relocation{}, seating.Invalid(seating.ErrSeatNotFound, "table %d seat %d", dst.Number, to.Seat)
	}
	if seat.Occupant != nil {
		if seat.Occupant.ID == pid {
			return seating.Relocation{}, seating.Invalid(seating.ErrAlreadyInSeat, "%s at %s", pid, to)
		}
		return seating.Relocation{}, seating.Conflict(seating.ErrSeatOccupied, dst.Number, seat)
	}
	if curTable != dst && dst.Occupied() >= tx.env.Rules.MaxPlayersPerTable {
		return seating.Relocation{}, seating.Invalid(seating.ErrTableFull, "table %d holds %d", dst.Number, dst.Occupied())
	}

	if curSeat != nil {
		before := holders(curTable)
		curSeat.Occupant = nil
		settleRoles(curTable, before)
	}
	before := holders(dst)
	snap := p
	seat.Occupant = &snap
	settleRoles(dst, before)

	rel := seating.Relocation{Participant: p, From: cur, To: &seating.Location{TableNumber: dst.Number, Seat: seat.Number}}
	tx.entry.Relocations = append(tx.entry.Relocations, rel)
	return rel, nil
}

func (tx *txn) move(pid string, from, to *seating.Location) (*Event, error) {
	if to == nil {
		tx.begin(seating.ActionRemove)
	} else {
		tx.begin(seating.ActionRelocate)
	}
	rel, err := tx.relocate(pid, from, to)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:          EvtParticipantRelocated,
		ParticipantID: pid,
		From:          rel.From,
		To:            rel.To,
	}, nil
}

// swap exchanges two seated participants with three relocations through a
// removed state, so both moves pass the same validation and role path.
func (tx *txn) swap(a, b string) (*Event, error) {
	tx.begin(seating.ActionSwap)
	if a == b {
		return nil, seating.Invalid(seating.ErrAlreadyInSeat, "cannot swap %s with itself", a)
	}
	aLoc, err := tx.location(a)
	if err != nil {
		return nil, err
	}
	bLoc, err := tx.location(b)
	if err != nil {
		return nil, err
	}
	for _, pid := range []string{a, b} {
		if _, ok := tx.env.Eligible[pid]; !ok {
			return nil, seating.Invalid(seating.ErrParticipantNotEligible, "%s", pid)
		}
	}
	if _, err := tx.relocate(a, aLoc, nil); err != nil {
		return nil, err
	}
	if _, err := tx.relocate(b, bLoc, aLoc); err != nil {
		return nil, err
	}
	if _, err := tx.relocate(a, nil, bLoc); err != nil {
		return nil, err
	}
	return layoutUpdated(), nil
}

func (tx *txn) location(pid string) (*seating.Location, error) {
	t, s := tx.l.Locate(pid)
	if s == nil {
		return nil, seating.Invalid(seating.ErrParticipantNotSeated, "%s", pid)
	}
	return &seating.Location{TableNumber: t.Number, Seat: s.Number}, nil
}

// place applies a strategy result through relocate.
func (tx *txn) place(res strategy.Result) error {
	for _, pl := range res.Placements {
		if _, err := tx.relocate(pl.ParticipantID, nil, &seating.Location{TableNumber: pl.TableNumber, Seat: pl.Seat}); err != nil {
			return err
		}
	}
	return nil
}

// initialize builds the starting tables for the roster and seats everyone
// with the layout's algorithm.
func (tx *txn) initialize(participants []seating.Participant) (*Event, error) {
	tx.begin(seating.ActionInitialize)
	tx.env.Eligible = Eligible(participants)
	if len(tx.env.Eligible) == 0 {
		return nil, seating.Invalid(seating.ErrNoParticipants, "event %s", tx.env.EventID)
	}
	rules := tx.env.Rules
	plan := strategy.OptimalConfiguration(len(tx.env.Eligible), rules)
	if plan.Tables > rules.MaxTables {
		return nil, seating.OverCapacity(seating.ErrMaxTablesReached, "%d tables needed, limit %d", plan.Tables, rules.MaxTables)
	}
	typ := seating.TypeFor(rules.MaxPlayersPerTable)
	for i := 0; i < plan.Tables; i++ {
		if _, err := tx.l.AddTable(typ); err != nil {
			return nil, err
		}
	}

	s, err := tx.placer(false)
	if err != nil {
		return nil, seating.Invalid(err, "initialize")
	}
	res := s.Assign(tx.unseated(), strategy.InventoryOf(tx.l.Tables, rules.MaxPlayersPerTable))
	if err := tx.place(res); err != nil {
		return nil, err
	}
	return layoutUpdated(), nil
}

// seatNew places late registrations into open seats. Participants without
// a seat stay unseated until a table is created for them.
func (tx *txn) seatNew(participants []seating.Participant) (*Event, error) {
	tx.begin(seating.ActionSeatNew)
	pending := make([]seating.Participant, 0, len(participants))
	for _, p := range participants {
		if _, ok := tx.env.Eligible[p.ID]; !ok {
			continue
		}
		if _, s := tx.l.Locate(p.ID); s == nil {
			pending = append(pending, p)
		}
	}
	s, err := tx.placer(false)
	if err != nil {
		return nil, seating.Invalid(err, "seat new participants")
	}
	res := s.Assign(pending, strategy.InventoryOf(tx.l.Tables, tx.env.Rules.MaxPlayersPerTable))
	if len(res.Placements) == 0 {
		return nil, nil
	}
	if err := tx.place(res); err != nil {
		return nil, err
	}
	return layoutUpdated(), nil
}

func (tx *txn) setAlgorithm(sel seating.AlgorithmSelection) (*Event, error) {
	if _, err := strategy.New(sel, tx.env.Rand); err != nil {
		return nil, seating.Invalid(err, "set algorithm")
	}
	tx.l.Algorithm = sel
	return layoutUpdated(), nil
}
