package engine

import (
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/strategy"
)

func (tx *txn) defaultType() seating.TableType {
	return seating.TypeFor(tx.env.Rules.MaxPlayersPerTable)
}

func (tx *txn) checkTableLimit(extra int) error {
	active := len(tx.l.ActiveTables())
	if limit := tx.env.Rules.MaxTables; active+extra > limit {
		return seating.OverCapacity(seating.ErrMaxTablesReached, "%d active, limit %d", active, limit)
	}
	return nil
}

func (tx *txn) openTable(typ seating.TableType) (*seating.Table, error) {
	if err := tx.checkTableLimit(1); err != nil {
		return nil, err
	}
	t, err := tx.l.AddTable(typ)
	if err != nil {
		return nil, seating.Invalid(err, "create table")
	}
	tx.entry.CreatedTables = append(tx.entry.CreatedTables, t.Ref())
	return t, nil
}

// createTable opens a table for participants who have no seat and, unless
// the layout is manual, seats them on it.
func (tx *txn) createTable(typ seating.TableType) (*Event, error) {
	tx.begin(seating.ActionCreateTable)
	if typ == "" {
		typ = tx.defaultType()
	}
	if typ.Size() == 0 {
		return nil, seating.Invalid(seating.ErrNoSeats, "table type %q", typ)
	}
	if err := tx.checkTableLimit(1); err != nil {
		return nil, err
	}
	pending := tx.unseated()
	if need := tx.env.Rules.MinPlayersPerTable; len(pending) < need {
		return nil, seating.OverCapacity(seating.ErrNotEnoughUnseated, "%d unseated, need %d", len(pending), need)
	}
	t, err := tx.openTable(typ)
	if err != nil {
		return nil, err
	}
	if tx.l.Algorithm.Name != seating.AlgorithmManual {
		s, err := tx.placer(false)
		if err != nil {
			return nil, seating.Invalid(err, "create table")
		}
		res := s.Assign(pending, strategy.InventoryOf([]*seating.Table{t}, tx.env.Rules.MaxPlayersPerTable))
		if err := tx.place(res); err != nil {
			return nil, err
		}
	}
	return &Event{Type: EvtTableCreated, TableNumber: t.Number, Table: t}, nil
}

// breakTable retires an active table and redistributes its occupants.
func (tx *txn) breakTable(number int) (*Event, error) {
	tx.begin(seating.ActionBreakTable)
	affected, err := tx.breakOne(number)
	if err != nil {
		return nil, err
	}
	return &Event{Type: EvtTableBroken, TableNumber: number, AffectedTables: affected}, nil
}

func (tx *txn) breakOne(number int) ([]int, error) {
	t := tx.l.TableByNumber(number)
	if t == nil {
		return nil, seating.Invalid(seating.ErrTableNotFound, "table %d", number)
	}
	if !t.IsActive() {
		return nil, seating.Invalid(seating.ErrTableNotActive, "table %d is %s", number, t.Status)
	}
	if len(tx.l.ActiveTables()) < 2 {
		return nil, seating.Invalid(seating.ErrLastTable, "table %d", number)
	}

	movers := make([]seating.Participant, 0, t.Occupied())
	for _, s := range t.OccupiedSeats() {
		if _, ok := tx.env.Eligible[s.Occupant.ID]; ok {
			movers = append(movers, *s.Occupant)
			continue
		}
		if _, err := tx.relocate(s.Occupant.ID, nil, nil); err != nil {
			return nil, err
		}
	}

	t.Status = seating.StatusBreaking
	start := len(tx.entry.Relocations)
	if err := tx.redistribute(movers); err != nil {
		return nil, err
	}
	t.Status = seating.StatusBroken
	tx.entry.BrokenTables = append(tx.entry.BrokenTables, t.Ref())
	tx.l.RemoveTable(number)

	seen := map[int]bool{}
	affected := []int{}
	for _, rel := range tx.entry.Relocations[start:] {
		if rel.To != nil && !seen[rel.To.TableNumber] {
			seen[rel.To.TableNumber] = true
			affected = append(affected, rel.To.TableNumber)
		}
	}
	return affected, nil
}

// redistribute seats movers on the active tables without exceeding the
// per-table maximum, opening new tables for whoever does not fit.
func (tx *txn) redistribute(movers []seating.Participant) error {
	s, err := tx.placer(true)
	if err != nil {
		return seating.Invalid(err, "redistribute")
	}
	maxPer := tx.env.Rules.MaxPlayersPerTable
	pending := movers
	opened := false
	for len(pending) > 0 {
		res := s.Assign(pending, strategy.InventoryOf(tx.l.ActiveTables(), maxPer))
		if err := tx.place(res); err != nil {
			return err
		}
		if len(res.Unplaced) == 0 {
			return nil
		}
		if opened && len(res.Placements) == 0 {
			return seating.OverCapacity(seating.ErrInsufficientSeats, "%d participants without a seat", len(pending))
		}
		need := (len(res.Unplaced) + maxPer - 1) / maxPer
		if err := tx.checkTableLimit(need); err != nil {
			return err
		}
		for i := 0; i < need; i++ {
			if _, err := tx.openTable(tx.defaultType()); err != nil {
				return err
			}
		}
		opened = true
		pending = res.Unplaced
	}
	return nil
}
