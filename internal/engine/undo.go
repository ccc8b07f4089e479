package engine

import (
	"slices"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// undo reverts the most recent history entry that has not been undone yet.
// Broken tables come back first so the inverse relocations have somewhere
// to land, then tables the entry opened are dropped once they are empty.
func (tx *txn) undo() (*Event, error) {
	idx := tx.lastUndoable()
	if idx < 0 {
		return nil, seating.Invalid(seating.ErrNothingToUndo, "event %s", tx.env.EventID)
	}
	target := tx.l.History[idx]
	if target.Kind == seating.ActionInitialize {
		return nil, seating.Invalid(seating.ErrNothingToUndo, "initial layout of event %s", tx.env.EventID)
	}

	tx.begin(seating.ActionUndo)
	tx.entry.UndoOf = target.ID
	tx.entry.CreatedTables = slices.Clone(target.BrokenTables)
	tx.entry.BrokenTables = slices.Clone(target.CreatedTables)
	tx.l.History[idx].Undone = true

	for _, ref := range target.BrokenTables {
		if _, err := tx.l.RestoreTable(ref); err != nil {
			return nil, seating.Invalid(seating.ErrTableNotFound, "restore table %d: %v", ref.Number, err)
		}
	}
	for i := len(target.Relocations) - 1; i >= 0; i-- {
		inv := target.Relocations[i].Inverse()
		if !tx.replayable(inv) {
			continue
		}
		if _, err := tx.relocate(inv.Participant.ID, inv.From, inv.To); err != nil {
			return nil, err
		}
	}
	for _, ref := range target.CreatedTables {
		t := tx.l.TableByNumber(ref.Number)
		if t == nil {
			continue
		}
		if n := t.Occupied(); n > 0 {
			return nil, seating.Invalid(seating.ErrSourceMismatch, "table %d still holds %d", t.Number, n)
		}
		tx.l.RemoveTable(ref.Number)
	}
	return layoutUpdated(), nil
}

func (tx *txn) lastUndoable() int {
	for i := len(tx.l.History) - 1; i >= 0; i-- {
		ev := tx.l.History[i]
		if ev.Kind != seating.ActionUndo && !ev.Undone {
			return i
		}
	}
	return -1
}

// replayable reports whether inv can still be applied. Participants who left
// the roster are never seated again; the only inverse kept for them is
// clearing the seat they still hold.
func (tx *txn) replayable(inv seating.Relocation) bool {
	if _, ok := tx.env.Eligible[inv.Participant.ID]; ok {
		return true
	}
	if inv.To != nil || inv.From == nil {
		return false
	}
	t, s := tx.l.Locate(inv.Participant.ID)
	return s != nil && t.Number == inv.From.TableNumber && s.Number == inv.From.Seat
}
