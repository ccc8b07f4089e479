package seating

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Algorithm string

const (
	AlgorithmRandom    Algorithm = "random"
	AlgorithmChipStack Algorithm = "chip_stack"
	AlgorithmBalanced  Algorithm = "balanced"
	AlgorithmSnake     Algorithm = "snake"
	AlgorithmManual    Algorithm = "manual"
)

func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmRandom, AlgorithmChipStack, AlgorithmBalanced, AlgorithmSnake, AlgorithmManual:
		return true
	}
	return false
}

// AlgorithmSelection is the strategy a layout places participants with.
type AlgorithmSelection struct {
	Name   Algorithm      `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Layout is every table of one event.
type Layout struct {
	ID              string             `json:"id"`
	EventID         string             `json:"event_id"`
	Tables          []*Table           `json:"tables"`
	Algorithm       AlgorithmSelection `json:"algorithm"`
	LastTableNumber int                `json:"last_table_number"`
	UpdatedAt       time.Time          `json:"updated_at"`
	History         []RebalanceEvent   `json:"history"`
}

func NewLayout(eventID string, alg AlgorithmSelection, now time.Time) *Layout {
	return &Layout{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Algorithm: alg,
		UpdatedAt: now,
	}
}

// AddTable appends a new active table numbered after every table the layout
// has ever had.
func (l *Layout) AddTable(typ TableType) (*Table, error) {
	t, err := NewTable(l.LastTableNumber+1, typ)
	if err != nil {
		return nil, err
	}
	l.LastTableNumber = t.Number
	l.Tables = append(l.Tables, t)
	return t, nil
}

// RestoreTable re-creates an empty table with a previous identity.
func (l *Layout) RestoreTable(ref TableRef) (*Table, error) {
	if l.TableByNumber(ref.Number) != nil {
		return nil, fmt.Errorf("restore table %d: number in use", ref.Number)
	}
	t, err := newTable(ref.ID, ref.Number, ref.Type)
	if err != nil {
		return nil, err
	}
	l.Tables = append(l.Tables, t)
	slices.SortFunc(l.Tables, func(a, b *Table) int { return a.Number - b.Number })
	return t, nil
}

// RemoveTable drops the table and its seats from the layout.
func (l *Layout) RemoveTable(number int) {
	l.Tables = slices.DeleteFunc(l.Tables, func(t *Table) bool { return t.Number == number })
}

func (l *Layout) TableByNumber(number int) *Table {
	for _, t := range l.Tables {
		if t.Number == number {
			return t
		}
	}
	return nil
}

// ActiveTables returns active tables in table-number order.
func (l *Layout) ActiveTables() []*Table {
	out := make([]*Table, 0, len(l.Tables))
	for _, t := range l.Tables {
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out
}

// Locate finds the seat a participant occupies.
func (l *Layout) Locate(participantID string) (*Table, *Seat) {
	for _, t := range l.Tables {
		if s := t.Find(participantID); s != nil {
			return t, s
		}
	}
	return nil, nil
}

// Seated counts occupied seats across the layout.
func (l *Layout) Seated() int {
	n := 0
	for _, t := range l.Tables {
		n += t.Occupied()
	}
	return n
}

// Clone returns a deep copy sharing nothing mutable with l.
func (l *Layout) Clone() *Layout {
	c := *l
	c.Tables = make([]*Table, len(l.Tables))
	for i, t := range l.Tables {
		c.Tables[i] = t.clone()
	}
	c.Algorithm.Params = maps.Clone(l.Algorithm.Params)
	c.History = make([]RebalanceEvent, len(l.History))
	for i, ev := range l.History {
		ev.Relocations = slices.Clone(ev.Relocations)
		ev.CreatedTables = slices.Clone(ev.CreatedTables)
		ev.BrokenTables = slices.Clone(ev.BrokenTables)
		c.History[i] = ev
	}
	return &c
}
