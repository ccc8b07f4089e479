// Package seating holds the data model of a live seating layout: tables,
// seats, the layout that owns them, and the rules every placement decision
// reads. Types here carry no behavior beyond construction and derived,
// read-only views.
package seating

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	StatusActive   TableStatus = "active"
	StatusBreaking TableStatus = "breaking"
	StatusBroken   TableStatus = "broken"
	StatusWaiting  TableStatus = "waiting"
)

// TableType is the size class of a table.
type TableType string

const (
	TypeHeadsUp TableType = "heads_up"
	TypeSixMax  TableType = "six_max"
	TypeNineMax TableType = "nine_max"
	TypeTenMax  TableType = "ten_max"
)

var tableTypes = []TableType{TypeHeadsUp, TypeSixMax, TypeNineMax, TypeTenMax}

var tableSizes = map[TableType]int{
	TypeHeadsUp: 2,
	TypeSixMax:  6,
	TypeNineMax: 9,
	TypeTenMax:  10,
}

// Size is the seat count of the size class, 0 for unknown types.
func (t TableType) Size() int { return tableSizes[t] }

// TypeFor returns the smallest table type seating at least n players.
func TypeFor(n int) TableType {
	for _, t := range tableTypes {
		if t.Size() >= n {
			return t
		}
	}
	return TypeTenMax
}

// Participant is the lightweight occupant snapshot a seat holds. The roster
// owns the authoritative record.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Strength int64  `json:"strength"`
}

type Seat struct {
	ID          string       `json:"id"`
	TableID     string       `json:"table_id"`
	Number      int          `json:"number"`
	Occupant    *Participant `json:"occupant,omitempty"`
	Lead        bool         `json:"lead"`
	FirstBlind  bool         `json:"first_blind"`
	SecondBlind bool         `json:"second_blind"`
}

func (s *Seat) IsEmpty() bool { return s.Occupant == nil }

func (s Seat) MarshalJSON() ([]byte, error) {
	type plain Seat
	return json.Marshal(struct {
		plain
		IsEmpty bool `json:"is_empty"`
	}{plain(s), s.Occupant == nil})
}

func (s *Seat) clearRoles() {
	s.Lead = false
	s.FirstBlind = false
	s.SecondBlind = false
}

type Table struct {
	ID              string      `json:"id"`
	Number          int         `json:"number"`
	MaxSeats        int         `json:"max_seats"`
	Type            TableType   `json:"type"`
	Status          TableStatus `json:"status"`
	LeadSeat        int         `json:"lead_seat"`
	FirstBlindSeat  int         `json:"first_blind_seat"`
	SecondBlindSeat int         `json:"second_blind_seat"`
	Seats           []*Seat     `json:"seats"`
}

// NewTable creates an active table with every seat of its size class.
func NewTable(number int, typ TableType) (*Table, error) {
	return newTable(uuid.NewString(), number, typ)
}

func newTable(id string, number int, typ TableType) (*Table, error) {
	size := typ.Size()
	if size <= 0 {
		return nil, fmt.Errorf("%w: table type %q", ErrNoSeats, typ)
	}
	t := &Table{
		ID:       id,
		Number:   number,
		MaxSeats: size,
		Type:     typ,
		Status:   StatusActive,
		Seats:    make([]*Seat, 0, size),
	}
	for n := 1; n <= size; n++ {
		s, err := NewSeat(t, n)
		if err != nil {
			return nil, err
		}
		t.Seats = append(t.Seats, s)
	}
	return t, nil
}

// NewSeat creates an empty seat of t. It does not attach it to t.
func NewSeat(t *Table, number int) (*Seat, error) {
	if number < 1 || number > t.MaxSeats {
		return nil, fmt.Errorf("%w: seat %d of %d", ErrSeatOutOfRange, number, t.MaxSeats)
	}
	return &Seat{ID: uuid.NewString(), TableID: t.ID, Number: number}, nil
}

func (t *Table) IsActive() bool { return t.Status == StatusActive }

// Seat returns the seat with the given number or nil.
func (t *Table) Seat(number int) *Seat {
	if number < 1 || number > len(t.Seats) {
		return nil
	}
	return t.Seats[number-1]
}

func (t *Table) Occupied() int {
	n := 0
	for _, s := range t.Seats {
		if !s.IsEmpty() {
			n++
		}
	}
	return n
}

// OccupiedSeats returns occupied seats in seat-number order.
func (t *Table) OccupiedSeats() []*Seat {
	out := make([]*Seat, 0, len(t.Seats))
	for _, s := range t.Seats {
		if !s.IsEmpty() {
			out = append(out, s)
		}
	}
	return out
}

// OpenSeats returns the numbers of empty seats, lowest first.
func (t *Table) OpenSeats() []int {
	out := make([]int, 0, len(t.Seats))
	for _, s := range t.Seats {
		if s.IsEmpty() {
			out = append(out, s.Number)
		}
	}
	return out
}

func (t *Table) Find(participantID string) *Seat {
	for _, s := range t.Seats {
		if s.Occupant != nil && s.Occupant.ID == participantID {
			return s
		}
	}
	return nil
}

// ClearRoles resets every role flag and role position of the table.
func (t *Table) ClearRoles() {
	for _, s := range t.Seats {
		s.clearRoles()
	}
	t.LeadSeat, t.FirstBlindSeat, t.SecondBlindSeat = 0, 0, 0
}

// Ref is the identity of the table without its seats.
func (t *Table) Ref() TableRef {
	return TableRef{ID: t.ID, Number: t.Number, Type: t.Type}
}

func (t *Table) clone() *Table {
	c := *t
	c.Seats = make([]*Seat, len(t.Seats))
	for i, s := range t.Seats {
		sc := *s
		if s.Occupant != nil {
			p := *s.Occupant
			sc.Occupant = &p
		}
		c.Seats[i] = &sc
	}
	return &c
}

// TableRef identifies a table that was created or broken by an action.
type TableRef struct {
	ID     string    `json:"id"`
	Number int       `json:"number"`
	Type   TableType `json:"type"`
}

// Location addresses a seat by table number and seat number.
type Location struct {
	TableNumber int `json:"table_number"`
	Seat        int `json:"seat"`
}

func (l *Location) String() string {
	if l == nil {
		return "none"
	}
	return fmt.Sprintf("%d/%d", l.TableNumber, l.Seat)
}

// Relocation is one participant moving between seats. A nil From is an
// initial placement, a nil To is a removal.
type Relocation struct {
	Participant Participant `json:"participant"`
	From        *Location   `json:"from,omitempty"`
	To          *Location   `json:"to,omitempty"`
}

// Inverse undoes r.
func (r Relocation) Inverse() Relocation {
	return Relocation{Participant: r.Participant, From: r.To, To: r.From}
}

type ActionKind string

const (
	ActionInitialize  ActionKind = "initialize"
	ActionRelocate    ActionKind = "relocate"
	ActionSwap        ActionKind = "swap"
	ActionRemove      ActionKind = "remove"
	ActionSeatNew     ActionKind = "seat_new"
	ActionCreateTable ActionKind = "create_table"
	ActionBreakTable  ActionKind = "break_table"
	ActionAutoBalance ActionKind = "auto_balance"
	ActionUndo        ActionKind = "undo"
)

// RebalanceEvent is one entry of the layout's history.
type RebalanceEvent struct {
	ID            string       `json:"id"`
	Kind          ActionKind   `json:"kind"`
	Actor         string       `json:"actor"`
	Reason        string       `json:"reason,omitempty"`
	At            time.Time    `json:"at"`
	Relocations   []Relocation `json:"relocations"`
	CreatedTables []TableRef   `json:"created_tables,omitempty"`
	BrokenTables  []TableRef   `json:"broken_tables,omitempty"`
	Undone        bool         `json:"undone,omitempty"`
	UndoOf        string       `json:"undo_of,omitempty"`
}
