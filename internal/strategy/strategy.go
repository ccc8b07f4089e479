// Package strategy maps a participant set onto the open seats of a set of
// tables.
//
// Every strategy is a pure function of its inputs and its random source:
//
//   - Random: uniform shuffle, then round-robin across tables
//   - ChipStack: strongest first, then round-robin
//   - Balanced: four strength bands, each shuffled, interleaved, then round-robin
//   - Snake: strongest first, serpentine table order
//   - Manual: places nobody
//
// Round-robin walks tables in table order and fills each table's lowest open
// seat first. Participants that find no seat are returned in Result.Unplaced,
// in strategy order.
package strategy

import (
	"fmt"
	"math/rand/v2"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// Inventory is the set of open seats of one table a strategy may fill,
// lowest seat number first.
type Inventory struct {
	TableID     string
	TableNumber int
	Seats       []int
}

type Placement struct {
	ParticipantID string `json:"participant_id"`
	TableID       string `json:"table_id"`
	TableNumber   int    `json:"table_number"`
	Seat          int    `json:"seat"`
}

type Result struct {
	Placements []Placement
	Unplaced   []seating.Participant
}

type Strategy interface {
	Name() seating.Algorithm
	Assign(participants []seating.Participant, tables []Inventory) Result
}

var (
	_ Strategy = (*Random)(nil)
	_ Strategy = (*ChipStack)(nil)
	_ Strategy = (*Balanced)(nil)
	_ Strategy = (*Snake)(nil)
	_ Strategy = (*Manual)(nil)
)

// New builds the strategy a selection names. rng drives every shuffle.
func New(sel seating.AlgorithmSelection, rng *rand.Rand) (Strategy, error) {
	switch sel.Name {
	case seating.AlgorithmRandom:
		return &Random{rng: rng}, nil
	case seating.AlgorithmChipStack:
		return &ChipStack{rng: rng}, nil
	case seating.AlgorithmBalanced:
		bands, err := intsParam(sel.Params, "bands", DefaultBands)
		if err != nil {
			return nil, err
		}
		if err := validateBands(bands); err != nil {
			return nil, err
		}
		return &Balanced{rng: rng, bands: bands}, nil
	case seating.AlgorithmSnake:
		return &Snake{rng: rng}, nil
	case seating.AlgorithmManual:
		return &Manual{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", seating.ErrUnknownAlgorithm, sel.Name)
	}
}

// InventoryOf lists the open seats of every active table, capped so no table
// would exceed maxPerTable occupants.
func InventoryOf(tables []*seating.Table, maxPerTable int) []Inventory {
	out := make([]Inventory, 0, len(tables))
	for _, t := range tables {
		if !t.IsActive() {
			continue
		}
		open := t.OpenSeats()
		room := maxPerTable - t.Occupied()
		if room < 0 {
			room = 0
		}
		if len(open) > room {
			open = open[:room]
		}
		out = append(out, Inventory{TableID: t.ID, TableNumber: t.Number, Seats: open})
	}
	return out
}

// Capacity is the number of seats across inv.
func Capacity(inv []Inventory) int {
	n := 0
	for _, t := range inv {
		n += len(t.Seats)
	}
	return n
}
