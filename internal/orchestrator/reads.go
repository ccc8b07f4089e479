package orchestrator

import (
	"github.com/DoyleJ11/table-balancer/internal/balance"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

type Stats struct {
	EventID string         `json:"event_id"`
	Version int64          `json:"version"`
	Tables  int            `json:"tables"`
	Seated  int            `json:"seated"`
	Halted  bool           `json:"halted"`
	Balance balance.Report `json:"balance"`
}

type OpenSeats struct {
	TableNumber int   `json:"table_number"`
	Seats       []int `json:"seats"`
}

// Stats reports occupancy and balance of the last committed layout without
// going through the actor.
func (o *Orchestrator) Stats() (Stats, error) {
	snap := o.latest.Load()
	if snap == nil || snap.Layout == nil {
		return Stats{}, seating.ErrNoLayout
	}
	l := snap.Layout
	return Stats{
		EventID: o.eventID,
		Version: snap.Version,
		Tables:  len(l.ActiveTables()),
		Seated:  l.Seated(),
		Halted:  o.isHalted.Load(),
		Balance: balance.Analyze(l.Tables, o.opts.Rules.Current()),
	}, nil
}

// AvailableSeats lists the empty seats of every active table.
func (o *Orchestrator) AvailableSeats() ([]OpenSeats, error) {
	snap := o.latest.Load()
	if snap == nil || snap.Layout == nil {
		return nil, seating.ErrNoLayout
	}
	out := []OpenSeats{}
	for _, t := range snap.Layout.ActiveTables() {
		out = append(out, OpenSeats{TableNumber: t.Number, Seats: t.OpenSeats()})
	}
	return out, nil
}
