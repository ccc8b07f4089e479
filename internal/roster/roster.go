// Package roster is the boundary to the participant roster. The seating side
// only ever sees Events: a full roster, new registrations or eliminations.
package roster

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

type Kind string

const (
	KindRoster     Kind = "roster"
	KindRegistered Kind = "registered"
	KindEliminated Kind = "eliminated"
)

var (
	ErrUnknownKind  = errors.New("unknown roster event kind")
	ErrMissingEvent = errors.New("roster event without event id")
)

// Event is one roster notification for an event.
type Event struct {
	Kind         Kind                  `json:"kind"`
	EventID      string                `json:"event_id"`
	Participants []seating.Participant `json:"participants"`
	At           time.Time             `json:"at"`
}

func (e Event) Validate() error {
	if e.EventID == "" {
		return ErrMissingEvent
	}
	switch e.Kind {
	case KindRoster, KindRegistered, KindEliminated:
		return nil
	}
	return ErrUnknownKind
}

// Handler receives roster events in the order they were produced.
type Handler func(context.Context, Event) error

// Memory is an in-process roster for one or more events. Every change is
// handed to the handler as an Event.
type Memory struct {
	mu      sync.Mutex
	events  map[string]map[string]seating.Participant
	handler Handler
	now     func() time.Time
}

func NewMemory(h Handler) *Memory {
	return &Memory{events: map[string]map[string]seating.Participant{}, handler: h, now: time.Now}
}

// Load replaces the roster of eventID.
func (m *Memory) Load(ctx context.Context, eventID string, ps []seating.Participant) error {
	m.mu.Lock()
	set := make(map[string]seating.Participant, len(ps))
	for _, p := range ps {
		set[p.ID] = p
	}
	m.events[eventID] = set
	m.mu.Unlock()
	return m.emit(ctx, Event{Kind: KindRoster, EventID: eventID, Participants: ps})
}

func (m *Memory) Register(ctx context.Context, eventID string, ps ...seating.Participant) error {
	m.mu.Lock()
	set := m.events[eventID]
	if set == nil {
		set = map[string]seating.Participant{}
		m.events[eventID] = set
	}
	for _, p := range ps {
		set[p.ID] = p
	}
	m.mu.Unlock()
	return m.emit(ctx, Event{Kind: KindRegistered, EventID: eventID, Participants: ps})
}

func (m *Memory) Eliminate(ctx context.Context, eventID string, ids ...string) error {
	m.mu.Lock()
	out := make([]seating.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.events[eventID][id]; ok {
			out = append(out, p)
			delete(m.events[eventID], id)
		}
	}
	m.mu.Unlock()
	if len(out) == 0 {
		return nil
	}
	return m.emit(ctx, Event{Kind: KindEliminated, EventID: eventID, Participants: out})
}

// Eligible lists the current roster of eventID in id order.
func (m *Memory) Eligible(eventID string) []seating.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]seating.Participant, 0, len(m.events[eventID]))
	for _, p := range m.events[eventID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b seating.Participant) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (m *Memory) emit(ctx context.Context, ev Event) error {
	if m.handler == nil {
		return nil
	}
	ev.At = m.now()
	return m.handler(ctx, ev)
}
