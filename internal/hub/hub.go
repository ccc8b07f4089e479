package hub

import (
	"context"
	"slices"

	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/roster"
)

type HubMsg interface{ isHubMsg() }

// Factory builds the orchestrator for an event the hub has not seen yet.
type Factory func(ctx context.Context, eventID string) *orchestrator.Orchestrator

type GetEvent struct {
	EventID string
	Reply   chan *orchestrator.Orchestrator
}

type EnsureEvent struct {
	EventID string
	Reply   chan *orchestrator.Orchestrator
}

type RemoveEvent struct {
	EventID string
}

// RouteRoster forwards a roster notification to the event's orchestrator,
// creating it if needed. Reply receives the orchestrator's answer.
type RouteRoster struct {
	Event roster.Event
	Reply chan error
}

type ListEvents struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (GetEvent) isHubMsg()    {}
func (EnsureEvent) isHubMsg() {}
func (RemoveEvent) isHubMsg() {}
func (RouteRoster) isHubMsg() {}
func (ListEvents) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	events  map[string]*orchestrator.Orchestrator
	factory Factory
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, factory Factory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if factory == nil {
		factory = func(ctx context.Context, eventID string) *orchestrator.Orchestrator {
			return orchestrator.New(ctx, eventID, orchestrator.Options{})
		}
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		events:  make(map[string]*orchestrator.Orchestrator),
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetEvent:
				msg.Reply <- h.events[msg.EventID] // May be nil

			case EnsureEvent:
				msg.Reply <- h.ensure(msg.EventID)

			case RouteRoster:
				o := h.ensure(msg.Event.EventID)
				o.Inbox() <- orchestrator.RosterChanged{Event: msg.Event, Reply: msg.Reply}

			case RemoveEvent:
				if o := h.events[msg.EventID]; o != nil {
					o.Inbox() <- orchestrator.Shutdown{}
					delete(h.events, msg.EventID)
				}

			case ListEvents:
				ids := make([]string, 0, len(h.events))
				for id := range h.events {
					ids = append(ids, id)
				}
				slices.Sort(ids)
				msg.Reply <- ids

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(eventID string) *orchestrator.Orchestrator {
	if o := h.events[eventID]; o != nil {
		return o
	}
	o := h.factory(h.ctx, eventID)
	h.events[eventID] = o
	return o
}

func (h *Hub) shutdown() {
	for _, o := range h.events {
		o.Inbox() <- orchestrator.Shutdown{}
	}
	clear(h.events)
	h.cancel()
}

// Ensure returns the orchestrator for eventID, creating it on first use.
func (h *Hub) Ensure(ctx context.Context, eventID string) (*orchestrator.Orchestrator, error) {
	reply := make(chan *orchestrator.Orchestrator, 1)
	select {
	case h.inbox <- EnsureEvent{EventID: eventID, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case o := <-reply:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the orchestrator for eventID or nil.
func (h *Hub) Get(ctx context.Context, eventID string) (*orchestrator.Orchestrator, error) {
	reply := make(chan *orchestrator.Orchestrator, 1)
	select {
	case h.inbox <- GetEvent{EventID: eventID, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case o := <-reply:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleRoster routes ev and waits for the orchestrator to process it. It
// satisfies roster.Handler.
func (h *Hub) HandleRoster(ctx context.Context, ev roster.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	reply := make(chan error, 1)
	select {
	case h.inbox <- RouteRoster{Event: ev, Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns the ids of the events with a running orchestrator.
func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	select {
	case h.inbox <- ListEvents{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove stops the orchestrator of eventID, closing its clients.
func (h *Hub) Remove(ctx context.Context, eventID string) error {
	select {
	case h.inbox <- RemoveEvent{EventID: eventID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
