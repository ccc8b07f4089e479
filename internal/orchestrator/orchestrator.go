// Package orchestrator owns the committed layout of one event. Every change
// goes through a single goroutine that applies it, bumps the version and
// broadcasts the result before it looks at the next message.
package orchestrator

import (
	"context"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/metrics"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

type Msg interface{ isOrchestratorMsg() }

// FromClient is one command from a client. Seq is echoed in the resulting
// broadcast so the sender can match it to its tentative change. Reply, when
// set, receives the outcome and should be buffered.
type FromClient struct {
	ClientID string
	Seq      int64
	Cmd      engine.Command
	Reply    chan Outcome
}

func (FromClient) isOrchestratorMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isOrchestratorMsg() {}

type Leave struct{ ClientID string }

func (Leave) isOrchestratorMsg() {}

// RosterChanged carries a roster notification. Reply is optional.
type RosterChanged struct {
	Event roster.Event
	Reply chan error
}

func (RosterChanged) isOrchestratorMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isOrchestratorMsg() {}

type Shutdown struct{}

func (Shutdown) isOrchestratorMsg() {}

// Snapshot is one committed version of the layout together with the event
// that produced it and the participants eligible to sit at that point.
// Layout is never modified after it is published.
type Snapshot struct {
	Version   int64                 `json:"version"`
	Origin    string                `json:"origin,omitempty"`
	ClientSeq int64                 `json:"client_seq,omitempty"`
	Event     *engine.Event         `json:"event,omitempty"`
	Layout    *seating.Layout       `json:"layout,omitempty"`
	Eligible  []seating.Participant `json:"eligible,omitempty"`
}

// Outcome answers a FromClient. Snapshot is nil when the command was valid
// but changed nothing.
type Outcome struct {
	Snapshot *Snapshot
	Err      error
}

type View struct {
	Version    int64
	NumClients int
	Eligible   int
	Halted     bool
	Layout     *seating.Layout
}

// Sink receives committed snapshots off the actor goroutine.
type Sink interface {
	Name() string
	Publish(ctx context.Context, eventID string, snap Snapshot) error
}

type Options struct {
	Rules       *seating.RuleBook
	Algorithm   seating.AlgorithmSelection
	AutoBalance bool
	Logger      *zap.Logger
	Metrics     metrics.Recorder
	Sinks       []Sink
	Now         func() time.Time
	Rand        *rand.Rand
	// Restore seeds the actor with a previously committed snapshot.
	Restore *Snapshot
}

type Orchestrator struct {
	eventID string
	opts    Options
	log     *zap.Logger
	metrics metrics.Recorder

	inbox    chan Msg
	layout   *seating.Layout
	version  int64
	eligible map[string]seating.Participant
	halted   bool
	clients  map[string]chan Snapshot
	pumps    []*pump

	latest   atomic.Pointer[Snapshot]
	isHalted atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, eventID string, opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)
	if opts.Rules == nil {
		opts.Rules, _ = seating.NewRuleBook(seating.DefaultRules())
	}
	if opts.Algorithm.Name == "" {
		opts.Algorithm = seating.AlgorithmSelection{Name: seating.AlgorithmRandom}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = engine.NewRand()
	}

	o := &Orchestrator{
		eventID:  eventID,
		opts:     opts,
		log:      logging.OrNop(opts.Logger).With(zap.String("event_id", eventID)),
		metrics:  metrics.OrNop(opts.Metrics),
		inbox:    make(chan Msg, 64),
		eligible: map[string]seating.Participant{},
		clients:  make(map[string]chan Snapshot),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if r := opts.Restore; r != nil && r.Layout != nil {
		o.layout = r.Layout
		o.version = r.Version
		if len(r.Eligible) > 0 {
			o.eligible = engine.Eligible(r.Eligible)
		} else {
			for _, t := range r.Layout.Tables {
				for _, s := range t.OccupiedSeats() {
					o.eligible[s.Occupant.ID] = *s.Occupant
				}
			}
			o.log.Warn("restored snapshot has no eligible set, unseated participants wait for the next roster",
				zap.Int64("version", r.Version))
		}
		o.latest.Store(&Snapshot{Version: r.Version, Layout: r.Layout, Eligible: o.eligibleList()})
	}
	for _, s := range opts.Sinks {
		o.pumps = append(o.pumps, o.startPump(s))
	}

	go o.loop()
	return o
}

func (o *Orchestrator) EventID() string { return o.eventID }

// Inbox exposes the actor's mailbox to the hub and transports.
func (o *Orchestrator) Inbox() chan<- Msg { return o.inbox }

// Done is closed once the actor has stopped.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Latest is the last committed snapshot, nil before initialization. It is
// safe to call from any goroutine.
func (o *Orchestrator) Latest() *Snapshot { return o.latest.Load() }

func (o *Orchestrator) Halted() bool { return o.isHalted.Load() }

func (o *Orchestrator) loop() {
	defer close(o.done)
	for {
		select {
		case <-o.ctx.Done():
			o.shutdown()
			return

		case m := <-o.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				o.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- o.current()

			case Leave:
				delete(o.clients, msg.ClientID)

			case FromClient:
				snap, err := o.apply(msg.ClientID, msg.Seq, msg.Cmd)
				reply(msg.Reply, Outcome{Snapshot: snap, Err: err})

			case RosterChanged:
				before, version := maps.Clone(o.eligible), o.version
				reply(msg.Reply, o.handleRoster(msg.Event))
				if o.version == version && !maps.Equal(before, o.eligible) {
					o.refreshEligible()
				}

			case GetState:
				msg.Reply <- View{
					Version:    o.version,
					NumClients: len(o.clients),
					Eligible:   len(o.eligible),
					Halted:     o.halted,
					Layout:     o.layout,
				}

			case Shutdown:
				o.shutdown()
				return
			}
		}
	}
}

func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

func (o *Orchestrator) current() Snapshot {
	if s := o.latest.Load(); s != nil {
		return *s
	}
	return Snapshot{Version: o.version}
}

// apply runs one command against the committed layout and, if it changed
// anything, commits and broadcasts the result.
func (o *Orchestrator) apply(origin string, seq int64, cmd engine.Command) (*Snapshot, error) {
	log := o.log.With(zap.String("command", string(cmd.Type)), zap.String("origin", origin))
	base := o.layout
	if cmd.Type == engine.CmdInitialize {
		if o.halted {
			base = nil
		}
		if len(cmd.Participants) == 0 {
			cmd.Participants = o.eligibleList()
		}
		if cmd.Algorithm.Name == "" {
			cmd.Algorithm = o.opts.Algorithm
		}
	} else if o.halted {
		o.metrics.CommandRejected(string(cmd.Type), "halted")
		return nil, seating.ErrLayoutHalted
	}

	env := engine.Env{
		EventID:  o.eventID,
		Rules:    o.opts.Rules.Current(),
		Eligible: o.eligible,
		Rand:     o.opts.Rand,
		Now:      o.opts.Now(),
	}
	start := time.Now()
	res, err := engine.Apply(o.ctx, base, env, cmd)
	if err != nil {
		kind := seating.Kind(err)
		o.metrics.CommandRejected(string(cmd.Type), kind)
		if kind == "internal" {
			o.halted = true
			o.isHalted.Store(true)
			o.metrics.LayoutHalted(o.eventID)
			log.Error("layout halted", zap.Error(err))
			return nil, err
		}
		log.Warn("command rejected", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	if res.Layout == nil {
		log.Debug("command changed nothing")
		return nil, nil
	}

	if cmd.Type == engine.CmdInitialize {
		o.eligible = engine.Eligible(cmd.Participants)
		o.halted = false
		o.isHalted.Store(false)
	}
	prevHistory := 0
	if base != nil {
		prevHistory = len(base.History)
	}
	for _, ev := range res.Layout.History[prevHistory:] {
		o.metrics.Relocations(len(ev.Relocations))
	}

	o.layout = res.Layout
	o.version++
	snap := &Snapshot{
		Version:   o.version,
		Origin:    origin,
		ClientSeq: seq,
		Event:     res.Event,
		Layout:    res.Layout,
		Eligible:  o.eligibleList(),
	}
	o.latest.Store(snap)

	o.metrics.CommandApplied(string(cmd.Type), time.Since(start))
	o.metrics.ActiveTables(o.eventID, len(res.Layout.ActiveTables()))
	log.Debug("committed", zap.Int64("version", o.version), zap.String("event", string(res.Event.Type)))

	o.broadcast(*snap)
	o.publish(*snap)
	return snap, nil
}

// eligibleList lists the eligible participants in id order.
func (o *Orchestrator) eligibleList() []seating.Participant {
	out := make([]seating.Participant, 0, len(o.eligible))
	for _, p := range o.eligible {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b seating.Participant) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// refreshEligible reissues the current version with the eligible set after
// a roster change that moved nobody.
func (o *Orchestrator) refreshEligible() {
	if o.layout == nil {
		return
	}
	snap := o.current()
	snap.Origin, snap.ClientSeq, snap.Event = originRoster, 0, nil
	snap.Eligible = o.eligibleList()
	o.latest.Store(&snap)
	o.broadcast(snap)
	o.publish(snap)
}

func (o *Orchestrator) shutdown() {
	for id, ch := range o.clients {
		close(ch) // Tell client no more snapshots
		delete(o.clients, id)
	}
	for _, p := range o.pumps {
		close(p.ch)
	}
	o.pumps = nil
	o.cancel()
}

func (o *Orchestrator) broadcast(snap Snapshot) {
	for id, ch := range o.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(o.clients, id)
			o.metrics.ClientDropped()
			o.log.Info("dropped slow client", zap.String("client_id", id))
		}
	}
}
