// Package replica keeps a client's optimistic copy of one event's layout.
// Local commands are applied immediately as tentative patches tagged with a
// sequence number; every authoritative snapshot replaces the copy and the
// patches it has not yet answered are replayed on top of it.
package replica

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/types"
)

type patch struct {
	seq int64
	cmd engine.Command
}

type Replica struct {
	mu       sync.Mutex
	clientID string
	rules    seating.Rules

	version  int64
	base     *seating.Layout // last authoritative layout
	view     *seating.Layout // base with pending patches applied
	eligible map[string]seating.Participant
	pending  []patch
	nextSeq  int64
}

// New returns an empty replica. clientID must be the id the server knows the
// client by, so echoes of its own commands can be recognized.
func New(clientID string, rules seating.Rules) *Replica {
	return &Replica{clientID: clientID, rules: rules}
}

// env checks local commands against the eligible set the server last sent.
// Before the first one arrives only the seated participants are known.
func (r *Replica) env() engine.Env {
	eligible := r.eligible
	if eligible == nil {
		eligible = map[string]seating.Participant{}
		if r.view != nil {
			for _, t := range r.view.Tables {
				for _, s := range t.OccupiedSeats() {
					eligible[s.Occupant.ID] = *s.Occupant
				}
			}
		}
	}
	return engine.Env{
		Rules:    r.rules,
		Eligible: eligible,
		Rand:     engine.NewRand(),
		Now:      time.Now(),
	}
}

// Propose applies cmd to the local view and returns the sequence number to
// send it with. A command the local view already rejects is not queued.
func (r *Replica) Propose(ctx context.Context, cmd engine.Command) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := engine.Apply(ctx, r.view, r.env(), cmd)
	if err != nil {
		return 0, err
	}
	r.nextSeq++
	if res.Layout == nil {
		// nothing to show; the server answers a no-op with silence
		return r.nextSeq, nil
	}
	r.view = res.Layout
	r.pending = append(r.pending, patch{seq: r.nextSeq, cmd: cmd})
	return r.nextSeq, nil
}

// Receive reconciles an authoritative message. Snapshots below the current
// version are ignored; one at the current version only refreshes the
// eligible set. An error discards the tentative patch whose seq it echoes,
// unless it only reports that the server did not answer in time. Rules
// replies update the rules local commands are checked against.
func (r *Replica) Receive(ctx context.Context, msg types.ServerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case types.MsgRules:
		if msg.Rules != nil {
			r.rules = *msg.Rules
		}
		return
	case types.MsgError:
		if msg.ClientSeq > 0 && msg.Kind != types.KindTimeout && r.drop(msg.ClientSeq) {
			r.rebuild(ctx)
		}
		return
	}
	if msg.Layout == nil || msg.Version < r.version {
		return
	}
	if msg.Eligible != nil {
		r.eligible = engine.Eligible(msg.Eligible)
	}
	if msg.Version > r.version {
		r.version = msg.Version
		r.base = msg.Layout
		if msg.Origin == r.clientID && msg.ClientSeq > 0 {
			r.ack(msg.ClientSeq)
		}
	}
	r.rebuild(ctx)
}

func (r *Replica) drop(seq int64) bool {
	for i, p := range r.pending {
		if p.seq == seq {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Replica) ack(seq int64) {
	i := 0
	for i < len(r.pending) && r.pending[i].seq <= seq {
		i++
	}
	r.pending = r.pending[i:]
}

// rebuild replays pending patches over the authoritative layout. A patch
// that no longer applies is dropped; the server will reject it too.
func (r *Replica) rebuild(ctx context.Context) {
	r.view = r.base
	kept := r.pending[:0]
	for _, p := range r.pending {
		res, err := engine.Apply(ctx, r.view, r.env(), p.cmd)
		if err != nil {
			continue
		}
		if res.Layout != nil {
			r.view = res.Layout
		}
		kept = append(kept, p)
	}
	r.pending = kept
}

// View is the layout the client should display. It must not be modified.
func (r *Replica) View() *seating.Layout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Authoritative is the last layout the server confirmed.
func (r *Replica) Authoritative() (*seating.Layout, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base, r.version
}

func (r *Replica) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
