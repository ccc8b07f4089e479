package engine

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/strategy"
)

var ErrUnsupportedCommand = errors.New("unsupported command")

// NewRand returns a randomly seeded source for Env.Rand.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Eligible indexes a roster by participant id.
func Eligible(participants []seating.Participant) map[string]seating.Participant {
	m := make(map[string]seating.Participant, len(participants))
	for _, p := range participants {
		m[p.ID] = p
	}
	return m
}

// placer is the strategy used for automatic placement. Redistribution after
// a break or during balancing cannot be manual, so manual falls back to
// random there.
func (tx *txn) placer(redistribute bool) (strategy.Strategy, error) {
	sel := tx.l.Algorithm
	if redistribute && sel.Name == seating.AlgorithmManual {
		sel = seating.AlgorithmSelection{Name: seating.AlgorithmRandom}
	}
	return strategy.New(sel, tx.env.Rand)
}

// unseated lists eligible participants without a seat, in id order.
func (tx *txn) unseated() []seating.Participant {
	out := []seating.Participant{}
	for _, p := range tx.env.Eligible {
		if _, s := tx.l.Locate(p.ID); s == nil {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b seating.Participant) int { return strings.Compare(a.ID, b.ID) })
	return out
}
