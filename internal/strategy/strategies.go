package strategy

import (
	"math/rand/v2"
	"slices"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// DefaultBands are the inclusive upper bounds of the lower three strength
// bands used by Balanced; everything above the last bound is the top band.
var DefaultBands = []int{5000, 10000, 15000}

type Random struct{ rng *rand.Rand }

func (s *Random) Name() seating.Algorithm { return seating.AlgorithmRandom }

func (s *Random) Assign(participants []seating.Participant, tables []Inventory) Result {
	order := slices.Clone(participants)
	shuffle(s.rng, order)
	return roundRobin(order, tables)
}

// ChipStack deals the strongest participants first so they spread one per
// table before any table receives a second.
type ChipStack struct{ rng *rand.Rand }

func (s *ChipStack) Name() seating.Algorithm { return seating.AlgorithmChipStack }

func (s *ChipStack) Assign(participants []seating.Participant, tables []Inventory) Result {
	return roundRobin(byStrength(s.rng, participants), tables)
}

type Balanced struct {
	rng   *rand.Rand
	bands []int
}

func (s *Balanced) Name() seating.Algorithm { return seating.AlgorithmBalanced }

func (s *Balanced) Assign(participants []seating.Participant, tables []Inventory) Result {
	buckets := make([][]seating.Participant, len(s.bands)+1)
	for _, p := range participants {
		b := bandOf(p.Strength, s.bands)
		buckets[b] = append(buckets[b], p)
	}
	for _, b := range buckets {
		shuffle(s.rng, b)
	}

	order := make([]seating.Participant, 0, len(participants))
	for len(order) < len(participants) {
		for i := range buckets {
			if len(buckets[i]) == 0 {
				continue
			}
			order = append(order, buckets[i][0])
			buckets[i] = buckets[i][1:]
		}
	}
	return roundRobin(order, tables)
}

func bandOf(strength int64, bounds []int) int {
	for i, upper := range bounds {
		if strength <= int64(upper) {
			return i
		}
	}
	return len(bounds)
}

type Snake struct{ rng *rand.Rand }

func (s *Snake) Name() seating.Algorithm { return seating.AlgorithmSnake }

func (s *Snake) Assign(participants []seating.Participant, tables []Inventory) Result {
	return serpentine(byStrength(s.rng, participants), tables)
}

// Manual never places anyone; every move goes through the move engine.
type Manual struct{}

func (Manual) Name() seating.Algorithm { return seating.AlgorithmManual }

func (Manual) Assign(participants []seating.Participant, _ []Inventory) Result {
	return Result{Unplaced: slices.Clone(participants)}
}

// byStrength sorts strongest first. The shuffle before the stable sort
// randomizes the order of equal strengths once per call.
func byStrength(rng *rand.Rand, participants []seating.Participant) []seating.Participant {
	order := slices.Clone(participants)
	shuffle(rng, order)
	slices.SortStableFunc(order, func(a, b seating.Participant) int {
		switch {
		case a.Strength > b.Strength:
			return -1
		case a.Strength < b.Strength:
			return 1
		}
		return 0
	})
	return order
}

func shuffle(rng *rand.Rand, ps []seating.Participant) {
	rng.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
}
