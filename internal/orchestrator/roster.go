package orchestrator

import (
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

const (
	originRoster = "roster"
	originSystem = "system"
)

// handleRoster folds a roster notification into the eligible set and turns
// it into layout commands. The first full roster of an event without a
// layout initializes it.
func (o *Orchestrator) handleRoster(ev roster.Event) error {
	switch ev.Kind {
	case roster.KindRoster:
		next := engine.Eligible(ev.Participants)
		if o.layout == nil || o.halted {
			o.eligible = next
			if len(next) == 0 {
				return nil
			}
			_, err := o.apply(originRoster, 0, engine.Command{Type: engine.CmdInitialize, Actor: originRoster, Participants: ev.Participants})
			return err
		}
		var gone, joined []seating.Participant
		for id, p := range o.eligible {
			if _, ok := next[id]; !ok {
				gone = append(gone, p)
			}
		}
		for id, p := range next {
			if _, ok := o.eligible[id]; !ok {
				joined = append(joined, p)
			}
		}
		byID := func(a, b seating.Participant) int { return strings.Compare(a.ID, b.ID) }
		slices.SortFunc(gone, byID)
		slices.SortFunc(joined, byID)
		for id, p := range next {
			o.eligible[id] = p
		}
		return multierr.Append(o.eliminate(gone), o.register(joined))

	case roster.KindRegistered:
		return o.register(ev.Participants)

	case roster.KindEliminated:
		return o.eliminate(ev.Participants)
	}
	return roster.ErrUnknownKind
}

func (o *Orchestrator) register(ps []seating.Participant) error {
	if len(ps) == 0 {
		return nil
	}
	for _, p := range ps {
		o.eligible[p.ID] = p
	}
	if o.layout == nil || o.layout.Algorithm.Name == seating.AlgorithmManual {
		return nil
	}
	_, err := o.apply(originRoster, 0, engine.Command{Type: engine.CmdSeatNew, Actor: originRoster, Participants: ps})
	return err
}

// eliminate unseats everyone in ps, one broadcast each, then rebalances
// when auto balance is on.
func (o *Orchestrator) eliminate(ps []seating.Participant) error {
	if len(ps) == 0 {
		return nil
	}
	var errs error
	removed := 0
	for _, p := range ps {
		delete(o.eligible, p.ID)
		if o.layout == nil {
			continue
		}
		if _, s := o.layout.Locate(p.ID); s == nil {
			continue
		}
		_, err := o.apply(originRoster, 0, engine.Command{
			Type:          engine.CmdRemove,
			Actor:         originRoster,
			Reason:        "eliminated",
			ParticipantID: p.ID,
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed++
	}
	if removed == 0 || !o.opts.AutoBalance {
		return errs
	}
	if _, err := o.apply(originSystem, 0, engine.Command{Type: engine.CmdAutoBalance, Actor: originSystem, Reason: "elimination"}); err != nil {
		o.log.Warn("auto balance after elimination failed", zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	return errs
}
