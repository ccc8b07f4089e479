package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	pumpBuffer     = 32
	publishTimeout = 5 * time.Second
)

type pump struct {
	sink Sink
	ch   chan Snapshot
}

// startPump gives s its own goroutine so a slow store or relay never holds
// up the actor. Snapshots carry the whole layout, so a sink that falls
// behind only loses intermediate versions.
func (o *Orchestrator) startPump(s Sink) *pump {
	p := &pump{sink: s, ch: make(chan Snapshot, pumpBuffer)}
	base := context.WithoutCancel(o.ctx)
	log := o.log.With(zap.String("sink", s.Name()))
	go func() {
		for snap := range p.ch {
			ctx, cancel := context.WithTimeout(base, publishTimeout)
			if err := s.Publish(ctx, o.eventID, snap); err != nil {
				log.Warn("sink publish failed", zap.Int64("version", snap.Version), zap.Error(err))
			}
			cancel()
		}
	}()
	return p
}

func (o *Orchestrator) publish(snap Snapshot) {
	for _, p := range o.pumps {
		select {
		case p.ch <- snap:
		default:
			o.metrics.SinkDropped(p.sink.Name())
			o.log.Warn("sink behind, snapshot dropped", zap.String("sink", p.sink.Name()), zap.Int64("version", snap.Version))
		}
	}
}
