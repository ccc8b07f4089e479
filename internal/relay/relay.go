// Package relay fans committed snapshots out through Redis so processes that
// do not own an event can serve it: each snapshot is published on the
// event's channel and cached under the event's key.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
)

const (
	DefaultPrefix = "seating"
	DefaultTTL    = 24 * time.Hour
)

type Relay struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Relay, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return New(rdb, DefaultPrefix, DefaultTTL, log), nil
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Relay {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Relay{rdb: rdb, prefix: prefix, ttl: ttl, log: logging.OrNop(log)}
}

func (r *Relay) Name() string { return "redis" }

func (r *Relay) Channel(eventID string) string { return r.prefix + ":events:" + eventID }
func (r *Relay) key(eventID string) string     { return r.prefix + ":layout:" + eventID }

// Publish caches snap and announces it on the event channel.
func (r *Relay) Publish(ctx context.Context, eventID string, snap orchestrator.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.key(eventID), payload, r.ttl)
	pipe.Publish(ctx, r.Channel(eventID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("relay version %d of %s: %w", snap.Version, eventID, err)
	}
	return nil
}

// Latest returns the cached snapshot of eventID, nil when nothing is cached.
func (r *Relay) Latest(ctx context.Context, eventID string) (*orchestrator.Snapshot, error) {
	payload, err := r.rdb.Get(ctx, r.key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Subscribe delivers the snapshots published for eventID until ctx ends.
// Messages that fail to decode are skipped.
func (r *Relay) Subscribe(ctx context.Context, eventID string) (<-chan orchestrator.Snapshot, error) {
	sub := r.rdb.Subscribe(ctx, r.Channel(eventID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	out := make(chan orchestrator.Snapshot, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap orchestrator.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					r.log.Warn("bad relay payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Relay) Close() error { return r.rdb.Close() }
