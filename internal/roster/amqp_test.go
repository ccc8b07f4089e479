package roster

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestConsumer_RabbitMQ(t *testing.T) {
	url := os.Getenv("SEATING_TEST_AMQP_URL")
	if url == "" {
		t.Skip("SEATING_TEST_AMQP_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queue := "seating.test." + uuid.NewString()
	sent := Event{Kind: KindRegistered, EventID: "evt", Participants: []seating.Participant{{ID: "p1", Strength: 1500}}}
	require.NoError(t, Publish(ctx, url, queue, Event{Kind: "bogus", EventID: "evt"}))
	require.NoError(t, Publish(ctx, url, queue, sent))

	got := make(chan Event, 2)
	c := &Consumer{URL: url, Queue: queue}
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(runCtx, func(_ context.Context, ev Event) error {
			got <- ev
			return nil
		})
	}()

	select {
	case ev := <-got:
		assert.Equal(t, KindRegistered, ev.Kind)
		assert.Equal(t, sent.Participants, ev.Participants)
	case <-ctx.Done():
		t.Fatal("no roster event consumed")
	}
	stop()
	require.NoError(t, <-done)
}
