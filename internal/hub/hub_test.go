package hub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)
	reply := make(chan *orchestrator.Orchestrator, 1)

	h.Inbox() <- EnsureEvent{EventID: "spring-open", Reply: reply}
	o1 := <-reply

	h.Inbox() <- GetEvent{EventID: "spring-open", Reply: reply}
	o2 := <-reply

	require.NotNil(t, o1)
	assert.Same(t, o1, o2)
	assert.Equal(t, "spring-open", o1.EventID())

	h.Inbox() <- GetEvent{EventID: "missing", Reply: reply}
	assert.Nil(t, <-reply)
}

func TestHub_RoutesRosterToEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h := NewHub(ctx, nil)

	ps := make([]seating.Participant, 12)
	for i := range ps {
		ps[i] = seating.Participant{ID: fmt.Sprintf("p%d", i)}
	}
	require.NoError(t, h.HandleRoster(ctx, roster.Event{Kind: roster.KindRoster, EventID: "evt", Participants: ps}))

	o, err := h.Get(ctx, "evt")
	require.NoError(t, err)
	require.NotNil(t, o)
	require.NotNil(t, o.Latest())
	assert.Equal(t, 12, o.Latest().Layout.Seated())

	require.ErrorIs(t, h.HandleRoster(ctx, roster.Event{Kind: roster.KindRoster}), roster.ErrMissingEvent)
}

func TestHub_RemoveEventStopsOrchestrator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h := NewHub(ctx, nil)

	o, err := h.Ensure(ctx, "evt")
	require.NoError(t, err)
	h.Inbox() <- RemoveEvent{EventID: "evt"}

	select {
	case <-o.Done():
	case <-ctx.Done():
		t.Fatal("orchestrator still running")
	}

	reply := make(chan []string, 1)
	h.Inbox() <- ListEvents{Reply: reply}
	assert.Empty(t, <-reply)
}
