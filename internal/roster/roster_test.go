package roster

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestMemory_EmitsEvents(t *testing.T) {
	var got []Event
	m := NewMemory(func(_ context.Context, ev Event) error {
		got = append(got, ev)
		return nil
	})
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, "evt", []seating.Participant{{ID: "b"}, {ID: "a"}}))
	require.NoError(t, m.Register(ctx, "evt", seating.Participant{ID: "c"}))
	require.NoError(t, m.Eliminate(ctx, "evt", "a", "zz"))
	require.NoError(t, m.Eliminate(ctx, "evt", "zz"))

	require.Len(t, got, 3)
	assert.Equal(t, KindRoster, got[0].Kind)
	assert.Equal(t, KindRegistered, got[1].Kind)
	assert.Equal(t, KindEliminated, got[2].Kind)
	assert.Equal(t, []seating.Participant{{ID: "a"}}, got[2].Participants)
	assert.False(t, got[2].At.IsZero())

	ids := []string{}
	for _, p := range m.Eligible("evt") {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestDeliver(t *testing.T) {
	var got Event
	h := func(_ context.Context, ev Event) error { got = ev; return nil }

	body, err := json.Marshal(Event{Kind: KindEliminated, EventID: "evt", Participants: []seating.Participant{{ID: "p1"}}})
	require.NoError(t, err)
	require.NoError(t, Deliver(context.Background(), body, h))
	assert.Equal(t, "p1", got.Participants[0].ID)

	require.Error(t, Deliver(context.Background(), []byte("{"), h))
	require.ErrorIs(t, Deliver(context.Background(), []byte(`{"kind":"roster"}`), h), ErrMissingEvent)
	require.ErrorIs(t, Deliver(context.Background(), []byte(`{"kind":"late","event_id":"e"}`), h), ErrUnknownKind)
}
