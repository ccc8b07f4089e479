package store

import (
	"context"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func snapshot(t *testing.T, eventID string) orchestrator.Snapshot {
	t.Helper()
	ps := make([]seating.Participant, 8)
	for i := range ps {
		ps[i] = seating.Participant{ID: fmt.Sprintf("p%d", i), Strength: int64(100 * i)}
	}
	res, err := engine.Apply(context.Background(), nil, engine.Env{
		EventID:  eventID,
		Rules:    seating.DefaultRules(),
		Eligible: engine.Eligible(ps),
		Rand:     engine.NewRand(),
		Now:      time.Now().UTC(),
	}, engine.Command{
		Type:         engine.CmdInitialize,
		Actor:        "td",
		Participants: ps,
		Algorithm:    seating.AlgorithmSelection{Name: seating.AlgorithmChipStack},
	})
	require.NoError(t, err)
	return orchestrator.Snapshot{Version: 1, Origin: "td", Event: res.Event, Layout: res.Layout, Eligible: ps}
}

func TestRecordsRoundTrip(t *testing.T) {
	snap := snapshot(t, "evt")
	rec, hist, err := toRecords("evt", snap)
	require.NoError(t, err)
	assert.Equal(t, "evt", rec.EventID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, "layout-updated", rec.EventType)
	require.Len(t, hist, 1)
	assert.Equal(t, string(seating.ActionInitialize), hist[0].Kind)
	assert.Equal(t, 8, hist[0].Relocations)
	assert.Equal(t, "td", hist[0].Actor)

	back, err := fromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, back.Version)
	require.NotNil(t, back.Layout)
	assert.Equal(t, snap.Layout.Seated(), back.Layout.Seated())
	assert.Equal(t, snap.Eligible, back.Eligible)
	assert.NoError(t, engine.Check(back.Layout))

	_, _, err = toRecords("evt", orchestrator.Snapshot{Version: 2})
	assert.Error(t, err)
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("SEATING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SEATING_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(dsn, nil)
	require.NoError(t, err)
	defer s.Close()

	eventID := "test-" + uuid.NewString()
	got, err := s.Latest(ctx, eventID)
	require.NoError(t, err)
	assert.Nil(t, got)

	snap := snapshot(t, eventID)
	require.NoError(t, s.Publish(ctx, eventID, snap))
	require.NoError(t, s.Publish(ctx, eventID, snap))

	reissued := snap
	reissued.Eligible = append(slices.Clone(snap.Eligible), seating.Participant{ID: "late"})
	require.NoError(t, s.Publish(ctx, eventID, reissued))

	got, err = s.Latest(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, snap.Layout.ID, got.Layout.ID)
	assert.Len(t, got.Eligible, len(snap.Eligible)+1)

	hist, err := s.History(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}
