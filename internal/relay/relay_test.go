package relay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestNames(t *testing.T) {
	r := New(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", time.Minute, nil)
	defer r.Close()
	assert.Equal(t, "redis", r.Name())
	assert.Equal(t, "seating:events:evt", r.Channel("evt"))
	assert.Equal(t, "seating:layout:evt", r.key("evt"))
}

func TestRelay_Redis(t *testing.T) {
	addr := os.Getenv("SEATING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SEATING_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer r.Close()

	eventID := "test-" + uuid.NewString()
	got, err := r.Latest(ctx, eventID)
	require.NoError(t, err)
	assert.Nil(t, got)

	updates, err := r.Subscribe(ctx, eventID)
	require.NoError(t, err)

	snap := orchestrator.Snapshot{Version: 3, Origin: "td", Layout: seating.NewLayout(eventID, seating.AlgorithmSelection{Name: seating.AlgorithmSnake}, time.Now())}
	require.NoError(t, r.Publish(ctx, eventID, snap))

	select {
	case s := <-updates:
		assert.Equal(t, int64(3), s.Version)
		assert.Equal(t, snap.Layout.ID, s.Layout.ID)
	case <-ctx.Done():
		t.Fatal("no relayed snapshot")
	}

	got, err = r.Latest(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "td", got.Origin)
}
