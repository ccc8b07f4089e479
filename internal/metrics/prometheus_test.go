package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "")

	p.CommandApplied("Relocate", time.Millisecond)
	p.CommandApplied("Relocate", time.Millisecond)
	p.CommandRejected("Relocate", "conflict")
	p.Relocations(3)
	p.ActiveTables("evt", 4)
	p.ClientDropped()
	p.SinkDropped("redis")
	p.LayoutHalted("evt")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.applied.WithLabelValues("Relocate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rejected.WithLabelValues("Relocate", "conflict")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.relocations))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.activeTables.WithLabelValues("evt")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["seating_commands_applied_total"])
	assert.True(t, names["seating_clients_dropped_total"])
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
}
