package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with collectors registered on reg.
type Prometheus struct {
	applied      *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	rejected     *prometheus.CounterVec
	relocations  prometheus.Counter
	activeTables *prometheus.GaugeVec
	dropped      prometheus.Counter
	sinkDropped  *prometheus.CounterVec
	halted       *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the seating collectors. A nil reg uses the default
// registerer and an empty namespace becomes "seating".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "seating"
	}
	p := &Prometheus{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_applied_total",
			Help:      "Committed layout commands by command type.",
		}, []string{"command"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent applying a committed command.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"command"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Rejected layout commands by command type and error kind.",
		}, []string{"command", "kind"}),
		relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocations_total",
			Help:      "Individual seat changes across all committed commands.",
		}),
		activeTables: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tables",
			Help:      "Active tables per event.",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_dropped_total",
			Help:      "Clients disconnected because their outbox was full.",
		}),
		sinkDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_snapshots_dropped_total",
			Help:      "Snapshots a sink could not keep up with.",
		}, []string{"sink"}),
		halted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_halted_total",
			Help:      "Layouts halted after an invariant violation.",
		}, []string{"event"}),
	}
	reg.MustRegister(p.applied, p.latency, p.rejected, p.relocations, p.activeTables, p.dropped, p.sinkDropped, p.halted)
	return p
}

func (p *Prometheus) CommandApplied(command string, took time.Duration) {
	p.applied.WithLabelValues(command).Inc()
	p.latency.WithLabelValues(command).Observe(took.Seconds())
}

func (p *Prometheus) CommandRejected(command, kind string) {
	p.rejected.WithLabelValues(command, kind).Inc()
}

func (p *Prometheus) Relocations(n int) { p.relocations.Add(float64(n)) }

func (p *Prometheus) ActiveTables(eventID string, n int) {
	p.activeTables.WithLabelValues(eventID).Set(float64(n))
}

func (p *Prometheus) ClientDropped() { p.dropped.Inc() }

func (p *Prometheus) SinkDropped(sink string) { p.sinkDropped.WithLabelValues(sink).Inc() }

func (p *Prometheus) LayoutHalted(eventID string) { p.halted.WithLabelValues(eventID).Inc() }
