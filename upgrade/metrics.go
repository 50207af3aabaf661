package upgrade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "historynodes"

	passRun   = "run"
	passCheck = "check"
)

// Metrics of the history node passes, labelled by pass kind.
type Metrics struct {
	BlocksReplayed  *prometheus.CounterVec
	NodesWritten    prometheus.Counter
	EpochsCompleted *prometheus.CounterVec
	Height          *prometheus.GaugeVec
	Mismatches      prometheus.Counter
}

// NewMetrics creates the pass metrics, registered with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BlocksReplayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_replayed_total",
			Help:      "Blocks pushed into a rebuilt history tree.",
		}, []string{"pass"}),
		NodesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "nodes_written_total",
			Help:      "History nodes committed to the finalized state.",
		}),
		EpochsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "epochs_completed_total",
			Help:      "Network upgrade history trees fully processed.",
		}, []string{"pass"}),
		Height: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "height",
			Help:      "Height of the last block replayed.",
		}, []string{"pass"}),
		Mismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "check_failures_total",
			Help:      "Upgrades whose stored history nodes did not reproduce the expected root.",
		}),
	}
}
