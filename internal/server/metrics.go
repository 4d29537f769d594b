package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the correction server.
type Metrics struct {
	Sources        *prometheus.CounterVec
	Recomputations *prometheus.CounterVec
	EmptyBatches   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sources: f.NewCounterVec(prometheus.CounterOpts{
			Name: "classreport_sources_total",
			Help: "Uploaded source files by outcome (ingested or the warning kind).",
		}, []string{"outcome"}),
		Recomputations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "classreport_recomputations_total",
			Help: "Dataset versions created, by trigger.",
		}, []string{"trigger"}),
		EmptyBatches: f.NewCounter(prometheus.CounterOpts{
			Name: "classreport_empty_batches_total",
			Help: "Uploads rejected because no file produced any record.",
		}),
	}
}

func (m *Metrics) observeSources(ingested int, warnings []string) {
	if ingested > 0 {
		m.Sources.WithLabelValues("ingested").Add(float64(ingested))
	}
	for _, kind := range warnings {
		m.Sources.WithLabelValues(kind).Inc()
	}
}
