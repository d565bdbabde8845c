package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds the pipeline's Prometheus instrumentation.
type Collectors struct {
	Processed     prometheus.Counter
	Archived      prometheus.Counter
	Quarantined   prometheus.Counter
	ParseFailures *prometheus.CounterVec
}

// NewCollectors registers the pipeline counters with reg. Passing nil uses
// the default registerer.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collectors{
		Processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabcli",
			Name:      "items_processed_total",
			Help:      "Sources that completed the pipeline, any outcome.",
		}),
		Archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabcli",
			Name:      "items_archived_total",
			Help:      "Sources processed successfully and moved to archive.",
		}),
		Quarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabcli",
			Name:      "items_quarantined_total",
			Help:      "Sources routed to quarantine.",
		}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabcli",
			Name:      "parse_failures_total",
			Help:      "Cell parse failures during coercion, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.Processed, c.Archived, c.Quarantined, c.ParseFailures)
	return c
}

// observe records the transform metrics of one pipeline run.
func (c *Collectors) observe(m Metrics) {
	if c == nil {
		return
	}
	c.Processed.Inc()
	c.ParseFailures.WithLabelValues("date").Add(float64(m.DateParseFailures))
	c.ParseFailures.WithLabelValues("numeric").Add(float64(m.NumericParseFailures))
}
