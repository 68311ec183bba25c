package tool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics holds the Prometheus collectors for the search adapter.
// A nil *SearchMetrics is valid and records nothing.
type SearchMetrics struct {
	searches *prometheus.CounterVec
	fetches  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	results  *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewSearchMetrics creates unregistered search collectors.
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchforge_searches_total",
				Help: "Total search calls by outcome",
			},
			[]string{"backend", "status"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchforge_search_fetches_total",
				Help: "Total per-query endpoint requests by outcome",
			},
			[]string{"backend", "status"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchforge_search_dropped_results_total",
				Help: "Result items discarded for missing required fields",
			},
			[]string{"backend"},
		),
		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchforge_search_results_returned",
				Help:    "Number of results returned per search call",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"backend"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchforge_search_duration_seconds",
				Help:    "Search call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
	}
}

// Collectors returns every collector for registration.
func (m *SearchMetrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.searches, m.fetches, m.dropped, m.results, m.duration}
}

// MustRegister registers every collector with reg.
func (m *SearchMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Collectors()...)
}

func (m *SearchMetrics) observeFetch(backend string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(backend, statusLabel(err)).Inc()
}

func (m *SearchMetrics) observeSearch(backend string, returned, dropped int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(backend, statusLabel(err)).Inc()
	m.duration.WithLabelValues(backend).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.results.WithLabelValues(backend).Observe(float64(returned))
	if dropped > 0 {
		m.dropped.WithLabelValues(backend).Add(float64(dropped))
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
