package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache traffic per region.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	staleFills    *prometheus.CounterVec
	errors        *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewMetrics registers the cache collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunevault_cache_hits_total",
			Help: "Cache lookups served from the cache",
		}, []string{"region"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunevault_cache_misses_total",
			Help: "Cache lookups that fell through to the store",
		}, []string{"region"}),
		staleFills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunevault_cache_stale_fills_total",
			Help: "Fills dropped because the bucket was invalidated during the load",
		}, []string{"region"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunevault_cache_backend_errors_total",
			Help: "Cache backend operations that failed",
		}, []string{"op"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunevault_cache_invalidated_buckets_total",
			Help: "Buckets cleared by committed writes",
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.staleFills, m.errors, m.invalidations)
	return m
}

func (m *Metrics) hit(r Region) {
	if m != nil {
		m.hits.WithLabelValues(string(r)).Inc()
	}
}

func (m *Metrics) miss(r Region) {
	if m != nil {
		m.misses.WithLabelValues(string(r)).Inc()
	}
}

func (m *Metrics) staleFill(r Region) {
	if m != nil {
		m.staleFills.WithLabelValues(string(r)).Inc()
	}
}

func (m *Metrics) backendError(op string) {
	if m != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) invalidated(n int) {
	if m != nil {
		m.invalidations.Add(float64(n))
	}
}
