package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks records solve and cache events as Prometheus metrics.
// It implements both SolveHooks and CacheHooks.
type PrometheusHooks struct {
	solves       *prometheus.CounterVec
	solveSeconds *prometheus.HistogramVec
	attempts     prometheus.Counter
	improvements prometheus.Counter
	bestCost     *prometheus.GaugeVec
	setSize      prometheus.Histogram
	cacheEvents  *prometheus.CounterVec
	cacheBytes   prometheus.Counter
}

// NewPrometheusHooks registers the metrics with reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mixorder_solves_total",
			Help: "Finished solves by mode and outcome.",
		}, []string{"mode", "outcome"}),
		solveSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mixorder_solve_duration_seconds",
			Help:    "Wall time per solve.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "mixorder_anneal_attempts_total",
			Help: "Annealing attempts run.",
		}),
		improvements: f.NewCounter(prometheus.CounterOpts{
			Name: "mixorder_anneal_improvements_total",
			Help: "Attempts that improved the best known cost.",
		}),
		bestCost: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mixorder_last_best_cost",
			Help: "Best cost of the most recent solve.",
		}, []string{"mode"}),
		setSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mixorder_set_tracks",
			Help:    "Tracks per solved set.",
			Buckets: []float64{2, 5, 10, 15, 20, 30, 50, 100, 200},
		}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mixorder_cache_events_total",
			Help: "Cache lookups and writes by key type and event.",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "mixorder_cache_written_bytes_total",
			Help: "Bytes written to the cache.",
		}),
	}
}

func (h *PrometheusHooks) OnSolveStart(_ context.Context, _ string, tracks int) {
	h.setSize.Observe(float64(tracks))
}

func (h *PrometheusHooks) OnAttempt(_ context.Context, _ int, _ float64, improved bool) {
	h.attempts.Inc()
	if improved {
		h.improvements.Inc()
	}
}

func (h *PrometheusHooks) OnSolveComplete(_ context.Context, mode string, _ int, res SolveResult, d time.Duration, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.Cached:
		outcome = "cached"
	}
	h.solves.WithLabelValues(mode, outcome).Inc()
	if err != nil {
		return
	}
	h.solveSeconds.WithLabelValues(mode).Observe(d.Seconds())
	h.bestCost.WithLabelValues(mode).Set(res.Cost)
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

var (
	_ SolveHooks = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
)
