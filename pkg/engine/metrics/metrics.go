// Package metrics provides Prometheus metrics for the settlement and
// wagering engine.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics collects and exposes engine-related Prometheus metrics.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Settlement metrics
	SettlementsTotal *prometheus.CounterVec
	RatingDelta      prometheus.Histogram

	// Lifecycle metrics
	TransitionsTotal *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	MatchesScanned   prometheus.Gauge

	// Parlay metrics
	ParlaysTotal *prometheus.CounterVec
	ParlayLegs   prometheus.Histogram
	TokensSpent  prometheus.Counter

	// API metrics
	RequestsTotal *prometheus.CounterVec
}

// New creates a new engine metrics collector with its own registry.
func New() *EngineMetrics {
	registry := prometheus.NewRegistry()

	em := &EngineMetrics{
		registry: registry,

		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtside_settlements_total",
				Help: "Total number of settlement attempts",
			},
			[]string{"result"},
		),
		RatingDelta: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courtside_rating_delta",
				Help:    "Rating points moved per settlement",
				Buckets: []float64{0, 2, 4, 8, 12, 16, 20, 24, 28, 32},
			},
		),

		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtside_lifecycle_transitions_total",
				Help: "Total lifecycle transitions applied",
			},
			[]string{"type"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courtside_scheduler_tick_seconds",
				Help:    "Duration of one scheduler pass over all due matches",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		),
		MatchesScanned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "courtside_scheduler_matches_scanned",
				Help: "Matches examined on the most recent scheduler pass",
			},
		),

		ParlaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtside_parlays_total",
				Help: "Total parlay computations",
			},
			[]string{"status", "safe_bet"},
		),
		ParlayLegs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courtside_parlay_legs",
				Help:    "Leg count per computed parlay",
				Buckets: []float64{2, 3, 4, 5, 6, 7, 8, 10, 12},
			},
		),
		TokensSpent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "courtside_safe_bet_tokens_spent_total",
				Help: "Total safe-bet tokens spent",
			},
		),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtside_api_requests_total",
				Help: "Total API requests",
			},
			[]string{"endpoint", "code"},
		),
	}

	registry.MustRegister(
		em.SettlementsTotal,
		em.RatingDelta,
		em.TransitionsTotal,
		em.TickDuration,
		em.MatchesScanned,
		em.ParlaysTotal,
		em.ParlayLegs,
		em.TokensSpent,
		em.RequestsTotal,
	)

	return em
}

// Registry returns the prometheus registry.
func (em *EngineMetrics) Registry() *prometheus.Registry {
	return em.registry
}

// RecordSettlement records one settlement attempt and its rating delta.
func (em *EngineMetrics) RecordSettlement(result string, delta float64) {
	em.SettlementsTotal.WithLabelValues(result).Inc()
	if delta >= 0 {
		em.RatingDelta.Observe(delta)
	}
}

// RecordTransition records one applied lifecycle transition.
func (em *EngineMetrics) RecordTransition(transitionType string) {
	em.TransitionsTotal.WithLabelValues(transitionType).Inc()
}

// RecordTick records one scheduler pass.
func (em *EngineMetrics) RecordTick(durationSec float64, matches int) {
	em.TickDuration.Observe(durationSec)
	em.MatchesScanned.Set(float64(matches))
}

// RecordParlay records one parlay computation.
func (em *EngineMetrics) RecordParlay(status string, legs int, safeBet bool, tokensSpent int) {
	em.ParlaysTotal.WithLabelValues(status, strconv.FormatBool(safeBet)).Inc()
	if legs > 0 {
		em.ParlayLegs.Observe(float64(legs))
	}
	if tokensSpent > 0 {
		em.TokensSpent.Add(float64(tokensSpent))
	}
}

// RecordRequest records one API request.
func (em *EngineMetrics) RecordRequest(endpoint string, code int) {
	em.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// Global instance for convenience
var defaultMetrics *EngineMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *EngineMetrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
