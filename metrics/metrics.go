// Package metrics exposes the Kernel's Prometheus-compatible operational
// metrics: active run counts, per-node invocation latency, circuit
// breaker trips, delegation splices, and pattern-engine hits.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector registered under the
// "kernel" namespace.
//
// Metrics exposed:
//
//  1. active_runs (gauge): runs currently in the running status.
//  2. awaiting_approval_runs (gauge): runs paused for operator review.
//  3. invocation_latency_ms (histogram): per-node invocation duration,
//     labeled run_id, agent_id, outcome (success/circuit_break/error).
//  4. circuit_breaker_trips_total (counter): labeled run_id, reason.
//  5. delegation_splices_total (counter): labeled run_id, strategy.
//  6. pattern_hits_total (counter): labeled pattern_id.
//  7. tokens_total (counter): labeled run_id.
//  8. cost_usd_total (counter): labeled run_id, estimated USD cost.
type Metrics struct {
	activeRuns            prometheus.Gauge
	awaitingApprovalRuns  prometheus.Gauge
	invocationLatency     *prometheus.HistogramVec
	circuitBreakerTrips   *prometheus.CounterVec
	delegationSplices     *prometheus.CounterVec
	patternHits           *prometheus.CounterVec
	tokens                *prometheus.CounterVec
	costUSD               *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// New creates and registers every Kernel metric against registry. A nil
// registry uses prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.activeRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "kernel",
		Name:      "active_runs",
		Help:      "Number of runs currently in the running status",
	})

	m.awaitingApprovalRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "kernel",
		Name:      "awaiting_approval_runs",
		Help:      "Number of runs currently paused awaiting operator approval",
	})

	m.invocationLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kernel",
		Name:      "invocation_latency_ms",
		Help:      "Per-node invocation duration in milliseconds, dispatch to result",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"run_id", "agent_id", "outcome"})

	m.circuitBreakerTrips = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kernel",
		Name:      "circuit_breaker_trips_total",
		Help:      "Circuit breaker activations that paused a run for approval",
	}, []string{"run_id", "reason"})

	m.delegationSplices = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kernel",
		Name:      "delegation_splices_total",
		Help:      "Successful delegation graph splices",
	}, []string{"run_id", "strategy"})

	m.patternHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kernel",
		Name:      "pattern_hits_total",
		Help:      "Pattern engine rule matches dispatched to an action",
	}, []string{"pattern_id"})

	m.tokens = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kernel",
		Name:      "tokens_total",
		Help:      "Cumulative tokens consumed across node invocations",
	}, []string{"run_id"})

	m.costUSD = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kernel",
		Name:      "cost_usd_total",
		Help:      "Cumulative estimated USD cost of node invocations, by model tier pricing",
	}, []string{"run_id"})

	return m
}

// RecordInvocationLatency observes latency against the invocation
// histogram for (runID, agentID, outcome).
func (m *Metrics) RecordInvocationLatency(runID, agentID, outcome string, latency time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.invocationLatency.WithLabelValues(runID, agentID, outcome).Observe(float64(latency.Milliseconds()))
}

// IncrementCircuitBreakerTrips increments the trip counter for
// (runID, reason).
func (m *Metrics) IncrementCircuitBreakerTrips(runID, reason string) {
	if !m.isEnabled() {
		return
	}
	m.circuitBreakerTrips.WithLabelValues(runID, reason).Inc()
}

// IncrementDelegationSplices increments the splice counter for
// (runID, strategy).
func (m *Metrics) IncrementDelegationSplices(runID, strategy string) {
	if !m.isEnabled() {
		return
	}
	m.delegationSplices.WithLabelValues(runID, strategy).Inc()
}

// IncrementPatternHits increments the pattern-match counter for patternID.
func (m *Metrics) IncrementPatternHits(patternID string) {
	if !m.isEnabled() {
		return
	}
	m.patternHits.WithLabelValues(patternID).Inc()
}

// AddTokens adds n to the cumulative token counter for runID.
func (m *Metrics) AddTokens(runID string, n int) {
	if !m.isEnabled() || n <= 0 {
		return
	}
	m.tokens.WithLabelValues(runID).Add(float64(n))
}

// AddCost adds usd to the cumulative cost counter for runID.
func (m *Metrics) AddCost(runID string, usd float64) {
	if !m.isEnabled() || usd <= 0 {
		return
	}
	m.costUSD.WithLabelValues(runID).Add(usd)
}

// SetActiveRuns sets the active_runs gauge.
func (m *Metrics) SetActiveRuns(n int) {
	if !m.isEnabled() {
		return
	}
	m.activeRuns.Set(float64(n))
}

// SetAwaitingApprovalRuns sets the awaiting_approval_runs gauge.
func (m *Metrics) SetAwaitingApprovalRuns(n int) {
	if !m.isEnabled() {
		return
	}
	m.awaitingApprovalRuns.Set(float64(n))
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable stops metric recording (used in tests run without a scrape
// target).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable re-enables metric recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
