// Package budget tracks the USD cost implied by token usage. It does
// not enforce the per-workflow token ceiling (spec.md §3's
// WorkflowConfig TokenBudget field); the scheduler loop checks that
// ceiling against RunState.TotalTokens.
//
// The Kernel never sees which concrete model a node's invocation
// resolved to — only the opaque tier string the operator chose
// (runstate.ModelTier) — so pricing here is per tier, not per model
// name, and is necessarily a blended input/output estimate rather than
// an exact per-call cost.
package budget

import "sync"

// TierPricing is the blended USD-per-1M-token rate for one model
// tier, used as (InputPer1M+OutputPer1M)/2 since invocation responses
// report a single combined token count.
type TierPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultTierPricing approximates each tier with the provider/model
// class a deployment would typically bind it to: fast-tier to a small
// fast model, reasoning-tier to a mid-weight general model,
// thinking-tier to a frontier reasoning model.
var defaultTierPricing = map[string]TierPricing{
	"fast-tier":      {InputPer1M: 0.15, OutputPer1M: 0.60},
	"reasoning-tier": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"thinking-tier":  {InputPer1M: 15.00, OutputPer1M: 75.00},
}

// DefaultPricing returns a copy of the built-in tier pricing table.
func DefaultPricing() map[string]TierPricing {
	out := make(map[string]TierPricing, len(defaultTierPricing))
	for k, v := range defaultTierPricing {
		out[k] = v
	}
	return out
}

// Tracker accumulates estimated USD cost per run. Safe for concurrent
// use by the scheduler's per-run goroutines.
type Tracker struct {
	mu      sync.Mutex
	pricing map[string]TierPricing
	byRun   map[string]float64
}

// NewTracker returns a Tracker using pricing (nil uses DefaultPricing).
func NewTracker(pricing map[string]TierPricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Tracker{pricing: pricing, byRun: make(map[string]float64)}
}

// Record estimates the USD cost of a tier invocation consuming tokens,
// adds it to runID's running total, and returns the incremental cost.
// An unrecognized tier (a custom per-node model string) falls back to
// reasoning-tier pricing, the general-purpose default.
func (t *Tracker) Record(runID, tier string, tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	p, ok := t.pricing[tier]
	if !ok {
		p = t.pricing["reasoning-tier"]
	}
	blendedPer1M := (p.InputPer1M + p.OutputPer1M) / 2
	cost := blendedPer1M * float64(tokens) / 1_000_000

	t.mu.Lock()
	t.byRun[runID] += cost
	t.mu.Unlock()
	return cost
}

// Total returns runID's cumulative estimated cost.
func (t *Tracker) Total(runID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byRun[runID]
}

// Forget discards runID's tracked cost, called once a run reaches a
// terminal status so the map doesn't grow unbounded across the
// process lifetime.
func (t *Tracker) Forget(runID string) {
	t.mu.Lock()
	delete(t.byRun, runID)
	t.mu.Unlock()
}
