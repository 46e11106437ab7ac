package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/raro-dev/kernel/runstate"
)

// BestEffort wraps a Store so that SaveState/SaveArtifact failures are
// logged and swallowed rather than propagated, matching spec.md §4.2:
// "Persistence is best-effort: failure to reach the durable KV must
// log and continue — no in-memory operation blocks on the KV except
// explicit reads." Reads (LoadActive/LoadState/LoadArtifact) still
// return their error: a caller that asked to read needs to know it
// didn't get data.
type BestEffort struct {
	Store
	logger *slog.Logger
}

// WrapBestEffort returns a BestEffort around inner. A nil logger uses
// slog.Default().
func WrapBestEffort(inner Store, logger *slog.Logger) *BestEffort {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestEffort{Store: inner, logger: logger}
}

// SaveState persists state, logging and continuing on error.
func (b *BestEffort) SaveState(ctx context.Context, state *runstate.RunState) error {
	if err := b.Store.SaveState(ctx, state); err != nil {
		b.logger.Warn("persistence: save_state failed", "run_id", state.RunID, "error", err)
	}
	return nil
}

// SaveArtifact persists an artifact, logging and continuing on error.
func (b *BestEffort) SaveArtifact(ctx context.Context, runID, agentID string, data []byte, ttl time.Duration) error {
	if err := b.Store.SaveArtifact(ctx, runID, agentID, data, ttl); err != nil {
		b.logger.Warn("persistence: save_artifact failed", "run_id", runID, "agent_id", agentID, "error", err)
	}
	return nil
}
