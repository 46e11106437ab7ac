package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/store"
)

func TestNewStore_EmptyURLUsesMemStore(t *testing.T) {
	st, err := newStore("")
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	if _, ok := st.(*store.MemStore); !ok {
		t.Fatalf("expected *store.MemStore for empty REDIS_URL, got %T", st)
	}
}

func TestRehydrateRuns_ForceFailsAndDropsFromActiveSet(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()

	run := runstate.New("r1", "wf1")
	_ = run.SetStatus(runstate.StatusRunning)
	if err := st.SaveState(ctx, run); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	runs := runstate.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rehydrateRuns(ctx, st, runs, logger)

	got, ok := runs.Get("r1")
	if !ok {
		t.Fatal("expected rehydrated run registered in runs")
	}
	if got.Status != runstate.StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}

	restored, err := st.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(restored) != 0 {
		t.Fatalf("expected run dropped from active index after re-persisting, got %v", restored)
	}
}
