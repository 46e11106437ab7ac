// Command kernel is the orchestration server's entrypoint: it loads
// configuration from the environment, wires persistence, the event
// bus, the pattern engine, the scheduler, and the HTTP/WS API
// together, and serves (spec.md §6).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/raro-dev/kernel/api"
	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/bus"
	kernelconfig "github.com/raro-dev/kernel/config"
	"github.com/raro-dev/kernel/invoker"
	"github.com/raro-dev/kernel/metrics"
	"github.com/raro-dev/kernel/pattern"
	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/scheduler"
	"github.com/raro-dev/kernel/store"
	"github.com/raro-dev/kernel/workspace"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := kernelconfig.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background()) //nolint:errcheck // best-effort on exit

	st, err := newStore(cfg.RedisURL)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	mtr := metrics.New(registry)

	b := bus.New(bus.DefaultBuffer)
	b.AddEmitter(bus.NewLogEmitter(logger))
	b.AddEmitter(bus.NewOTelEmitter(otel.Tracer("kernel")))

	sigs := runstate.NewSignatureStore()
	runs := runstate.NewRegistry()
	rehydrateRuns(context.Background(), st, runs, logger)
	graphs := scheduler.NewGraphRegistry()
	workflows := scheduler.NewWorkflowRegistry()
	ws := workspace.New(cfg.WorkspaceRoot)
	asm := assembler.New(st, sigs, ws)
	inv := invoker.New(cfg.AgentBaseURL())

	var puppet scheduler.PuppetWaiter
	if cfg.PuppetMode {
		if cfg.RedisURL == "" {
			logger.Error("puppet mode requires REDIS_URL")
			os.Exit(1)
		}
		opt, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Error("puppet mode redis url", "error", parseErr)
			os.Exit(1)
		}
		puppet = scheduler.NewRedisPuppetWaiter(redis.NewClient(opt), 0)
	}

	sched := scheduler.New(runs, graphs, workflows, sigs, st, b, asm, inv, puppet, logger, mtr)

	patterns := loadPatterns(cfg.PatternFile, logger)
	engine := pattern.New(patterns, pattern.Handlers{
		FailRun:         sched.FailRun,
		RequestApproval: sched.RequestApproval,
		SpawnAgent:      sched.SpawnAgent,
		OnHit:           mtr.IncrementPatternHits,
	})
	patternSub := b.Subscribe()
	go engine.Run(patternSub)

	a := api.New(sched, runs, graphs, workflows, st, logger, nil)

	mux := http.NewServeMux()
	mux.Handle("/", a.Router())
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := ":" + strconv.Itoa(cfg.Port)
	logger.Info("kernel listening", "addr", addr, "puppet_mode", cfg.PuppetMode)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newStore selects the durable Redis-backed store when redisURL is
// set, falling back to the in-memory store otherwise (spec.md §6:
// "REDIS_URL ... persistence disabled if unset").
func newStore(redisURL string) (store.Store, error) {
	if redisURL == "" {
		return store.NewMemStore(), nil
	}
	return store.NewRedisStore(redisURL)
}

// rehydrateRuns runs crash-time rehydration at boot (spec.md §4.2):
// every run the store's active-runs index still lists is loaded,
// force-failed by Store.LoadActive's rehydration policy, re-persisted
// so it drops out of the active-runs index (and picks up the
// terminal-state TTL), and registered in runs so GET /runtime/state
// can report it without waiting for a run to be started first.
func rehydrateRuns(ctx context.Context, st store.Store, runs *runstate.Registry, logger *slog.Logger) {
	restored, err := st.LoadActive(ctx)
	if err != nil {
		logger.Error("rehydration: load_active failed", "error", err)
		return
	}
	for _, run := range restored {
		if err := st.SaveState(ctx, run); err != nil {
			logger.Warn("rehydration: save_state failed", "run_id", run.RunID, "error", err)
		}
		runs.Insert(run)
		logger.Warn("rehydration: run force-failed on restart", "run_id", run.RunID)
	}
}

// loadPatterns reads the configured pattern file, falling back to the
// hard-coded defaults on any IO or parse error (spec.md §4.4).
func loadPatterns(path string, logger *slog.Logger) []pattern.Pattern {
	if path == "" {
		return pattern.DefaultPatterns()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("pattern file unreadable, using defaults", "path", path, "error", err)
		return pattern.DefaultPatterns()
	}
	patterns, err := pattern.LoadFromJSON(data)
	if err != nil {
		logger.Warn("pattern file invalid, using defaults", "path", path, "error", err)
		return pattern.DefaultPatterns()
	}
	return patterns
}
