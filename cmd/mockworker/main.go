// Command mockworker is a reference external worker implementation:
// it speaks the Kernel's outbound invoke/cleanup contract (spec.md
// §4.8, §6) over HTTP, running the bundled provider adapters and
// tools against whichever API keys are present in its environment.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/internal/worker"
	"github.com/raro-dev/kernel/internal/worker/model"
	"github.com/raro-dev/kernel/internal/worker/model/anthropic"
	"github.com/raro-dev/kernel/internal/worker/model/google"
	"github.com/raro-dev/kernel/internal/worker/model/openai"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := getenv("WORKER_PORT", "9090")
	workspaceRoot := getenv("WORKSPACE_ROOT", "/tmp/kernel-workspace")
	searchBaseURL := getenv("SEARCH_BACKEND_URL", "")
	pythonBin := getenv("PYTHON_BIN", "python3")

	agent := worker.New(resolveModels(), workspaceRoot, searchBaseURL, pythonBin)

	mux := http.NewServeMux()
	mux.HandleFunc("/invoke", handleInvoke(agent, logger))
	mux.HandleFunc("/runtime/", handleCleanup(logger))

	addr := ":" + port
	logger.Info("mockworker listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// resolveModels builds the fast/reasoning/thinking tier bindings
// (spec.md §4.5 item 6) from whichever provider API keys are set,
// falling back to a scripted MockChatModel for a tier with no key so
// the worker is runnable with zero configuration.
func resolveModels() worker.Models {
	fallback := &model.MockChatModel{Responses: []model.ChatOut{{Text: "[STATUS: NULL]"}}}

	var fast, reasoning, thinking model.ChatModel = fallback, fallback, fallback

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		fast = openai.NewChatModel(key, "")
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		reasoning = anthropic.NewChatModel(key, "")
		thinking = anthropic.NewChatModel(key, "")
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" && reasoning == fallback {
		reasoning = google.NewChatModel(key, "")
	}

	return worker.Models{Fast: fast, Reasoning: reasoning, Thinking: thinking}
}

func handleInvoke(agent *worker.Agent, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload assembler.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
			return
		}

		resp := agent.Invoke(r.Context(), &payload)
		logger.Info("invoked", "run_id", payload.RunID, "agent_id", payload.AgentID, "success", resp.Success)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleCleanup answers the Invoker's best-effort DELETE
// {baseURL}/runtime/{run_id}/cleanup; the reference worker holds no
// per-run resources to release, so it only logs and acknowledges.
func handleCleanup(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		logger.Info("cleanup", "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
