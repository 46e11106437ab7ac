// Package api implements the Kernel's external HTTP surface: the
// run-control REST endpoints and the WebSocket run stream (spec.md §6).
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/scheduler"
	"github.com/raro-dev/kernel/store"
)

// API wires the HTTP router to the scheduler and its collaborators.
type API struct {
	Scheduler *scheduler.Scheduler
	Runs      *runstate.Registry
	Graphs    *scheduler.GraphRegistry
	Workflows *scheduler.WorkflowRegistry
	Store     store.Store
	Logger    *slog.Logger

	runIDGen func() string
}

// New returns an API with routes ready to mount. runIDGen generates the
// id for a freshly submitted workflow; pass nil to use a random UUID.
func New(s *scheduler.Scheduler, runs *runstate.Registry, graphs *scheduler.GraphRegistry, workflows *scheduler.WorkflowRegistry, st store.Store, logger *slog.Logger, runIDGen func() string) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if runIDGen == nil {
		runIDGen = newRunID
	}
	return &API{Scheduler: s, Runs: runs, Graphs: graphs, Workflows: workflows, Store: st, Logger: logger, runIDGen: runIDGen}
}

// Router builds the chi mux for every route in spec.md §6.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/runtime/start", a.handleStart)
	r.Get("/runtime/state", a.handleState)
	r.Post("/runtime/{run_id}/agent/{agent_id}/invoke", a.handleDryRunInvoke)
	r.Post("/runtime/{run_id}/resume", a.handleResume)
	r.Post("/runtime/{run_id}/stop", a.handleStop)
	r.Get("/runtime/signatures", a.handleSignatures)
	r.Get("/runtime/{run_id}/artifact/{agent_id}", a.handleArtifact)
	r.Get("/ws/runtime/{run_id}", a.handleWebSocket)
	return r
}

type startResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id"`
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request) {
	var wf runstate.WorkflowConfig
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow config: "+err.Error())
		return
	}

	runID := a.runIDGen()
	if err := a.Scheduler.Start(r.Context(), runID, &wf); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, startResponse{Success: true, RunID: runID})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	run, ok := a.Runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *API) handleDryRunInvoke(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	agentID := chi.URLParam(r, "agent_id")

	g, ok := a.Graphs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "graph not present for run")
		return
	}
	wf, ok := a.Workflows.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "workflow config not present for run")
		return
	}
	run, ok := a.Runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	node, ok := wf.NodeByID(agentID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent id")
		return
	}

	payload, err := a.Scheduler.Assembler.Assemble(r.Context(), g, wf, run, node)
	if err != nil {
		var drought *assembler.ErrContextDrought
		if errors.As(err, &drought) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, ok := a.Runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	if run.Status != runstate.StatusAwaitingApproval {
		writeError(w, http.StatusBadRequest, "run is not paused")
		return
	}
	if err := a.Scheduler.Resume(r.Context(), runID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	a.Scheduler.Stop(runID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type signaturesResponse struct {
	RunID      string            `json:"run_id"`
	Signatures map[string]string `json:"signatures"`
}

func (a *API) handleSignatures(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	writeJSON(w, http.StatusOK, signaturesResponse{
		RunID:      runID,
		Signatures: a.Scheduler.Signatures.All(runID),
	})
}

func (a *API) handleArtifact(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	agentID := chi.URLParam(r, "agent_id")

	data, err := a.Store.LoadArtifact(r.Context(), runID, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no artifact stored")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
