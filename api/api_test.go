package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/bus"
	"github.com/raro-dev/kernel/invoker"
	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/scheduler"
	"github.com/raro-dev/kernel/store"
	"github.com/raro-dev/kernel/workspace"
)

func newTestAPI(t *testing.T, worker *httptest.Server) (*API, *httptest.Server) {
	t.Helper()
	st := store.NewMemStore()
	sigs := runstate.NewSignatureStore()
	asm := assembler.New(st, sigs, workspace.New(t.TempDir()))
	inv := invoker.New(worker.URL)
	runs := runstate.NewRegistry()
	graphs := scheduler.NewGraphRegistry()
	workflows := scheduler.NewWorkflowRegistry()
	sched := scheduler.New(runs, graphs, workflows, sigs, st, bus.New(8), asm, inv, nil, nil, nil)

	a := New(sched, runs, graphs, workflows, st, nil, func() string { return "fixed-run-id" })
	return a, httptest.NewServer(a.Router())
}

func TestHandleStart_CreatesRunAndReturnsID(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(invoker.Response{AgentID: "a", Success: true, Output: "ok"})
	}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	body, _ := json.Marshal(runstate.WorkflowConfig{ID: "wf1", Nodes: []runstate.NodeConfig{{ID: "a"}}})
	resp, err := http.Post(srv.URL+"/runtime/start", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /runtime/start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.RunID != "fixed-run-id" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestHandleStart_InvalidBodyIs400(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runtime/start", "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleState_UnknownRunIs404(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runtime/state?run_id=nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleResume_UnknownRunIs404AndPausedRunResumes(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(invoker.Response{AgentID: "a", Success: true, Output: "[STATUS: NULL]"})
	}))
	defer worker.Close()

	a, srv := newTestAPI(t, worker)
	defer srv.Close()

	body, _ := json.Marshal(runstate.WorkflowConfig{ID: "wf1", Nodes: []runstate.NodeConfig{{ID: "a"}}})
	startResp, _ := http.Post(srv.URL+"/runtime/start", "application/json", bytes.NewReader(body))
	startResp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if run, ok := a.Runs.Get("fixed-run-id"); ok && run.Status == runstate.StatusAwaitingApproval {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/runtime/not-the-run/resume", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run, got %d", resp.StatusCode)
	}

	resp2, err := http.Post(srv.URL+"/runtime/fixed-run-id/resume", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 resuming a paused run, got %d", resp2.StatusCode)
	}
}

func TestHandleResume_CompletedRunIs400(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(invoker.Response{AgentID: "a", Success: true, Output: "ok"})
	}))
	defer worker.Close()

	a, srv := newTestAPI(t, worker)
	defer srv.Close()

	body, _ := json.Marshal(runstate.WorkflowConfig{ID: "wf1", Nodes: []runstate.NodeConfig{{ID: "a"}}})
	startResp, _ := http.Post(srv.URL+"/runtime/start", "application/json", bytes.NewReader(body))
	startResp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if run, ok := a.Runs.Get("fixed-run-id"); ok && run.Status == runstate.StatusCompleted {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/runtime/fixed-run-id/resume", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 resuming a completed run, got %d", resp.StatusCode)
	}
}

func TestHandleStop_AlwaysReturns200(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runtime/whatever/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandleArtifact_NotFoundIs404(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runtime/r1/artifact/a1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleSignatures_ReturnsEmptyMapForUnknownRun(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer worker.Close()

	_, srv := newTestAPI(t, worker)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runtime/signatures?run_id=r1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out signaturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunID != "r1" {
		t.Fatalf("unexpected run id: %s", out.RunID)
	}
}
