package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raro-dev/kernel/bus"
)

// snapshotInterval is the fixed cadence at which the WS stream pushes a
// full state snapshot (spec.md §6 "streams state snapshots every
// 250ms").
const snapshotInterval = 250 * time.Millisecond

// whitelistedEvents are the only bus event types relayed verbatim over
// the WS stream, alongside the periodic state snapshot.
var whitelistedEvents = map[bus.Type]bool{
	bus.AgentStarted:       true,
	bus.AgentCompleted:     true,
	bus.AgentFailed:        true,
	bus.SystemIntervention: true,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Kind    string      `json:"kind"` // "snapshot" | "event"
	State   interface{} `json:"state,omitempty"`
	Event   interface{} `json:"event,omitempty"`
}

// handleWebSocket streams periodic state snapshots plus whitelisted
// bus events for one run, closing once the run reaches a terminal
// status (spec.md §6 "closes on terminal").
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if _, ok := a.Runs.Get(runID); !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn("websocket upgrade failed", "run_id", runID, "error", err)
		return
	}
	defer conn.Close()

	sub := a.Scheduler.Bus.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.RunID != runID || !whitelistedEvents[ev.EventType] {
				continue
			}
			if err := conn.WriteJSON(wsMessage{Kind: "event", Event: ev}); err != nil {
				return
			}
		case <-ticker.C:
			run, ok := a.Runs.Get(runID)
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Kind: "snapshot", State: run}); err != nil {
				return
			}
			if run.Status.Terminal() {
				return
			}
		}
	}
}

