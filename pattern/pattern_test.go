package pattern

import (
	"testing"

	"github.com/raro-dev/kernel/bus"
)

func TestDispatch_InterruptFiresFailRun(t *testing.T) {
	var gotRunID, gotAgentID, gotReason string
	h := Handlers{
		FailRun: func(runID, agentID, reason string) {
			gotRunID, gotAgentID, gotReason = runID, agentID, reason
		},
	}
	e := New(DefaultPatterns(), h)

	ev := bus.New("r1", bus.ToolCall, "a1", map[string]string{"tool": "fs_delete"})
	e.Dispatch(ev)

	if gotRunID != "r1" || gotAgentID != "a1" || gotReason == "" {
		t.Fatalf("expected FailRun invoked, got run=%q agent=%q reason=%q", gotRunID, gotAgentID, gotReason)
	}
}

func TestDispatch_NonMatchingToolCallIsIgnored(t *testing.T) {
	called := false
	h := Handlers{FailRun: func(string, string, string) { called = true }}
	e := New(DefaultPatterns(), h)

	ev := bus.New("r1", bus.ToolCall, "a1", map[string]string{"tool": "read_file"})
	e.Dispatch(ev)

	if called {
		t.Fatal("expected non-fs_delete tool call not to trigger Interrupt")
	}
}

func TestDispatch_AgentFailedRequestsApproval(t *testing.T) {
	var called bool
	h := Handlers{RequestApproval: func(runID, agentID, reason string) { called = true }}
	e := New(DefaultPatterns(), h)

	ev := bus.New("r1", bus.AgentFailed, "a1", map[string]string{"error": "boom"})
	e.Dispatch(ev)

	if !called {
		t.Fatal("expected AgentFailed to trigger RequestApproval")
	}
}

func TestDispatch_FirstMatchWins(t *testing.T) {
	var fired []string
	h := Handlers{
		FailRun:         func(string, string, string) { fired = append(fired, "interrupt") },
		RequestApproval: func(string, string, string) { fired = append(fired, "approval") },
	}
	patterns := []Pattern{
		{ID: "p1", TriggerEvent: string(bus.ToolCall), Condition: "*", Action: Action{Kind: ActionInterrupt}},
		{ID: "p2", TriggerEvent: string(bus.ToolCall), Condition: "*", Action: Action{Kind: ActionRequestApproval}},
	}
	e := New(patterns, h)

	e.Dispatch(bus.New("r1", bus.ToolCall, "a1", nil))

	if len(fired) != 1 || fired[0] != "interrupt" {
		t.Fatalf("expected only the first matching pattern to fire, got %v", fired)
	}
}

func TestLoadFromJSON(t *testing.T) {
	data := []byte(`[{"id":"p1","name":"n","trigger_event":"AgentFailed","condition":"*","action":{"kind":"RequestApproval","reason":"r"}}]`)
	patterns, err := LoadFromJSON(data)
	if err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	if len(patterns) != 1 || patterns[0].Action.Kind != ActionRequestApproval {
		t.Fatalf("unexpected parsed patterns: %+v", patterns)
	}
}
