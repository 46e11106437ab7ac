package scheduler

import "testing"

func TestEvaluateResult_SemanticNull(t *testing.T) {
	sig := evaluateResult("worker_1", "some output [STATUS: NULL] trailing")
	if !sig.semanticNull {
		t.Fatal("expected semanticNull true")
	}
}

func TestEvaluateResult_BypassSkipsProtocolCheck(t *testing.T) {
	sig := evaluateResult("research_1", "[BYPASS: no tools needed] answer text")
	if sig.protocolViolation {
		t.Fatal("bypassed output must not be flagged as a protocol violation")
	}
}

func TestEvaluateResult_ResearchRoleRequiresWebSearchEvidence(t *testing.T) {
	sig := evaluateResult("research_topic", "answer with no tool trace")
	if !sig.protocolViolation {
		t.Fatal("expected protocol violation for research role missing web_search evidence")
	}

	sig = evaluateResult("research_topic", "[TOOL: web_search] found it, answer is X")
	if sig.protocolViolation {
		t.Fatal("did not expect protocol violation once web_search evidence is present")
	}
}

func TestEvaluateResult_AnalyzeAndCoderRolesRequireExecutePythonEvidence(t *testing.T) {
	for _, id := range []string{"analyze_data", "coder_impl"} {
		sig := evaluateResult(id, "no trace here")
		if !sig.protocolViolation {
			t.Fatalf("%s: expected protocol violation missing execute_python evidence", id)
		}
		sig = evaluateResult(id, "[TOOL: execute_python] computed result")
		if sig.protocolViolation {
			t.Fatalf("%s: did not expect protocol violation with execute_python evidence", id)
		}
	}
}

func TestEvaluateResult_UnconstrainedRoleNeverViolatesProtocol(t *testing.T) {
	sig := evaluateResult("summarizer_final", "plain prose output, no tool markers")
	if sig.protocolViolation {
		t.Fatal("a role with no evidence requirement must never be flagged")
	}
}
