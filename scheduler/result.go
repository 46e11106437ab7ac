package scheduler

import "strings"

// evaluateResult computes the three correctness signals of spec.md
// §4.6 item 8 from a worker's output text and the invoking agent's id.
type resultSignals struct {
	semanticNull      bool
	bypassed          bool
	protocolViolation bool
}

func evaluateResult(agentID, output string) resultSignals {
	sig := resultSignals{
		semanticNull: strings.Contains(output, "[STATUS: NULL]"),
		bypassed:     strings.Contains(output, "[BYPASS:"),
	}
	if !sig.bypassed {
		sig.protocolViolation = protocolViolation(agentID, output)
	}
	return sig
}

// protocolViolation enforces the per-role evidence requirement
// (spec.md §4.6 item 8): research_* must show evidence of web_search;
// analyze_*/coder_* must show evidence of execute_python. "Evidence"
// is a substring match on known tool-trace markers.
func protocolViolation(agentID, output string) bool {
	lower := strings.ToLower(agentID)
	switch {
	case strings.HasPrefix(lower, "research_"):
		return !strings.Contains(output, "[TOOL: web_search]")
	case strings.HasPrefix(lower, "analyze_"), strings.HasPrefix(lower, "coder_"):
		return !strings.Contains(output, "[TOOL: execute_python]")
	default:
		return false
	}
}
