package assembler

import "strings"

// nullMarker is the sentinel a worker embeds in its output text to
// report "nothing to hand downstream" (spec.md §4.5 item 4 and §4.6
// item 8's semantic_null signal share this marker).
const nullMarker = "[STATUS: NULL]"

// IsDrought reports whether a node's assembled context fails the
// pre-flight drought check (spec.md §4.5 item 4): the node has
// dependencies, and either no context text was gathered at all, or
// every piece of gathered upstream text carries the null marker, and
// no files were mounted.
func IsDrought(hasDependencies bool, contextTexts []string, mountedFiles []string) bool {
	if !hasDependencies {
		return false
	}
	if len(contextTexts) == 0 {
		return len(mountedFiles) == 0
	}
	allNull := true
	for _, t := range contextTexts {
		if !strings.Contains(t, nullMarker) {
			allNull = false
			break
		}
	}
	return allNull && len(mountedFiles) == 0
}

// ErrContextDrought is returned by Assemble when IsDrought holds; the
// scheduler must treat this as a pause (request_approval), not a
// failure (spec.md §4.5 item 4: "abort the invocation with an error;
// the scheduler treats abort as pause, not failure").
type ErrContextDrought struct {
	AgentID string
}

func (e *ErrContextDrought) Error() string {
	return "assembler: context drought for agent " + e.AgentID
}
