package assembler

import "strings"

// baseTools are unconditionally present on every node (spec.md §4.5
// item 7: "always add read_file and list_files").
var baseTools = []string{"read_file", "list_files"}

// ProvisionTools computes the final additive tool list for a node
// (spec.md §4.5 item 7): declared tools, plus base tools, plus
// capability tools inferred from an id-substring match, plus
// execute_python when dynamic artifact mounts are present. Never
// removes a declared tool; order is not significant, duplicates are
// collapsed.
func ProvisionTools(agentID string, declared []string, hasDynamicMounts bool) []string {
	set := make(map[string]bool, len(declared)+len(baseTools))
	var order []string
	add := func(tool string) {
		if !set[tool] {
			set[tool] = true
			order = append(order, tool)
		}
	}

	for _, t := range declared {
		add(t)
	}
	for _, t := range baseTools {
		add(t)
	}

	lower := strings.ToLower(agentID)
	switch {
	case strings.Contains(lower, "master_"), strings.Contains(lower, "orchestrator"):
		add("web_search")
		add("execute_python")
		add("write_file")
	default:
		if strings.Contains(lower, "research") || strings.HasPrefix(lower, "web_") {
			add("web_search")
		}
		if strings.Contains(lower, "analy") || strings.Contains(lower, "code") || strings.Contains(lower, "math") {
			add("execute_python")
		}
		if strings.Contains(lower, "code") || strings.Contains(lower, "writ") {
			add("write_file")
		}
	}

	if hasDynamicMounts {
		add("execute_python")
	}

	return order
}
