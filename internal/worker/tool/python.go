package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExecutePythonTool runs a short Python snippet in the node's session
// directory and captures its stdout/stderr, satisfying the evidence
// analyze_*/coder_* nodes must produce (spec.md §4.6 item 8).
type ExecutePythonTool struct {
	sessionDir string
	pythonBin  string
}

// NewExecutePythonTool scopes execution to sessionDir as the process
// working directory. pythonBin defaults to "python3" if empty.
func NewExecutePythonTool(sessionDir, pythonBin string) *ExecutePythonTool {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &ExecutePythonTool{sessionDir: sessionDir, pythonBin: pythonBin}
}

func (t *ExecutePythonTool) Name() string { return "execute_python" }

func (t *ExecutePythonTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	code, ok := input["code"].(string)
	if !ok || code == "" {
		return nil, fmt.Errorf("execute_python: code parameter required (string)")
	}

	cmd := exec.CommandContext(ctx, t.pythonBin, "-c", code)
	cmd.Dir = t.sessionDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := map[string]interface{}{
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	}
	if runErr != nil {
		result["error"] = runErr.Error()
	}
	return result, nil
}
