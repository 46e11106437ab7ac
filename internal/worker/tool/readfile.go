package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFileTool reads a file mounted into the session's workspace
// directory. Input is restricted to a base name, not an arbitrary
// path, so a node can never read outside its session directory.
type ReadFileTool struct {
	sessionDir string
}

// NewReadFileTool scopes the tool to sessionDir.
func NewReadFileTool(sessionDir string) *ReadFileTool {
	return &ReadFileTool{sessionDir: sessionDir}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	name, ok := input["path"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("read_file: path parameter required (string)")
	}

	path := filepath.Join(t.sessionDir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read_file: %w", err)
	}

	return map[string]interface{}{"content": string(data), "path": name}, nil
}
