package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileTool writes a file into the session's workspace directory,
// making it available to downstream nodes via their mounted file_paths
// (spec.md §4.5 item 3).
type WriteFileTool struct {
	sessionDir string
}

func NewWriteFileTool(sessionDir string) *WriteFileTool {
	return &WriteFileTool{sessionDir: sessionDir}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	name, ok := input["path"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("write_file: path parameter required (string)")
	}
	content, _ := input["content"].(string)

	if err := os.MkdirAll(t.sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("write_file: %w", err)
	}
	path := filepath.Join(t.sessionDir, filepath.Base(name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write_file: %w", err)
	}

	return map[string]interface{}{"path": name, "bytes_written": len(content)}, nil
}
