package tool

import (
	"context"
	"fmt"
	"os"
)

// ListFilesTool lists the files currently mounted in a node's session
// workspace directory.
type ListFilesTool struct {
	sessionDir string
}

func NewListFilesTool(sessionDir string) *ListFilesTool {
	return &ListFilesTool{sessionDir: sessionDir}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	entries, err := os.ReadDir(t.sessionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{"files": []string{}}, nil
		}
		return nil, fmt.Errorf("list_files: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return map[string]interface{}{"files": names}, nil
}
