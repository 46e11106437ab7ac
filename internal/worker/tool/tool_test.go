package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileTool_ReadsMountedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	rt := NewReadFileTool(dir)
	out, err := rt.Call(context.Background(), map[string]interface{}{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["content"] != "hello" {
		t.Fatalf("unexpected content: %+v", out)
	}
}

func TestReadFileTool_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	rt := NewReadFileTool(dir)
	_, err := rt.Call(context.Background(), map[string]interface{}{"path": "../../etc/passwd"})
	if err == nil {
		t.Fatal("expected error for missing file after base-name sanitization")
	}
}

func TestReadFileTool_MissingPathParameterErrors(t *testing.T) {
	rt := NewReadFileTool(t.TempDir())
	_, err := rt.Call(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing path parameter")
	}
}

func TestListFilesTool_ListsFilesNotDirectories(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "subdir"), 0o755)

	lt := NewListFilesTool(dir)
	out, err := lt.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files, _ := out["files"].([]string)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
}

func TestListFilesTool_MissingDirReturnsEmptyList(t *testing.T) {
	lt := NewListFilesTool(filepath.Join(t.TempDir(), "nope"))
	out, err := lt.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files, _ := out["files"].([]string)
	if len(files) != 0 {
		t.Fatalf("expected empty list, got %+v", files)
	}
}

func TestWriteFileTool_WritesFileUnderSessionDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	wt := NewWriteFileTool(dir)
	out, err := wt.Call(context.Background(), map[string]interface{}{"path": "out.txt", "content": "result"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["bytes_written"] != len("result") {
		t.Fatalf("unexpected bytes_written: %+v", out)
	}
	data, readErr := os.ReadFile(filepath.Join(dir, "out.txt"))
	if readErr != nil || string(data) != "result" {
		t.Fatalf("file not written as expected: %v %q", readErr, data)
	}
}

func TestExecutePythonTool_RequiresCodeParameter(t *testing.T) {
	pt := NewExecutePythonTool(t.TempDir(), "python3")
	_, err := pt.Call(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing code parameter")
	}
}

func TestRegistry_BuildSkipsUnknownNames(t *testing.T) {
	r := NewRegistry(t.TempDir(), "", "")
	tools := r.Build([]string{"read_file", "not_a_real_tool", "web_search"})
	if len(tools) != 2 {
		t.Fatalf("expected 2 recognized tools, got %d", len(tools))
	}
}

func TestMockTool_ReplaysResponsesThenRepeatsLast(t *testing.T) {
	mt := &MockTool{ToolName: "search_web", Responses: []map[string]interface{}{{"n": 1}, {"n": 2}}}
	ctx := context.Background()
	_, _ = mt.Call(ctx, nil)
	_, _ = mt.Call(ctx, nil)
	out, _ := mt.Call(ctx, nil)
	if out["n"] != 2 {
		t.Fatalf("expected repeated last response, got %+v", out)
	}
	if mt.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mt.CallCount())
	}
}
