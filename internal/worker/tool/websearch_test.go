package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebSearchTool_ParsesJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "golang" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []string{"a", "b"}})
	}))
	defer srv.Close()

	wt := NewWebSearchTool(srv.URL)
	out, err := wt.Call(context.Background(), map[string]interface{}{"query": "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status_code"] != 200 {
		t.Fatalf("unexpected status_code: %+v", out)
	}
	if _, ok := out["results"]; !ok {
		t.Fatalf("expected results field, got %+v", out)
	}
}

func TestWebSearchTool_MissingQueryErrors(t *testing.T) {
	wt := NewWebSearchTool("http://example.invalid")
	_, err := wt.Call(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestWebSearchTool_NoBackendConfiguredErrors(t *testing.T) {
	wt := NewWebSearchTool("")
	_, err := wt.Call(context.Background(), map[string]interface{}{"query": "x"})
	if err == nil {
		t.Fatal("expected error when no search backend is configured")
	}
}
