// Package invoker implements the Remote Invoker (spec.md §4.8): a
// single outbound JSON RPC to the worker's /invoke endpoint per node
// dispatch, plus a fire-and-forget cleanup DELETE on terminal states.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/raro-dev/kernel/assembler"
)

// Response is the worker's reply to one /invoke call (spec.md §6
// "Outbound worker RPC").
type Response struct {
	AgentID         string          `json:"agent_id"`
	Success         bool            `json:"success"`
	Output          string          `json:"output,omitempty"`
	Error           string          `json:"error,omitempty"`
	TokensUsed      int             `json:"tokens_used"`
	ThoughtSignature string         `json:"thought_signature,omitempty"`
	InputTokens     int             `json:"input_tokens"`
	OutputTokens    int             `json:"output_tokens"`
	CacheHit        bool            `json:"cache_hit"`
	LatencyMS       int64           `json:"latency_ms"`
	CachedContentID string          `json:"cached_content_id,omitempty"`
	ArtifactStored  bool            `json:"artifact_stored,omitempty"`
	Delegation      *DelegationWire `json:"delegation,omitempty"`
}

// DelegationWire is the on-the-wire shape of a worker-issued
// DelegationRequest (spec.md §4.7); decoded into the scheduler's
// internal DelegationRequest type before splicing.
type DelegationWire struct {
	Reason   string            `json:"reason"`
	Strategy string            `json:"strategy"`
	NewNodes []json.RawMessage `json:"new_nodes"`
}

// Invoker makes the outbound calls to the worker identified by
// baseURL. Connection pooling is disabled (spec.md §4.8: "Connection
// pooling is disabled to avoid cross-run resource bleed") — every
// request dials fresh rather than reusing a keep-alive connection
// shared across runs.
type Invoker struct {
	baseURL string
	client  *http.Client
}

// New returns an Invoker targeting baseURL (e.g.
// "http://agent-host:agent-port").
func New(baseURL string) *Invoker {
	transport := &http.Transport{DisableKeepAlives: true}
	return &Invoker{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport, Timeout: 0},
	}
}

// Invoke POSTs payload to {baseURL}/invoke and parses the response.
func (i *Invoker) Invoke(ctx context.Context, payload *assembler.Payload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("invoker: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invoker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoker: transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("invoker: worker returned status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invoker: decode response: %w", err)
	}
	return &out, nil
}

// Cleanup fires a best-effort DELETE to {baseURL}/runtime/{runID}/cleanup
// on terminal states, to release worker-side resources (spec.md §4.8).
// It never blocks the caller beyond a short bounded timeout and
// ignores its own errors: cleanup failing is an observability concern,
// never a scheduler-correctness one.
func (i *Invoker) Cleanup(runID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/runtime/%s/cleanup", i.baseURL, runID), nil)
		if err != nil {
			return
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}
