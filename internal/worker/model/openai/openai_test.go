package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raro-dev/kernel/internal/worker/model"
)

type scriptedClient struct {
	outs  []model.ChatOut
	errs  []error
	calls int
}

func (c *scriptedClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return model.ChatOut{}, c.errs[i]
	}
	if i < len(c.outs) {
		return c.outs[i], nil
	}
	return model.ChatOut{}, nil
}

func TestNewChatModel_DefaultsModelNameWhenEmpty(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != defaultModelName {
		t.Fatalf("expected default model name, got %q", m.modelName)
	}
}

func TestChat_ReturnsClientResponseOnFirstSuccess(t *testing.T) {
	sc := &scriptedClient{outs: []model.ChatOut{{Text: "ok"}}}
	m := &ChatModel{client: sc, maxRetries: 3, retryDelay: time.Millisecond}
	out, err := m.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "ok" || sc.calls != 1 {
		t.Fatalf("unexpected out/calls: %+v %d", out, sc.calls)
	}
}

func TestChat_RetriesTransientErrorThenSucceeds(t *testing.T) {
	sc := &scriptedClient{
		errs: []error{errors.New("connection reset"), nil},
		outs: []model.ChatOut{{}, {Text: "recovered"}},
	}
	m := &ChatModel{client: sc, maxRetries: 3, retryDelay: time.Millisecond}
	out, err := m.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "recovered" || sc.calls != 2 {
		t.Fatalf("expected recovery on second attempt, got %+v calls=%d", out, sc.calls)
	}
}

func TestChat_DoesNotRetryNonTransientError(t *testing.T) {
	sc := &scriptedClient{errs: []error{errors.New("invalid request: bad schema")}}
	m := &ChatModel{client: sc, maxRetries: 3, retryDelay: time.Millisecond}
	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if sc.calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-transient error, got %d", sc.calls)
	}
}

func TestChat_GivesUpAfterMaxRetries(t *testing.T) {
	sc := &scriptedClient{errs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	m := &ChatModel{client: sc, maxRetries: 3, retryDelay: time.Millisecond}
	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if sc.calls != 4 {
		t.Fatalf("expected 1 initial + 3 retries = 4 calls, got %d", sc.calls)
	}
}

func TestChat_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &ChatModel{client: &scriptedClient{}, maxRetries: 3, retryDelay: time.Millisecond}
	_, err := m.Chat(ctx, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
