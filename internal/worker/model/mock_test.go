package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockChatModel_ReturnsConfiguredResponse(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "hello"}}}
	out, err := mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "hello" {
		t.Errorf("got %q", out.Text)
	}
}

func TestMockChatModel_RepeatsLastResponseWhenExhausted(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
	ctx := context.Background()
	_, _ = mock.Chat(ctx, nil, nil)
	_, _ = mock.Chat(ctx, nil, nil)
	out, _ := mock.Chat(ctx, nil, nil)
	if out.Text != "second" {
		t.Errorf("expected repeated last response, got %q", out.Text)
	}
}

func TestMockChatModel_ReturnsConfiguredError(t *testing.T) {
	mock := &MockChatModel{Err: errors.New("boom")}
	_, err := mock.Chat(context.Background(), nil, nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestMockChatModel_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := &MockChatModel{Responses: []ChatOut{{Text: "unreachable"}}}
	_, err := mock.Chat(ctx, nil, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestMockChatModel_TracksCallHistoryAndCount(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "a"}}
	tools := []ToolSpec{{Name: "web_search"}}
	_, _ = mock.Chat(ctx, msgs, tools)
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if len(mock.Calls) != 1 || mock.Calls[0].Tools[0].Name != "web_search" {
		t.Fatalf("unexpected call history: %+v", mock.Calls)
	}
	mock.Reset()
	if mock.CallCount() != 0 {
		t.Fatal("expected call history cleared after Reset")
	}
}
