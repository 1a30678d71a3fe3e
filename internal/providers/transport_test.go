package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bashclaw/bashclaw/internal/backoff"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// fastPolicy keeps retry tests from sleeping.
func fastPolicy() backoff.Policy {
	return backoff.Policy{Initial: time.Millisecond, Factor: 2, JitterSeconds: 0, MaxAttempts: 3}
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
		case 2:
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
		default:
			w.Write([]byte(`{"stop_reason":"end_turn","content":[{"type":"text","text":"ok"}]}`))
		}
	}))
	defer server.Close()
	t.Setenv("ANTHROPIC_BASE_URL", server.URL)

	client := NewClient(WithPolicy(fastPolicy()))
	resp, err := client.Complete(context.Background(), &Request{
		Model:    "claude-sonnet-4-5",
		Messages: []protocol.Message{protocol.UserText("hi")},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if resp.Text() != "ok" {
		t.Errorf("text = %q", resp.Text())
	}
	if resp.StopReason != protocol.StopEndTurn {
		t.Errorf("stop_reason = %q", resp.StopReason)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv("ANTHROPIC_BASE_URL", server.URL)

	client := NewClient(WithPolicy(fastPolicy()))
	_, err := client.Complete(context.Background(), &Request{
		Model:    "claude-sonnet-4-5",
		Messages: []protocol.Message{protocol.UserText("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T", err)
	}
	if perr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", perr.Status)
	}
	if perr.Message != "invalid api key" {
		t.Errorf("message = %q", perr.Message)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestCompleteExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusTooManyRequests)
	}))
	defer server.Close()
	t.Setenv("ANTHROPIC_BASE_URL", server.URL)

	client := NewClient(WithPolicy(fastPolicy()))
	_, err := client.Complete(context.Background(), &Request{
		Model:    "claude-sonnet-4-5",
		Messages: []protocol.Message{protocol.UserText("hi")},
	})
	if !errors.Is(err, backoff.ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want attempts exhausted", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestCompleteSendsAnthropicHeaders(t *testing.T) {
	var gotKey, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.Write([]byte(`{"stop_reason":"end_turn","content":[]}`))
	}))
	defer server.Close()
	t.Setenv("ANTHROPIC_BASE_URL", server.URL)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	client := NewClient(WithPolicy(fastPolicy()))
	if _, err := client.Complete(context.Background(), &Request{
		Model:    "claude-sonnet-4-5",
		Messages: []protocol.Message{protocol.UserText("hi")},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if gotKey != "sk-ant-test" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header missing")
	}
}
