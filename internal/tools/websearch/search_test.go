package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchUnavailableWithoutKeys(t *testing.T) {
	t.Setenv(BraveKeyEnv, "")
	t.Setenv(PerplexityKeyEnv, "")
	st := NewSearchTool()
	if st.Available() {
		t.Error("tool should be unavailable with no keys")
	}
}

func TestSearchBrave(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			t.Errorf("missing subscription token")
		}
		w.Write([]byte(`{"web":{"results":[{"title":"Go","url":"https://go.dev","description":"The Go language"}]}}`))
	}))
	defer server.Close()

	t.Setenv(BraveKeyEnv, "brave-key")
	t.Setenv(PerplexityKeyEnv, "")
	st := NewSearchTool(WithEndpoints(server.URL, ""))

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"golang"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Content, "go.dev") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestSearchFallsBackToPerplexity(t *testing.T) {
	brave := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer brave.Close()
	pplx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("missing bearer auth")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}]}`))
	}))
	defer pplx.Close()

	t.Setenv(BraveKeyEnv, "brave-key")
	t.Setenv(PerplexityKeyEnv, "pplx-key")
	st := NewSearchTool(WithEndpoints(brave.URL, pplx.URL))

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"meaning of life"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Content, "the answer") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	st := NewSearchTool()
	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.IsError {
		t.Errorf("result = %+v", res)
	}
}
