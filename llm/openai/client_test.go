package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gertlabs/gert/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestChatSendsBearerAndParsesResponse(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Paris"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(llm.WithAPIKey("k"), llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Chat(context.Background(), &llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: llm.StringPtr("capital of France?")}},
		MaxTokens:   100,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	msg, _ := llm.FirstMessage(resp)
	if llm.GetStringValue(msg.Content) != "Paris" {
		t.Fatalf("unexpected content %q", llm.GetStringValue(msg.Content))
	}

	if body["model"] != defaultModel {
		t.Fatalf("expected default model, got %v", body["model"])
	}
	if _, ok := body["max_completion_tokens"]; !ok {
		t.Fatalf("gpt-5 requests must use max_completion_tokens: %v", body)
	}
	if _, ok := body["temperature"]; ok {
		t.Fatalf("gpt-5 requests must not carry temperature: %v", body)
	}
}

func TestChatDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	client, _ := NewGrokClient(llm.WithAPIKey("k"), llm.WithBaseURL(srv.URL))
	_, err := client.Chat(context.Background(), &llm.ChatRequest{})

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Provider != "Grok" || apiErr.Message != "overloaded" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}
