package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gertlabs/gert/llm"
)

func TestChatSplitsSystemPromptAndParsesText(t *testing.T) {
	var got AnthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") != apiVersion {
			t.Fatalf("missing auth headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude","content":[{"type":"text","text":"Hello"},{"type":"text","text":" there"}],"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":2}}`))
	}))
	defer srv.Close()

	client, err := NewClient(llm.WithAPIKey("k"), llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: llm.StringPtr("be brief")},
			{Role: llm.RoleUser, Content: llm.StringPtr("hi")},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got.System != "be brief" {
		t.Fatalf("expected system prompt to move to the system field, got %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.MaxTokens != 4096 {
		t.Fatalf("expected default max tokens, got %d", got.MaxTokens)
	}

	msg, _ := llm.FirstMessage(resp)
	if llm.GetStringValue(msg.Content) != "Hello there" {
		t.Fatalf("unexpected content %q", llm.GetStringValue(msg.Content))
	}
	if resp.Usage.TotalTokens != 7 {
		t.Fatalf("expected 7 tokens, got %d", resp.Usage.TotalTokens)
	}
}
