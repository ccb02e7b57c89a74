package history

import (
	"encoding/json"
	"testing"

	"github.com/gertlabs/gert/llm"
)

func TestLLMMessageConversion(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: llm.StringPtr("sys")},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: "call_1", Type: "function",
			Function: llm.FunctionCall{Name: "web_search", Arguments: json.RawMessage(`"{\"query\":\"x\"}"`)},
		}}},
		{Role: llm.RoleTool, Name: "web_search", ToolCallID: "call_1", Content: llm.StringPtr(`{"results":[]}`)},
	}

	hist := FromLLMMessages(in)
	if hist[1].Content != nil {
		t.Fatalf("expected nil content for tool-call message")
	}
	tc := hist[1].ToolCalls[0]
	if tc.Name != "web_search" || tc.Arguments["query"] != "x" || tc.ID != "call_1" {
		t.Fatalf("unexpected tool call %+v", tc)
	}

	back := ToLLMMessages(hist)
	if string(back[1].ToolCalls[0].Function.Arguments) != `{"query":"x"}` {
		t.Fatalf("unexpected arguments %s", back[1].ToolCalls[0].Function.Arguments)
	}
	if back[2].Name != "web_search" || back[2].ToolCallID != "call_1" || back[2].Role != llm.RoleTool {
		t.Fatalf("unexpected tool message %+v", back[2])
	}
}
