package history

import (
	"encoding/json"

	"github.com/gertlabs/gert/llm"
)

// FromLLMMessages converts LLM messages to history messages
func FromLLMMessages(llmMessages []llm.Message) []Message {
	messages := make([]Message, len(llmMessages))
	for i, msg := range llmMessages {
		messages[i] = Message{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}

		if len(msg.ToolCalls) > 0 {
			messages[i].ToolCalls = make([]ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				args, _ := llm.NormalizeToolArguments(tc.Function.Arguments)
				messages[i].ToolCalls[j] = ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: args,
				}
			}
		}
	}
	return messages
}

// ToLLMMessages converts history messages to LLM messages
func ToLLMMessages(histMessages []Message) []llm.Message {
	messages := make([]llm.Message, len(histMessages))
	for i, msg := range histMessages {
		messages[i] = llm.Message{
			Role:       llm.Role(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}

		if len(msg.ToolCalls) > 0 {
			messages[i].ToolCalls = make([]llm.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil || tc.Arguments == nil {
					args = []byte("{}")
				}
				messages[i].ToolCalls[j] = llm.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: llm.FunctionCall{
						Name:      tc.Name,
						Arguments: args,
					},
				}
			}
		}
	}
	return messages
}
