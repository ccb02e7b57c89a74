package llm

import (
	"context"
)

// Client defines the interface for LLM providers. Implementations are safe
// for concurrent use and are not reconfigured after construction.
type Client interface {
	// Chat sends a chat request and returns the response
	Chat(ctx context.Context, request *ChatRequest) (*ChatResponse, error)

	// Close cleans up any resources
	Close() error
}

// FirstMessage returns the first choice's message, or an error if the
// provider returned no choices.
func FirstMessage(resp *ChatResponse) (Message, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return Message{}, ErrNoChoices
	}
	return resp.Choices[0].Message, nil
}
