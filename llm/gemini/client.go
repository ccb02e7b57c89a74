// Package gemini adapts the Gemini API (google.golang.org/genai) to llm.Client.
// It carries plain text turns only; tool specs on the request are ignored.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/gertlabs/gert/llm"
)

const defaultModel = "gemini-2.5-pro"

// Client implements the LLM client interface for Gemini
type Client struct {
	options llm.ClientOptions
	genai   *genai.Client
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, opts ...llm.ClientOption) (*Client, error) {
	options := llm.ClientOptions{
		DefaultModel: defaultModel,
		ProviderName: "Gemini",
		Timeout:      10 * time.Minute,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", options.ProviderName, llm.ErrMissingAPIKey)
	}

	cfg := &genai.ClientConfig{
		APIKey:  options.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if options.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = options.BaseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{options: options, genai: client}, nil
}

// Chat sends the conversation to GenerateContent
func (c *Client) Chat(ctx context.Context, request *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := request.Model
	if model == "" {
		model = c.options.DefaultModel
	}

	contents, system := convertMessages(request.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: request has no user content")
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if request.Temperature > 0 {
		cfg.Temperature = genai.Ptr(request.Temperature)
	}
	if request.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(request.MaxTokens)
	}

	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	out := &llm.ChatResponse{
		ID:      "gemini-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []llm.Choice{{
			Index:        0,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: llm.StringPtr(resp.Text())},
			FinishReason: "stop",
		}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

// convertMessages maps chat messages onto Gemini contents. System messages
// are joined into the system instruction; tool output is replayed as user
// text since no function declarations are sent.
func convertMessages(msgs []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system []string

	for _, msg := range msgs {
		text := llm.GetStringValue(msg.Content)
		switch msg.Role {
		case llm.RoleSystem:
			if text != "" {
				system = append(system, text)
			}
		case llm.RoleAssistant:
			if text != "" {
				contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
			}
		case llm.RoleTool:
			contents = append(contents, genai.NewContentFromText(fmt.Sprintf("Result of %s: %s", msg.Name, text), genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}
