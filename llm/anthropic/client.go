package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gertlabs/gert/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	defaultTimeout = 10 * time.Minute
	defaultModel   = "claude-opus-4-1"
	apiVersion     = "2023-06-01"
)

// Client implements the LLM client interface for Anthropic
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// AnthropicMessage represents a message in Anthropic's format
type AnthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// AnthropicRequest represents a request to Anthropic's API
type AnthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []AnthropicMessage `json:"messages"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   float32            `json:"temperature,omitempty"`
	TopP          float32            `json:"top_p,omitempty"`
	TopK          int                `json:"top_k,omitempty"`
	System        string             `json:"system,omitempty"`
	Tools         []AnthropicTool    `json:"tools,omitempty"`
	ToolChoice    interface{}        `json:"tool_choice,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

// AnthropicTool represents a tool in Anthropic's format
type AnthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// AnthropicResponse represents a response from Anthropic's API
type AnthropicResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Role         string                  `json:"role"`
	Content      []AnthropicContentBlock `json:"content"`
	Model        string                  `json:"model"`
	StopReason   string                  `json:"stop_reason"`
	StopSequence string                  `json:"stop_sequence,omitempty"`
	Usage        AnthropicUsage          `json:"usage"`
}

// AnthropicContentBlock represents a content block in the response
type AnthropicContentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	ToolUse string          `json:"tool_use_id,omitempty"`
	Content string          `json:"content,omitempty"`
}

// AnthropicUsage represents token usage
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// NewClient creates a new Anthropic client
func NewClient(opts ...llm.ClientOption) (*Client, error) {
	options := llm.ClientOptions{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		DefaultModel: defaultModel,
		ProviderName: "Anthropic",
		Headers:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", options.ProviderName, llm.ErrMissingAPIKey)
	}

	return &Client{
		options:    options,
		httpClient: &http.Client{Timeout: options.Timeout},
	}, nil
}

// Chat sends a chat request to the Messages API
func (c *Client) Chat(ctx context.Context, request *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(c.convertRequest(request))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &llm.APIError{Provider: c.options.ProviderName, StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.convertResponse(&anthropicResp), nil
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.options.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("User-Agent", "gert/1.0")
	for k, v := range c.options.Headers {
		req.Header.Set(k, v)
	}
}

// convertRequest converts from standard format to Anthropic format
func (c *Client) convertRequest(req *llm.ChatRequest) *AnthropicRequest {
	anthropicReq := &AnthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	if anthropicReq.Model == "" {
		anthropicReq.Model = c.options.DefaultModel
	}

	if anthropicReq.MaxTokens == 0 {
		anthropicReq.MaxTokens = 4096
	}

	// Convert messages
	var messages []AnthropicMessage
	var systemMessage string

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemMessage = llm.GetStringValue(msg.Content)
		case llm.RoleUser:
			messages = append(messages, AnthropicMessage{
				Role:    "user",
				Content: llm.GetStringValue(msg.Content),
			})
		case llm.RoleAssistant:
			// Handle tool calls
			if len(msg.ToolCalls) > 0 {
				var content []AnthropicContentBlock

				// Add text if present
				if msg.Content != nil && *msg.Content != "" {
					content = append(content, AnthropicContentBlock{
						Type: "text",
						Text: *msg.Content,
					})
				}

				// Add tool calls
				for _, toolCall := range msg.ToolCalls {
					content = append(content, AnthropicContentBlock{
						Type:  "tool_use",
						ID:    toolCall.ID,
						Name:  toolCall.Function.Name,
						Input: toolCall.Function.Arguments,
					})
				}

				messages = append(messages, AnthropicMessage{
					Role:    "assistant",
					Content: content,
				})
			} else {
				messages = append(messages, AnthropicMessage{
					Role:    "assistant",
					Content: llm.GetStringValue(msg.Content),
				})
			}
		case llm.RoleTool:
			// Tool responses
			messages = append(messages, AnthropicMessage{
				Role: "user",
				Content: []AnthropicContentBlock{
					{
						Type:    "tool_result",
						ToolUse: msg.ToolCallID,
						Content: llm.GetStringValue(msg.Content),
					},
				},
			})
		}
	}

	anthropicReq.Messages = messages
	if systemMessage != "" {
		anthropicReq.System = systemMessage
	}

	// Convert tools
	if len(req.Tools) > 0 {
		var tools []AnthropicTool
		for _, tool := range req.Tools {
			fn, ok := tool["function"].(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := fn["name"].(string)
			desc, _ := fn["description"].(string)
			params, _ := fn["parameters"].(map[string]interface{})
			if params == nil {
				params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
			}
			tools = append(tools, AnthropicTool{Name: name, Description: desc, InputSchema: params})
		}
		anthropicReq.Tools = tools
	}

	return anthropicReq
}

// convertResponse converts from Anthropic format to standard format
func (c *Client) convertResponse(resp *AnthropicResponse) *llm.ChatResponse {
	// Build message content and tool calls
	var content strings.Builder
	var toolCalls []llm.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      block.Name,
					Arguments: block.Input,
				},
			})
		}
	}

	// Determine finish reason
	finishReason := "stop"
	if resp.StopReason == "tool_use" {
		finishReason = "tool_calls"
	} else if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	return &llm.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []llm.Choice{
			{
				Index: 0,
				Message: llm.Message{
					Role:      llm.RoleAssistant,
					Content:   llm.StringPtr(content.String()),
					ToolCalls: toolCalls,
				},
				FinishReason: finishReason,
			},
		},
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
