package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gertlabs/gert/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second // Longer timeout for local models
	defaultModel   = "qwen3:8b"
)

// Client implements the LLM client interface for Ollama
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// OllamaToolCall represents a tool call in Ollama's format
type OllamaToolCall struct {
	Function OllamaFunction `json:"function"`
}

// OllamaFunction is the function half of a tool call
type OllamaFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// OllamaMessage represents a message in Ollama's format
type OllamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []OllamaToolCall `json:"tool_calls,omitempty"`
}

// OllamaRequest represents a request to Ollama's API
type OllamaRequest struct {
	Model    string                   `json:"model"`
	Messages []OllamaMessage          `json:"messages"`
	Stream   bool                     `json:"stream"`
	Tools    []map[string]interface{} `json:"tools,omitempty"`
	Options  map[string]interface{}   `json:"options,omitempty"`
}

// OllamaResponse represents a response from Ollama's API
type OllamaResponse struct {
	Model           string        `json:"model"`
	CreatedAt       time.Time     `json:"created_at"`
	Message         OllamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

// NewClient creates a new Ollama client and verifies the server answers
func NewClient(opts ...llm.ClientOption) (*Client, error) {
	options := llm.ClientOptions{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		DefaultModel: defaultModel,
		Headers:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.BaseURL == defaultBaseURL {
		if envURL := os.Getenv("OLLAMA_HOST"); envURL != "" {
			options.BaseURL = envURL
		}
	}

	client := &Client{
		options:    options,
		httpClient: &http.Client{Timeout: options.Timeout},
	}

	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama at %s: %w", options.BaseURL, err)
	}

	return client, nil
}

// Ping verifies the Ollama server is running
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.options.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &llm.APIError{Provider: "Ollama", StatusCode: resp.StatusCode}
	}
	return nil
}

// Chat sends a chat request to Ollama
func (c *Client) Chat(ctx context.Context, request *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(c.convertRequest(request))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.BaseURL+"/api/chat", bytes.NewReader(body))
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
		return nil, &llm.APIError{Provider: "Ollama", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.convertResponse(&ollamaResp), nil
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "gert/1.0")
	for k, v := range c.options.Headers {
		req.Header.Set(k, v)
	}
}

// convertRequest converts from standard format to Ollama format
func (c *Client) convertRequest(req *llm.ChatRequest) *OllamaRequest {
	ollamaReq := &OllamaRequest{
		Model:   req.Model,
		Tools:   req.Tools,
		Options: make(map[string]interface{}),
	}

	if ollamaReq.Model == "" {
		ollamaReq.Model = c.options.DefaultModel
	}

	for _, msg := range req.Messages {
		ollamaMsg := OllamaMessage{
			Role:    string(msg.Role),
			Content: llm.GetStringValue(msg.Content),
		}

		for _, tc := range msg.ToolCalls {
			args, _ := llm.NormalizeToolArguments(tc.Function.Arguments)
			ollamaMsg.ToolCalls = append(ollamaMsg.ToolCalls, OllamaToolCall{
				Function: OllamaFunction{Name: tc.Function.Name, Arguments: args},
			})
		}

		ollamaReq.Messages = append(ollamaReq.Messages, ollamaMsg)
	}

	if req.Temperature > 0 {
		ollamaReq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		ollamaReq.Options["num_predict"] = req.MaxTokens
	}
	if req.TopP > 0 {
		ollamaReq.Options["top_p"] = req.TopP
	}

	return ollamaReq
}

// convertResponse converts from Ollama format to standard format
func (c *Client) convertResponse(resp *OllamaResponse) *llm.ChatResponse {
	message := llm.Message{
		Role:    llm.RoleAssistant,
		Content: llm.StringPtr(resp.Message.Content),
	}

	for _, tc := range resp.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil || tc.Function.Arguments == nil {
			args = []byte("{}")
		}

		message.ToolCalls = append(message.ToolCalls, llm.ToolCall{
			ID:   "call_" + uuid.NewString(),
			Type: "function",
			Function: llm.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: args,
			},
		})
	}

	finishReason := "stop"
	if len(message.ToolCalls) > 0 {
		finishReason = "tool_calls"
	}

	return &llm.ChatResponse{
		ID:      "ollama-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: resp.CreatedAt.Unix(),
		Model:   resp.Model,
		Choices: []llm.Choice{
			{
				Index:        0,
				Message:      message,
				FinishReason: finishReason,
			},
		},
		Usage: &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
}
