package openai

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
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 10 * time.Minute
	defaultModel   = "gpt-5"

	// XAIBaseURL serves Grok through the same chat completions contract.
	XAIBaseURL = "https://api.x.ai/v1"
)

// Client implements the LLM client interface for OpenAI-compatible APIs
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// NewClient creates a new OpenAI client
func NewClient(opts ...llm.ClientOption) (*Client, error) {
	options := llm.ClientOptions{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		DefaultModel: defaultModel,
		ProviderName: "OpenAI",
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

// NewGrokClient creates a client for x.ai's OpenAI-compatible endpoint
func NewGrokClient(opts ...llm.ClientOption) (*Client, error) {
	base := []llm.ClientOption{
		llm.WithBaseURL(XAIBaseURL),
		llm.WithModel("grok-4"),
		llm.WithProviderName("Grok"),
	}
	return NewClient(append(base, opts...)...)
}

// Chat sends a chat request. Failures are returned once; there is no retry.
func (c *Client) Chat(ctx context.Context, request *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(c.buildRequest(request))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.BaseURL+"/chat/completions", bytes.NewReader(body))
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
			Error llm.ErrorResponse `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}

	response := &llm.ChatResponse{}
	if err := json.Unmarshal(respBody, response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return response, nil
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	req.Header.Set("User-Agent", "gert/1.0")

	if c.options.Organization != "" {
		req.Header.Set("OpenAI-Organization", c.options.Organization)
	}
	for k, v := range c.options.Headers {
		req.Header.Set(k, v)
	}
}

// buildRequest maps the generic request onto the wire format. Reasoning
// models (o-series, gpt-5) take max_completion_tokens and reject sampling
// parameters other than the defaults.
func (c *Client) buildRequest(request *llm.ChatRequest) map[string]interface{} {
	model := request.Model
	if model == "" {
		model = c.options.DefaultModel
	}

	reqMap := map[string]interface{}{
		"model":    model,
		"messages": request.Messages,
	}

	reasoning := isReasoningModel(model)

	if request.Temperature > 0 && !reasoning {
		reqMap["temperature"] = request.Temperature
	}
	if request.TopP > 0 && !reasoning {
		reqMap["top_p"] = request.TopP
	}
	if len(request.Tools) > 0 {
		reqMap["tools"] = request.Tools
		if request.ToolChoice != nil {
			reqMap["tool_choice"] = request.ToolChoice
		}
	}
	if request.ResponseFormat != nil {
		reqMap["response_format"] = request.ResponseFormat
	}
	if request.FrequencyPenalty > 0 && !reasoning {
		reqMap["frequency_penalty"] = request.FrequencyPenalty
	}
	if request.PresencePenalty > 0 && !reasoning {
		reqMap["presence_penalty"] = request.PresencePenalty
	}
	if len(request.Stop) > 0 {
		reqMap["stop"] = request.Stop
	}
	if request.MaxTokens > 0 {
		if reasoning {
			reqMap["max_completion_tokens"] = request.MaxTokens
		} else {
			reqMap["max_tokens"] = request.MaxTokens
		}
	}

	return reqMap
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5")
}
