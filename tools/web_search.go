package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gertlabs/gert/tools/base"
)

// CustomSearchEndpoint is the Google Custom Search JSON API
const CustomSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

const webSearchResults = 5

// WebSearchTool performs web searches through the Custom Search API
type WebSearchTool struct {
	base.BaseTool
	client         *http.Client
	endpoint       string
	apiKey         string
	searchEngineID string
}

// WebSearchConfig holds the search credentials
type WebSearchConfig struct {
	APIKey         string
	SearchEngineID string
	Endpoint       string
	Client         *http.Client
}

// NewWebSearchTool creates the tool. Missing credentials are reported per
// call, so the tool is always registered.
func NewWebSearchTool(cfg WebSearchConfig) *WebSearchTool {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = CustomSearchEndpoint
	}
	return &WebSearchTool{
		BaseTool: base.BaseTool{
			ToolName: "web_search",
			ToolDesc: "Performs a web search for the given query and returns the top 5 results.",
		},
		client:         client,
		endpoint:       endpoint,
		apiKey:         cfg.APIKey,
		searchEngineID: cfg.SearchEngineID,
	}
}

// Parameters returns the parameters struct
func (t *WebSearchTool) Parameters() interface{} {
	return &base.QueryParams{}
}

// SearchHit is one web search result
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Execute performs the search
func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args base.QueryParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return Fail(CodeValidationFailed, "Query cannot be empty")
	}

	if t.apiKey == "" || t.searchEngineID == "" {
		return Result{Err: NewToolError(CodeNotConfigured, "Web search credentials not configured").
			WithDetail("help", "Set GOOGLE_API_KEY and GOOGLE_CSE_ID environment variables")}
	}

	queryParams := url.Values{}
	queryParams.Add("key", t.apiKey)
	queryParams.Add("cx", t.searchEngineID)
	queryParams.Add("q", query)
	queryParams.Add("num", fmt.Sprintf("%d", webSearchResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+queryParams.Encode(), nil)
	if err != nil {
		return Failf(CodeExecutionFailed, "Failed to create request", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Failf(CodeUpstream, "Failed to perform web search", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failf(CodeUpstream, "Failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Err: NewToolError(CodeUpstream, fmt.Sprintf("Search API returned status %d", resp.StatusCode)).
			WithDetail("response", string(body))}
	}

	var result struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
		Error struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Failf(CodeUpstream, "Failed to parse search response", err)
	}
	if result.Error.Message != "" {
		return Fail(CodeUpstream, "Search API error: "+result.Error.Message)
	}

	hits := make([]SearchHit, 0, len(result.Items))
	for i, item := range result.Items {
		if i == webSearchResults {
			break
		}
		hits = append(hits, SearchHit{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return Ok(map[string]interface{}{"query": query, "results": hits})
}
