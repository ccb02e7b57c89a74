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

// WikipediaEndpoint is the MediaWiki API used by default
const WikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// WikipediaTool returns the summary of the page titled exactly like the
// query, or the top 5 search hits when no such page exists.
type WikipediaTool struct {
	base.BaseTool
	client   *http.Client
	endpoint string
}

// NewWikipediaTool creates the tool. An empty endpoint uses WikipediaEndpoint.
func NewWikipediaTool(client *http.Client, endpoint string) *WikipediaTool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if endpoint == "" {
		endpoint = WikipediaEndpoint
	}
	return &WikipediaTool{
		BaseTool: base.BaseTool{
			ToolName: "wikipedia_search",
			ToolDesc: "Searches Wikipedia for a query. Returns the summary of the exact matching page if it exists, otherwise a list of the top 5 search results.",
		},
		client:   client,
		endpoint: endpoint,
	}
}

// Parameters returns the parameters struct
func (t *WikipediaTool) Parameters() interface{} {
	return &base.QueryParams{}
}

// Execute looks the query up
func (t *WikipediaTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args base.QueryParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return Fail(CodeValidationFailed, "Query cannot be empty")
	}

	title, summary, found, err := t.exactPage(ctx, query)
	if err != nil {
		return Failf(CodeUpstream, "Failed to fetch Wikipedia page", err)
	}
	if found {
		return Ok(map[string]interface{}{
			"exact_match": true,
			"title":       title,
			"summary":     summary,
		})
	}

	titles, err := t.search(ctx, query)
	if err != nil {
		return Failf(CodeUpstream, "Failed to search Wikipedia", err)
	}
	return Ok(map[string]interface{}{
		"exact_match": false,
		"results":     titles,
	})
}

// exactPage fetches the intro extract of the page titled query, following
// redirects.
func (t *WikipediaTool) exactPage(ctx context.Context, query string) (string, string, bool, error) {
	urlParams := url.Values{}
	urlParams.Add("action", "query")
	urlParams.Add("prop", "extracts")
	urlParams.Add("exintro", "true")
	urlParams.Add("explaintext", "true")
	urlParams.Add("redirects", "1")
	urlParams.Add("titles", query)
	urlParams.Add("format", "json")

	var result struct {
		Query struct {
			Pages map[string]struct {
				Title   string  `json:"title"`
				Extract string  `json:"extract"`
				Missing *string `json:"missing"`
				Invalid *string `json:"invalid"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := t.get(ctx, urlParams, &result); err != nil {
		return "", "", false, err
	}

	for _, page := range result.Query.Pages {
		if page.Missing != nil || page.Invalid != nil || strings.TrimSpace(page.Extract) == "" {
			continue
		}
		return page.Title, strings.TrimSpace(page.Extract), true, nil
	}
	return "", "", false, nil
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]string, error) {
	urlParams := url.Values{}
	urlParams.Add("action", "query")
	urlParams.Add("list", "search")
	urlParams.Add("srsearch", query)
	urlParams.Add("srlimit", "5")
	urlParams.Add("format", "json")

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := t.get(ctx, urlParams, &result); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(result.Query.Search))
	for _, item := range result.Query.Search {
		titles = append(titles, item.Title)
	}
	return titles, nil
}

func (t *WikipediaTool) get(ctx context.Context, urlParams url.Values, out interface{}) error {
	requestURL := fmt.Sprintf("%s?%s", t.endpoint, urlParams.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "gert/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
