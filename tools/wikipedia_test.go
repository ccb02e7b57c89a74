package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodePayload(t *testing.T, r Result) map[string]interface{} {
	t.Helper()
	if r.IsErr() {
		t.Fatalf("unexpected error result: %v", r.Err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(r.Text()), &out); err != nil {
		t.Fatalf("result is not a JSON object: %v (%s)", err, r.Text())
	}
	return out
}

func wikipediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("titles") == "Paris":
			w.Write([]byte(`{"query":{"pages":{"22989":{"pageid":22989,"title":"Paris","extract":"Paris is the capital of France."}}}}`))
		case q.Get("titles") != "":
			w.Write([]byte(`{"query":{"pages":{"-1":{"title":"` + q.Get("titles") + `","missing":""}}}}`))
		case q.Get("list") == "search":
			if q.Get("srlimit") != "5" {
				t.Errorf("expected srlimit=5, got %q", q.Get("srlimit"))
			}
			w.Write([]byte(`{"query":{"search":[{"title":"Paris Hilton"},{"title":"Paris, Texas"}]}}`))
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWikipediaExactMatch(t *testing.T) {
	srv := wikipediaServer(t)
	tool := NewWikipediaTool(srv.Client(), srv.URL)

	out := decodePayload(t, tool.Execute(context.Background(), json.RawMessage(`{"query":"Paris"}`)))
	if out["exact_match"] != true || out["summary"] != "Paris is the capital of France." {
		t.Fatalf("unexpected payload %v", out)
	}
}

func TestWikipediaFallsBackToSearch(t *testing.T) {
	srv := wikipediaServer(t)
	tool := NewWikipediaTool(srv.Client(), srv.URL)

	out := decodePayload(t, tool.Execute(context.Background(), json.RawMessage(`{"query":"paris hilt"}`)))
	if out["exact_match"] != false {
		t.Fatalf("expected exact_match=false, got %v", out)
	}
	results, _ := out["results"].([]interface{})
	if len(results) != 2 || results[0] != "Paris Hilton" {
		t.Fatalf("unexpected results %v", out["results"])
	}
}

func TestWikipediaUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewWikipediaTool(srv.Client(), srv.URL).Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	if !r.IsErr() || r.Err.Code != CodeUpstream {
		t.Fatalf("expected upstream error, got %+v", r)
	}
	if !strings.HasPrefix(r.Text(), `{"error":`) {
		t.Fatalf("error results serialize as {\"error\": ...}, got %s", r.Text())
	}
}
