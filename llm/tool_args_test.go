package llm

import (
	"encoding/json"
	"testing"
)

func TestNormalizeToolArgumentsObject(t *testing.T) {
	args, normalized := NormalizeToolArguments(json.RawMessage(`{ "query": "Ada Lovelace",  "limit": 3 }`))

	if args["query"] != "Ada Lovelace" {
		t.Fatalf("expected query=Ada Lovelace, got %v", args["query"])
	}
	if args["limit"] != float64(3) {
		t.Fatalf("expected limit=3, got %v", args["limit"])
	}
	if string(normalized) != `{"limit":3,"query":"Ada Lovelace"}` {
		t.Fatalf("expected compact sorted JSON, got %s", normalized)
	}
}

func TestNormalizeToolArgumentsStringEncodedObject(t *testing.T) {
	raw := json.RawMessage(`"{\"prompt\":\"Summarize the Treaty of Westphalia\"}"`)
	args, normalized := NormalizeToolArguments(raw)

	if args["prompt"] != "Summarize the Treaty of Westphalia" {
		t.Fatalf("expected decoded prompt, got %v", args["prompt"])
	}
	if string(normalized) != `{"prompt":"Summarize the Treaty of Westphalia"}` {
		t.Fatalf("unexpected normalized value: %s", normalized)
	}
}

func TestNormalizeToolArgumentsEmptyForms(t *testing.T) {
	for _, raw := range []string{``, `  `, `null`, `""`, `"null"`, `not-json`, `["query"]`, `"[1,2]"`, `42`} {
		args, normalized := NormalizeToolArguments(json.RawMessage(raw))
		if len(args) != 0 {
			t.Fatalf("%q: expected empty args, got %v", raw, args)
		}
		if string(normalized) != "{}" {
			t.Fatalf("%q: expected {}, got %s", raw, normalized)
		}
	}
}
