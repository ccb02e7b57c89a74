package llm

import (
	"bytes"
	"encoding/json"
)

var emptyToolArgs = json.RawMessage(`{}`)

// NormalizeToolArguments returns the arguments of a tool call as a map and
// as compact JSON. Backends send either an object or an object encoded as a
// JSON string; anything else becomes {}.
func NormalizeToolArguments(raw json.RawMessage) (map[string]interface{}, json.RawMessage) {
	body := bytes.TrimSpace(raw)
	if isEmptyArgs(body) {
		return map[string]interface{}{}, emptyToolArgs
	}

	if body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return map[string]interface{}{}, emptyToolArgs
		}
		body = bytes.TrimSpace([]byte(inner))
		if isEmptyArgs(body) {
			return map[string]interface{}{}, emptyToolArgs
		}
	}

	var args map[string]interface{}
	if body[0] != '{' || json.Unmarshal(body, &args) != nil || args == nil {
		return map[string]interface{}{}, emptyToolArgs
	}

	compact, err := json.Marshal(args)
	if err != nil {
		return map[string]interface{}{}, emptyToolArgs
	}
	return args, compact
}

func isEmptyArgs(b []byte) bool {
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
