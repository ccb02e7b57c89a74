package consensus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gertlabs/gert/llm"
)

// SelectionFailed fills a superconsensus slot whose judge call failed
const SelectionFailed = "Selection failed"

// Backend is one consulted model
type Backend struct {
	ID           string
	Label        string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Client       llm.Client
}

// BackendError records a failed backend call without aborting the fan-out
type BackendError struct {
	Backend string
	Label   string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("Error calling %s: %v", e.Label, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Reply is the outcome of one backend call: Text on success, Err otherwise
type Reply struct {
	Backend string
	Label   string
	Text    string
	Err     *BackendError
}

// Failed reports whether the call produced an error
func (r Reply) Failed() bool { return r.Err != nil }

// answer is what a judge sees for this reply
func (r Reply) answer() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Text
}

// MarshalJSON renders {"backend","label","response"} or
// {"backend","label","error"}.
func (r Reply) MarshalJSON() ([]byte, error) {
	out := map[string]string{"backend": r.Backend, "label": r.Label}
	if r.Err != nil {
		out["error"] = r.Err.Error()
	} else {
		out["response"] = r.Text
	}
	return json.Marshal(out)
}

// Payload is the single-backend tool result: {"response": ...} or
// {"error": ...}.
func (r Reply) Payload() map[string]string {
	if r.Err != nil {
		return map[string]string{"error": r.Err.Error()}
	}
	return map[string]string{"response": r.Text}
}

// Bundle holds exactly one reply per backend, in backend order
type Bundle struct {
	Prompt      string
	Order       []string
	Replies     map[string]Reply
	ScratchFile string
}

// Ordered returns the replies in backend order
func (b *Bundle) Ordered() []Reply {
	out := make([]Reply, 0, len(b.Order))
	for _, id := range b.Order {
		out = append(out, b.Replies[id])
	}
	return out
}

// Transcript is the plain-text rendering written to the scratch file
func (b *Bundle) Transcript() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Responses for prompt: %s\n\n", b.Prompt)
	for _, r := range b.Ordered() {
		payload, _ := json.Marshal(r.Payload())
		fmt.Fprintf(&sb, "%s response: %s\n\n", r.Label, payload)
	}
	return sb.String()
}

// Payload is the call_consensus_query tool result
func (b *Bundle) Payload() map[string]interface{} {
	return map[string]interface{}{
		"prompt":    b.Prompt,
		"responses": b.Ordered(),
	}
}

// Selection is a judge's pick between one backend's two round-one replies
type Selection struct {
	Backend    string `json:"backend"`
	Label      string `json:"label"`
	Judge      string `json:"judge"`
	JudgeLabel string `json:"judge_label"`
	Text       string `json:"text"`
	Failed     bool   `json:"failed,omitempty"`
}

// Report is the superconsensus outcome: exactly one selection per backend
type Report struct {
	Prompt      string
	Order       []string
	Pairs       map[string][2]Reply
	Selections  map[string]Selection
	ScratchFile string
}

// Ordered returns the selections in backend order
func (r *Report) Ordered() []Selection {
	out := make([]Selection, 0, len(r.Order))
	for _, id := range r.Order {
		out = append(out, r.Selections[id])
	}
	return out
}

// Payload is the call_superconsensus tool result
func (r *Report) Payload() map[string]interface{} {
	return map[string]interface{}{
		"prompt":     r.Prompt,
		"selections": r.Ordered(),
		"report":     r.Text(),
	}
}

// Text renders the report in backend order
func (r *Report) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SUPERCONSENSUS for prompt: %s\n", r.Prompt)
	for _, id := range r.Order {
		s := r.Selections[id]
		fmt.Fprintf(&sb, "\nBest %s (selected by %s): %s\n", s.Label, s.JudgeLabel, s.Text)
	}
	return sb.String()
}
