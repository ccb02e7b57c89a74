package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gertlabs/gert/consensus"
	"github.com/gertlabs/gert/tools/base"
)

type fakePanel struct {
	asked []string
}

func (p *fakePanel) Ask(ctx context.Context, backendID, prompt string) consensus.Reply {
	p.asked = append(p.asked, backendID+":"+prompt)
	if backendID == "grok" {
		return consensus.Reply{Backend: "grok", Label: "Grok", Err: &consensus.BackendError{Backend: "grok", Label: "Grok", Err: errors.New("rate limited")}}
	}
	return consensus.Reply{Backend: backendID, Label: backendID, Text: "answer"}
}

func (p *fakePanel) Consensus(ctx context.Context, prompt string) *consensus.Bundle {
	return &consensus.Bundle{
		Prompt: prompt,
		Order:  []string{"gemini", "grok"},
		Replies: map[string]consensus.Reply{
			"gemini": {Backend: "gemini", Label: "Gemini", Text: "yes"},
			"grok":   {Backend: "grok", Label: "Grok", Err: &consensus.BackendError{Backend: "grok", Label: "Grok", Err: errors.New("down")}},
		},
	}
}

func (p *fakePanel) Superconsensus(ctx context.Context, prompt string) *consensus.Report {
	return &consensus.Report{
		Prompt: prompt,
		Order:  []string{"gemini"},
		Selections: map[string]consensus.Selection{
			"gemini": {Backend: "gemini", Label: "Gemini", Judge: "gemini", JudgeLabel: "Gemini", Text: consensus.SelectionFailed, Failed: true},
		},
	}
}

func TestBackendTool(t *testing.T) {
	panel := &fakePanel{}
	tool := NewBackendTool(panel, "openai", "GPT-5")
	if tool.Name() != "call_openai" || tool.Timeout() != base.BackendTimeout {
		t.Fatalf("unexpected tool %s / %v", tool.Name(), tool.Timeout())
	}

	r := tool.Execute(context.Background(), json.RawMessage(`{"prompt":"hi"}`))
	if r.Text() != `{"response":"answer"}` {
		t.Fatalf("unexpected payload %s", r.Text())
	}

	failed := NewBackendTool(panel, "grok", "Grok").Execute(context.Background(), json.RawMessage(`{"prompt":"hi"}`))
	if failed.Text() != `{"error":"Error calling Grok: rate limited"}` {
		t.Fatalf("unexpected error payload %s", failed.Text())
	}
}

func TestConsensusToolKeepsInlineErrors(t *testing.T) {
	tool := NewConsensusTool(&fakePanel{})
	if tool.Timeout() != base.ConsensusTimeout {
		t.Fatalf("unexpected timeout %v", tool.Timeout())
	}
	out := decodePayload(t, tool.Execute(context.Background(), json.RawMessage(`{"prompt":"P"}`)))
	responses := out["responses"].([]interface{})
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %v", responses)
	}
	grok := responses[1].(map[string]interface{})
	if grok["error"] != "Error calling Grok: down" {
		t.Fatalf("unexpected grok entry %v", grok)
	}
}

func TestSuperconsensusTool(t *testing.T) {
	tool := NewSuperconsensusTool(&fakePanel{})
	if tool.Timeout() != base.SuperconsensusTimeout {
		t.Fatalf("unexpected timeout %v", tool.Timeout())
	}
	out := decodePayload(t, tool.Execute(context.Background(), json.RawMessage(`{"prompt":"P"}`)))
	sels := out["selections"].([]interface{})
	if sels[0].(map[string]interface{})["text"] != consensus.SelectionFailed {
		t.Fatalf("unexpected selections %v", sels)
	}
}

func TestPromptRequired(t *testing.T) {
	r := NewConsensusTool(&fakePanel{}).Execute(context.Background(), json.RawMessage(`{"prompt":"   "}`))
	if !r.IsErr() || r.Err.Code != CodeValidationFailed {
		t.Fatalf("expected validation failure, got %+v", r)
	}
}
