package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gertlabs/gert/consensus"
	"github.com/gertlabs/gert/tools/base"
)

// Panel is the set of consulted models behind the call_* tools
type Panel interface {
	Ask(ctx context.Context, backendID, prompt string) consensus.Reply
	Consensus(ctx context.Context, prompt string) *consensus.Bundle
	Superconsensus(ctx context.Context, prompt string) *consensus.Report
}

func parsePrompt(params json.RawMessage) (string, *Result) {
	var args base.PromptParams
	if err := json.Unmarshal(params, &args); err != nil {
		r := Failf(CodeInvalidParams, "Failed to parse parameters", err)
		return "", &r
	}
	prompt := strings.TrimSpace(args.Prompt)
	if prompt == "" {
		r := Fail(CodeValidationFailed, "Prompt cannot be empty")
		return "", &r
	}
	return prompt, nil
}

// BackendTool forwards a prompt to one consulted model
type BackendTool struct {
	base.BaseTool
	panel   Panel
	backend string
}

// NewBackendTool creates call_<backendID>
func NewBackendTool(panel Panel, backendID, label string) *BackendTool {
	return &BackendTool{
		BaseTool: base.BaseTool{
			ToolName:    "call_" + backendID,
			ToolDesc:    fmt.Sprintf("Calls the %s API with the given prompt and returns the response.", label),
			ToolTimeout: base.BackendTimeout,
		},
		panel:   panel,
		backend: backendID,
	}
}

// Parameters returns the parameters struct
func (t *BackendTool) Parameters() interface{} {
	return &base.PromptParams{}
}

// Execute asks the backend
func (t *BackendTool) Execute(ctx context.Context, params json.RawMessage) Result {
	prompt, bad := parsePrompt(params)
	if bad != nil {
		return *bad
	}
	reply := t.panel.Ask(ctx, t.backend, prompt)
	if reply.Failed() {
		return Fail(CodeUpstream, reply.Err.Error())
	}
	return Ok(reply.Payload())
}

// ConsensusTool asks every consulted model in parallel
type ConsensusTool struct {
	base.BaseTool
	panel Panel
}

// NewConsensusTool creates call_consensus_query
func NewConsensusTool(panel Panel) *ConsensusTool {
	return &ConsensusTool{
		BaseTool: base.BaseTool{
			ToolName:    "call_consensus_query",
			ToolDesc:    "Calls multiple LLM's (Gemini, GPT-5, Grok, Claude) to get a consensus.",
			ToolTimeout: base.ConsensusTimeout,
		},
		panel: panel,
	}
}

// Parameters returns the parameters struct
func (t *ConsensusTool) Parameters() interface{} {
	return &base.PromptParams{}
}

// Execute runs the fan-out. Individual backend failures stay inline.
func (t *ConsensusTool) Execute(ctx context.Context, params json.RawMessage) Result {
	prompt, bad := parsePrompt(params)
	if bad != nil {
		return *bad
	}
	return Ok(t.panel.Consensus(ctx, prompt).Payload())
}

// SuperconsensusTool runs the two-round judged consensus
type SuperconsensusTool struct {
	base.BaseTool
	panel Panel
}

// NewSuperconsensusTool creates call_superconsensus
func NewSuperconsensusTool(panel Panel) *SuperconsensusTool {
	return &SuperconsensusTool{
		BaseTool: base.BaseTool{
			ToolName:    "call_superconsensus",
			ToolDesc:    "Calls 2 of each model in parallel and uses a different model to choose the best responses.",
			ToolTimeout: base.SuperconsensusTimeout,
		},
		panel: panel,
	}
}

// Parameters returns the parameters struct
func (t *SuperconsensusTool) Parameters() interface{} {
	return &base.PromptParams{}
}

// Execute runs both rounds
func (t *SuperconsensusTool) Execute(ctx context.Context, params json.RawMessage) Result {
	prompt, bad := parsePrompt(params)
	if bad != nil {
		return *bad
	}
	return Ok(t.panel.Superconsensus(ctx, prompt).Payload())
}
