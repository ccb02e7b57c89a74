// Package agent runs one conversational turn: the primary model, at most
// one tool, an optional follow-up call, and a single save.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/llm"
	"github.com/gertlabs/gert/tools"
	"github.com/gertlabs/gert/tools/registry"
)

const followUpPrompt = "Based on the %s result: %s\n\nPlease provide a helpful response to the user's original question."

// Orchestrator runs turns against a primary model, a tool registry and a
// conversation store. It holds no per-turn state and is safe for
// concurrent use as long as two turns never share a conversation id.
type Orchestrator struct {
	client   llm.Client
	registry *registry.Registry
	store    history.Store
	config   Config
}

// New creates an orchestrator
func New(client llm.Client, reg *registry.Registry, store history.Store, opts ...Option) *Orchestrator {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Orchestrator{
		client:   client,
		registry: reg,
		store:    store,
		config:   config,
	}
}

// turn carries the mutable state of one RunTurn call
type turn struct {
	id       string
	state    State
	messages []llm.Message
	resp     *Response
	log      zerolog.Logger
}

func (t *turn) transition(s State) {
	t.state = s
	t.resp.State = s
	t.log.Debug().Str("state", s.String()).Msg("turn transition")
}

func (t *turn) fail(err error) (*Response, error) {
	t.log.Warn().Err(err).Str("from", t.state.String()).Msg("turn failed")
	t.transition(StateFailed)
	return t.resp, err
}

func (t *turn) addUsage(u *llm.Usage) {
	if u == nil {
		return
	}
	t.resp.Usage.PromptTokens += u.PromptTokens
	t.resp.Usage.CompletionTokens += u.CompletionTokens
	t.resp.Usage.TotalTokens += u.TotalTokens
}

// RunTurn processes one utterance in the given conversation. An empty
// conversationID starts a new conversation; the id used is reported in the
// Response. The conversation is saved exactly once, after the final answer;
// failed turns save nothing.
func (o *Orchestrator) RunTurn(ctx context.Context, utterance, conversationID string) (*Response, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, ErrEmptyUtterance
	}

	t := o.begin(ctx, conversationID)
	t.messages = append(t.messages, llm.Message{Role: llm.RoleUser, Content: llm.StringPtr(utterance)})

	resp, err := o.client.Chat(ctx, &llm.ChatRequest{
		Model:       o.config.Model,
		Messages:    t.messages,
		Temperature: o.config.Temperature,
		MaxTokens:   o.config.MaxTokens,
		Tools:       o.toolSpecs(),
		ToolChoice:  "auto",
	})
	if err != nil {
		return t.fail(fmt.Errorf("model call failed: %w", err))
	}
	msg, err := llm.FirstMessage(resp)
	if err != nil {
		return t.fail(fmt.Errorf("model call failed: %w", err))
	}
	t.addUsage(resp.Usage)
	t.transition(StateModelCalled)

	answer := llm.GetStringValue(msg.Content)
	if len(msg.ToolCalls) > 0 {
		answer, err = o.runTool(ctx, t, msg)
		if err != nil {
			return t.fail(err)
		}
	}

	t.messages = append(t.messages, llm.Message{Role: llm.RoleAssistant, Content: llm.StringPtr(answer)})
	t.resp.Content = answer

	if err := o.store.Update(ctx, t.id, history.FromLLMMessages(t.messages)); err != nil {
		return t.fail(&PersistenceError{ConversationID: t.id, Err: err})
	}

	t.transition(StateCompleted)
	return t.resp, nil
}

// begin resolves the conversation: the stored history for a known id, or a
// fresh id seeded with the system prompt.
func (o *Orchestrator) begin(ctx context.Context, conversationID string) *turn {
	t := &turn{state: StateStart, resp: &Response{State: StateStart}}

	if conversationID != "" {
		conv, err := o.store.Load(ctx, conversationID)
		if err == nil {
			t.id = conv.ID
			if t.id == "" {
				t.id = conversationID
			}
			t.messages = history.ToLLMMessages(conv.Messages)
		} else {
			o.config.Logger.Warn().Err(err).Str("conversation_id", conversationID).
				Msg("could not load conversation, starting a new one")
		}
	}
	if t.id == "" {
		t.id = history.NewID(o.config.Now())
	}
	if len(t.messages) == 0 || t.messages[0].Role != llm.RoleSystem {
		seed := llm.Message{Role: llm.RoleSystem, Content: llm.StringPtr(o.config.SystemPrompt)}
		t.messages = append([]llm.Message{seed}, t.messages...)
	}

	t.resp.ConversationID = t.id
	t.log = o.config.Logger.With().Str("conversation_id", t.id).Logger()
	t.log.Debug().Str("state", StateStart.String()).Int("history", len(t.messages)).Msg("turn started")
	return t
}

// runTool dispatches the first requested tool and asks the model for the
// final answer based on its result.
func (o *Orchestrator) runTool(ctx context.Context, t *turn, msg llm.Message) (string, error) {
	call := msg.ToolCalls[0]
	if len(msg.ToolCalls) > 1 {
		t.log.Warn().Int("requested", len(msg.ToolCalls)).Str("tool", call.Function.Name).
			Msg("model requested several tools, running only the first")
	}
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()[:8]
	}
	if call.Type == "" {
		call.Type = "function"
	}
	name := call.Function.Name
	t.transition(StateToolRequested)

	_, normalized := llm.NormalizeToolArguments(call.Function.Arguments)
	call.Function.Arguments = normalized

	result, err := o.registry.Dispatch(ctx, name, normalized)
	if err != nil {
		var timeout *registry.TimeoutError
		if !errors.As(err, &timeout) || o.config.TimeoutPolicy != FoldTimeout {
			return "", fmt.Errorf("tool %s: %w", name, err)
		}
		t.log.Warn().Str("tool", name).Dur("timeout", timeout.After).Msg("tool timed out, folding into result")
		result = tools.Fail(tools.CodeTimeout, fmt.Sprintf("%s timed out after %s", name, timeout.After))
	}
	t.transition(StateToolDispatched)

	payload := result.Text()
	t.resp.Tool = &ToolRun{Name: name, Arguments: normalized, Payload: payload, Failed: result.IsErr()}

	var content *string
	if c := llm.GetStringValue(msg.Content); c != "" {
		content = llm.StringPtr(c)
	}
	t.messages = append(t.messages,
		llm.Message{Role: llm.RoleAssistant, Content: content, ToolCalls: []llm.ToolCall{call}},
		llm.Message{Role: llm.RoleTool, Name: name, ToolCallID: call.ID, Content: llm.StringPtr(payload)},
	)

	resp, err := o.client.Chat(ctx, &llm.ChatRequest{
		Model: o.config.Model,
		Messages: []llm.Message{
			t.messages[0],
			{Role: llm.RoleUser, Content: llm.StringPtr(fmt.Sprintf(followUpPrompt, name, payload))},
		},
		Temperature: o.config.Temperature,
		MaxTokens:   o.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("follow-up model call failed: %w", err)
	}
	final, err := llm.FirstMessage(resp)
	if err != nil {
		return "", fmt.Errorf("follow-up model call failed: %w", err)
	}
	t.addUsage(resp.Usage)
	t.transition(StateFinalModelCalled)
	return llm.GetStringValue(final.Content), nil
}

func (o *Orchestrator) toolSpecs() []map[string]interface{} {
	if len(o.config.Tools) > 0 {
		return o.registry.SpecsFor(o.config.Tools...)
	}
	return o.registry.Specs()
}

// Tools returns the names of the tools offered to the model
func (o *Orchestrator) Tools() []string {
	if len(o.config.Tools) > 0 {
		return append([]string(nil), o.config.Tools...)
	}
	return o.registry.List()
}
