package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/llm"
	"github.com/gertlabs/gert/tools"
	"github.com/gertlabs/gert/tools/registry"
)

// scriptedClient returns its responses in order and records every request
type scriptedClient struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	err       error
	requests  []*llm.ChatRequest
}

func (c *scriptedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) Close() error { return nil }

func text(s string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: llm.StringPtr(s)}}},
		Usage:   &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func toolCalls(names ...string) *llm.ChatResponse {
	var calls []llm.ToolCall
	for _, n := range names {
		calls = append(calls, llm.ToolCall{
			ID:       "call_" + n,
			Type:     "function",
			Function: llm.FunctionCall{Name: n, Arguments: json.RawMessage(`{"query":"capital of France"}`)},
		})
	}
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}}}}
}

// memStore is an in-memory history.Store
type memStore struct {
	mu        sync.Mutex
	convs     map[string][]history.Message
	updates   int
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{convs: map[string][]history.Message{}}
}

func (s *memStore) Load(ctx context.Context, id string) (*history.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.convs[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return &history.Conversation{ID: id, Messages: msgs}, nil
}

func (s *memStore) Save(ctx context.Context, id string, msgs []history.Message) error {
	return s.Update(ctx, id, msgs)
}

func (s *memStore) Update(ctx context.Context, id string, msgs []history.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.convs[id] = msgs
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error { return nil }
func (s *memStore) ClearAll(ctx context.Context) error          { return nil }
func (s *memStore) Search(ctx context.Context, q string) history.SearchResult {
	return history.SearchResult{Query: q, Status: history.SearchNoMatches}
}
func (s *memStore) List(ctx context.Context) ([]history.IndexEntry, error) { return nil, nil }

type queryParams struct {
	Query string `json:"query" schema:"required"`
}

type stubTool struct {
	name    string
	timeout time.Duration
	calls   int
	run     func(ctx context.Context) tools.Result
}

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub " + s.name }
func (s *stubTool) Parameters() interface{} { return &queryParams{} }
func (s *stubTool) Timeout() time.Duration  { return s.timeout }
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) tools.Result {
	s.calls++
	return s.run(ctx)
}

func newRegistry(t *testing.T, stubs ...*stubTool) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, s := range stubs {
		s := s
		if err := reg.Register(s.name, func() tools.Tool { return s }); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func searchStub() *stubTool {
	return &stubTool{name: "web_search", timeout: time.Second, run: func(ctx context.Context) tools.Result {
		return tools.Ok(map[string]interface{}{"results": []string{"Paris"}})
	}}
}

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC) }

func TestTurnWithoutTool(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{text("Hello there.")}}
	store := newMemStore()
	o := New(client, newRegistry(t, searchStub()), store, WithSystemPrompt("SYS"), WithClock(fixedNow))

	resp, err := o.RunTurn(context.Background(), "Hi", "")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if resp.Content != "Hello there." || resp.State != StateCompleted || resp.Tool != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.HasPrefix(resp.ConversationID, "20250601_083000_") {
		t.Fatalf("unexpected id %q", resp.ConversationID)
	}

	msgs := store.convs[resp.ConversationID]
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	roles := []string{msgs[0].Role, msgs[1].Role, msgs[2].Role}
	if strings.Join(roles, ",") != "system,user,assistant" {
		t.Fatalf("unexpected roles %v", roles)
	}
	if *msgs[0].Content != "SYS" {
		t.Fatalf("system prompt not seeded")
	}
	if store.updates != 1 {
		t.Fatalf("expected exactly one save, got %d", store.updates)
	}

	req := client.requests[0]
	if len(req.Tools) != 1 || req.ToolChoice != "auto" {
		t.Fatalf("tools not offered: %+v", req)
	}
}

func TestTurnWithTool(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search"), text("The capital of France is Paris.")}}
	store := newMemStore()
	search := searchStub()
	o := New(client, newRegistry(t, search), store, WithSystemPrompt("SYS"))

	resp, err := o.RunTurn(context.Background(), "What is the capital of France?", "")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if resp.Content != "The capital of France is Paris." || resp.Tool == nil || resp.Tool.Name != "web_search" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("usage not accumulated: %+v", resp.Usage)
	}

	msgs := store.convs[resp.ConversationID]
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	call := msgs[2]
	if call.Role != "assistant" || call.Content != nil || len(call.ToolCalls) != 1 || call.ToolCalls[0].Name != "web_search" {
		t.Fatalf("unexpected tool-call message %+v", call)
	}
	if call.ToolCalls[0].Arguments["query"] != "capital of France" {
		t.Fatalf("arguments not persisted: %+v", call.ToolCalls[0])
	}
	tool := msgs[3]
	if tool.Role != "tool" || tool.Name != "web_search" || *tool.Content != `{"results":["Paris"]}` {
		t.Fatalf("unexpected tool message %+v", tool)
	}
	if msgs[4].Role != "assistant" || *msgs[4].Content != "The capital of France is Paris." {
		t.Fatalf("unexpected final message %+v", msgs[4])
	}

	follow := client.requests[1]
	if len(follow.Tools) != 0 || len(follow.Messages) != 2 {
		t.Fatalf("follow-up must be two messages with no tools: %+v", follow)
	}
	if *follow.Messages[0].Content != "SYS" {
		t.Fatalf("follow-up must carry the system prompt")
	}
	want := "Based on the web_search result: {\"results\":[\"Paris\"]}\n\nPlease provide a helpful response to the user's original question."
	if got := *follow.Messages[1].Content; got != want {
		t.Fatalf("follow-up prompt = %q, want %q", got, want)
	}
}

func TestOnlyFirstToolCallIsHonored(t *testing.T) {
	first := searchStub()
	second := &stubTool{name: "wikipedia_search", timeout: time.Second, run: func(ctx context.Context) tools.Result { return tools.Ok("x") }}
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search", "wikipedia_search"), text("ok")}}
	store := newMemStore()
	o := New(client, newRegistry(t, first, second), store)

	resp, err := o.RunTurn(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("expected only the first tool to run, got %d/%d", first.calls, second.calls)
	}
	if n := len(store.convs[resp.ConversationID][2].ToolCalls); n != 1 {
		t.Fatalf("persisted %d tool calls, want 1", n)
	}
}

func TestUnknownToolFailsWithoutSaving(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("teleport")}}
	store := newMemStore()
	o := New(client, newRegistry(t, searchStub()), store)

	resp, err := o.RunTurn(context.Background(), "beam me up", "")
	if !errors.Is(err, registry.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if resp.State != StateFailed {
		t.Fatalf("expected failed state, got %v", resp.State)
	}
	if store.updates != 0 {
		t.Fatalf("failed turn must not be persisted")
	}
	if len(client.requests) != 1 {
		t.Fatalf("no follow-up call expected")
	}
}

func slowStub() *stubTool {
	return &stubTool{name: "web_search", timeout: 20 * time.Millisecond, run: func(ctx context.Context) tools.Result {
		<-ctx.Done()
		return tools.Ok("late")
	}}
}

func TestToolTimeoutAbort(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search"), text("unused")}}
	store := newMemStore()
	o := New(client, newRegistry(t, slowStub()), store)

	_, err := o.RunTurn(context.Background(), "q", "")
	if !errors.Is(err, registry.ErrToolTimeout) {
		t.Fatalf("expected ErrToolTimeout, got %v", err)
	}
	if store.updates != 0 {
		t.Fatalf("aborted turn must not be persisted")
	}
}

func TestCooperativeToolTimeoutAborts(t *testing.T) {
	stub := &stubTool{name: "web_search", timeout: 5 * time.Millisecond, run: func(ctx context.Context) tools.Result {
		<-ctx.Done()
		return tools.Failf(tools.CodeUpstream, "search request failed", ctx.Err())
	}}
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search"), text("unused")}}
	store := newMemStore()
	o := New(client, newRegistry(t, stub), store)

	resp, err := o.RunTurn(context.Background(), "q", "")
	if !errors.Is(err, registry.ErrToolTimeout) {
		t.Fatalf("expected ErrToolTimeout, got %v", err)
	}
	if resp == nil || resp.State != StateFailed {
		t.Fatalf("expected failed response, got %+v", resp)
	}
	if store.updates != 0 || len(client.requests) != 1 {
		t.Fatalf("aborted turn must not save or call the model again: updates=%d requests=%d", store.updates, len(client.requests))
	}
}

func TestToolTimeoutFold(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search"), text("Sorry, the search timed out.")}}
	store := newMemStore()
	o := New(client, newRegistry(t, slowStub()), store, WithTimeoutPolicy(FoldTimeout))

	resp, err := o.RunTurn(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !resp.Tool.Failed {
		t.Fatalf("folded timeout should be reported as a failed tool run")
	}
	msgs := store.convs[resp.ConversationID]
	if got := *msgs[3].Content; got != `{"error":"web_search timed out after 20ms"}` {
		t.Fatalf("unexpected tool payload %s", got)
	}
}

func TestToolErrorIsFolded(t *testing.T) {
	failing := &stubTool{name: "web_search", timeout: time.Second, run: func(ctx context.Context) tools.Result {
		return tools.Fail(tools.CodeUpstream, "search backend down")
	}}
	client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls("web_search"), text("I could not search.")}}
	store := newMemStore()
	o := New(client, newRegistry(t, failing), store)

	resp, err := o.RunTurn(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("tool errors must not fail the turn: %v", err)
	}
	if !strings.Contains(*client.requests[1].Messages[1].Content, `{"error":"search backend down"}`) {
		t.Fatalf("error payload not passed to follow-up")
	}
	if store.updates != 1 || resp.State != StateCompleted {
		t.Fatalf("expected a completed, saved turn")
	}
}

func TestModelErrorFailsWithoutSaving(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	store := newMemStore()
	o := New(client, newRegistry(t), store)

	resp, err := o.RunTurn(context.Background(), "q", "")
	if err == nil || resp.State != StateFailed || store.updates != 0 {
		t.Fatalf("expected failure without save, got %v / %+v", err, resp)
	}
}

func TestPersistenceError(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{text("hi")}}
	store := newMemStore()
	store.updateErr = errors.New("disk full")
	o := New(client, newRegistry(t), store)

	resp, err := o.RunTurn(context.Background(), "q", "")
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.ConversationID != resp.ConversationID {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if resp.State != StateFailed {
		t.Fatalf("expected failed state, got %v", resp.State)
	}
}

func TestEmptyUtterance(t *testing.T) {
	store := newMemStore()
	o := New(&scriptedClient{}, newRegistry(t), store)
	if _, err := o.RunTurn(context.Background(), "  \n", ""); !errors.Is(err, ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
	if store.updates != 0 {
		t.Fatalf("nothing should be saved")
	}
}

func TestResumeDoesNotReseed(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{text("first"), text("second")}}
	store := newMemStore()
	o := New(client, newRegistry(t), store, WithSystemPrompt("SYS"))

	first, err := o.RunTurn(context.Background(), "one", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.RunTurn(context.Background(), "two", first.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("resumed turn changed id")
	}

	msgs := store.convs[first.ConversationID]
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages after two turns, got %d", len(msgs))
	}
	systems := 0
	for _, m := range msgs {
		if m.Role == "system" {
			systems++
		}
	}
	if systems != 1 {
		t.Fatalf("system prompt seeded %d times", systems)
	}
	if len(client.requests[1].Messages) != 4 {
		t.Fatalf("second call should see the full history, got %d messages", len(client.requests[1].Messages))
	}
}

func TestUnknownConversationStartsFresh(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{text("hi")}}
	store := newMemStore()
	o := New(client, newRegistry(t), store, WithClock(fixedNow))

	resp, err := o.RunTurn(context.Background(), "q", "does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID == "does-not-exist" || !strings.HasPrefix(resp.ConversationID, "20250601_") {
		t.Fatalf("expected a fresh id, got %q", resp.ConversationID)
	}
}

func TestParseTimeoutPolicy(t *testing.T) {
	if p, err := ParseTimeoutPolicy("fold"); err != nil || p != FoldTimeout {
		t.Fatalf("fold: %v %v", p, err)
	}
	if p, err := ParseTimeoutPolicy(""); err != nil || p != AbortOnTimeout {
		t.Fatalf("default: %v %v", p, err)
	}
	if _, err := ParseTimeoutPolicy("retry"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
