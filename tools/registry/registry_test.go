package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gertlabs/gert/deadline"
	"github.com/gertlabs/gert/tools"
)

type echoParams struct {
	Query string `json:"query" schema:"required" description:"text to echo"`
}

type fakeTool struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context, params json.RawMessage) tools.Result
	calls   *int
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) Description() string     { return "fake " + f.name }
func (f *fakeTool) Parameters() interface{} { return &echoParams{} }
func (f *fakeTool) Timeout() time.Duration  { return f.timeout }
func (f *fakeTool) Execute(ctx context.Context, params json.RawMessage) tools.Result {
	if f.calls != nil {
		*f.calls++
	}
	return f.run(ctx, params)
}

func register(t *testing.T, r *Registry, tool *fakeTool) {
	t.Helper()
	if err := r.Register(tool.name, func() tools.Tool { return tool }); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func echo(ctx context.Context, params json.RawMessage) tools.Result {
	var p echoParams
	json.Unmarshal(params, &p)
	return tools.Ok(map[string]string{"echo": p.Query})
}

func TestDispatchUnknownTool(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), "missing", json.RawMessage(`{}`))
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestDispatchSuccess(t *testing.T) {
	r := New()
	calls := 0
	register(t, r, &fakeTool{name: "echo", timeout: time.Second, run: echo, calls: &calls})

	res, err := r.Dispatch(context.Background(), "echo", json.RawMessage(`{"query":"hi"}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.IsErr() {
		t.Fatalf("unexpected error result: %v", res.Err)
	}
	if got := res.Text(); got != `{"echo":"hi"}` {
		t.Fatalf("unexpected payload %s", got)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestDispatchAcceptsStringEncodedArguments(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "echo", timeout: time.Second, run: echo})

	res, err := r.Dispatch(context.Background(), "echo", json.RawMessage(`"{\"query\":\"quoted\"}"`))
	if err != nil || res.Text() != `{"echo":"quoted"}` {
		t.Fatalf("unexpected result %s, %v", res.Text(), err)
	}
}

func TestDispatchValidationIsCallerError(t *testing.T) {
	r := New()
	calls := 0
	register(t, r, &fakeTool{name: "echo", timeout: time.Second, run: echo, calls: &calls})

	res, err := r.Dispatch(context.Background(), "echo", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("validation failures must not be faults: %v", err)
	}
	if !res.IsErr() || res.Err.Code != tools.CodeValidationFailed {
		t.Fatalf("expected validation error result, got %+v", res)
	}
	if !strings.Contains(res.Text(), "query") {
		t.Fatalf("expected the field name in the payload: %s", res.Text())
	}
	if calls != 0 {
		t.Fatalf("handler must not run on invalid arguments")
	}
}

func TestDispatchInvalidJSONShape(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "echo", timeout: time.Second, run: echo})

	res, err := r.Dispatch(context.Background(), "echo", json.RawMessage(`{"query": 42}`))
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if !res.IsErr() || res.Err.Code != tools.CodeInvalidParams {
		t.Fatalf("expected INVALID_PARAMS, got %+v", res)
	}
}

func TestDispatchFoldsPanics(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "boom", timeout: time.Second, run: func(ctx context.Context, _ json.RawMessage) tools.Result {
		panic("nil map")
	}})

	res, err := r.Dispatch(context.Background(), "boom", json.RawMessage(`{"query":"x"}`))
	if err != nil {
		t.Fatalf("panics must be folded, got fault %v", err)
	}
	if !res.IsErr() || !strings.HasPrefix(res.Text(), `{"error":`) {
		t.Fatalf("expected error payload, got %s", res.Text())
	}
}

func TestDispatchTimeoutIsDistinct(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "slow", timeout: 30 * time.Millisecond, run: func(ctx context.Context, _ json.RawMessage) tools.Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return tools.Ok("late")
	}})

	_, err := r.Dispatch(context.Background(), "slow", json.RawMessage(`{"query":"x"}`))
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Tool != "slow" || te.After != 30*time.Millisecond {
		t.Fatalf("unexpected timeout error %+v", te)
	}
	if !errors.Is(err, ErrToolTimeout) || !errors.Is(err, deadline.ErrDeadlineExceeded) {
		t.Fatalf("timeout must match both sentinels")
	}
}

func TestDispatchTimeoutOfCooperativeTool(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "fetch", timeout: 5 * time.Millisecond, run: func(ctx context.Context, _ json.RawMessage) tools.Result {
		<-ctx.Done()
		return tools.Failf(tools.CodeUpstream, "request failed", ctx.Err())
	}})

	for i := 0; i < 200; i++ {
		res, err := r.Dispatch(context.Background(), "fetch", json.RawMessage(`{"query":"x"}`))
		var te *TimeoutError
		if !errors.As(err, &te) {
			t.Fatalf("call %d: expected TimeoutError, got err=%v result=%s", i, err, res.Text())
		}
		if te.Tool != "fetch" {
			t.Fatalf("unexpected timeout error %+v", te)
		}
	}
}

func TestSpecsSortedWithRequired(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "zeta", timeout: time.Second, run: echo})
	register(t, r, &fakeTool{name: "alpha", timeout: time.Second, run: echo})

	specs := r.Specs()
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	first := specs[0]["function"].(map[string]interface{})
	if first["name"] != "alpha" {
		t.Fatalf("expected sorted specs, first was %v", first["name"])
	}
	params := first["parameters"].(map[string]interface{})
	if req := params["required"].([]string); len(req) != 1 || req[0] != "query" {
		t.Fatalf("unexpected required list %v", req)
	}

	if subset := r.SpecsFor("zeta", "nope"); len(subset) != 1 {
		t.Fatalf("expected unknown names to be skipped, got %d", len(subset))
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	register(t, r, &fakeTool{name: "echo", timeout: time.Second, run: echo})
	if err := r.Register("echo", func() tools.Tool { return nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
