package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gertlabs/gert/history"
)

func newStore(t *testing.T, summaries ...string) *history.Manager {
	t.Helper()
	i := 0
	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m, err := history.NewManager(t.TempDir(),
		history.SummarizerFunc(func(ctx context.Context, transcript string) (string, error) {
			s := summaries[i%len(summaries)]
			i++
			return s, nil
		}),
		history.WithClock(func() time.Time { clock = clock.Add(time.Minute); return clock }),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func saveN(t *testing.T, store history.Store, n int) {
	t.Helper()
	hi := "hi"
	for i := 0; i < n; i++ {
		if err := store.Save(context.Background(), fmt.Sprintf("c%d", i), []history.Message{{Role: "user", Content: &hi}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func TestLookupPastConversations(t *testing.T) {
	store := newStore(t, "Talked about the weather")
	saveN(t, store, 7)
	tool := NewLookupConversationsTool(store)

	out := decodePayload(t, tool.Execute(context.Background(), json.RawMessage(`{"query":"WEATHER"}`)))
	convs := out["conversations"].([]interface{})
	if len(convs) != 5 {
		t.Fatalf("expected top 5, got %d", len(convs))
	}
	if convs[0].(map[string]interface{})["id"] != "c6" {
		t.Fatalf("expected newest first, got %v", convs[0])
	}

	none := tool.Execute(context.Background(), json.RawMessage(`{"query":"quantum"}`))
	if none.IsErr() || none.Text() != `{"message":"No matching conversations found"}` {
		t.Fatalf("unexpected no-match result %s", none.Text())
	}
}

func TestListDeleteClearConversations(t *testing.T) {
	store := newStore(t, "s")
	saveN(t, store, 3)
	ctx := context.Background()

	out := decodePayload(t, NewListConversationsTool(store).Execute(ctx, json.RawMessage(`{}`)))
	if out["total"] != float64(3) {
		t.Fatalf("unexpected total %v", out["total"])
	}

	del := NewDeleteConversationTool(store)
	if r := del.Execute(ctx, json.RawMessage(`{"conversation_id":"c1"}`)); r.IsErr() {
		t.Fatalf("delete failed: %v", r.Err)
	}
	missing := del.Execute(ctx, json.RawMessage(`{"conversation_id":"c1"}`))
	if !missing.IsErr() || missing.Err.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", missing)
	}

	if r := NewClearHistoryTool(store).Execute(ctx, json.RawMessage(`{}`)); r.IsErr() {
		t.Fatalf("clear failed: %v", r.Err)
	}
	entries, _ := store.List(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(entries))
	}
}
