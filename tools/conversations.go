package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/tools/base"
)

const lookupLimit = 5

// ConversationSummary is the tool-facing view of an index entry
type ConversationSummary struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
}

func summarize(entries []history.IndexEntry) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, ConversationSummary{
			ID:           e.ID,
			Summary:      e.Summary,
			MessageCount: e.MessageCount,
			LastUpdated:  e.LastUpdated,
		})
	}
	return out
}

// LookupConversationsTool searches past conversation summaries
type LookupConversationsTool struct {
	base.BaseTool
	store history.Store
}

// NewLookupConversationsTool creates lookup_past_conversations
func NewLookupConversationsTool(store history.Store) *LookupConversationsTool {
	return &LookupConversationsTool{
		BaseTool: base.BaseTool{
			ToolName: "lookup_past_conversations",
			ToolDesc: "Search past conversations by topic or content.",
		},
		store: store,
	}
}

// Parameters returns the parameters struct
func (t *LookupConversationsTool) Parameters() interface{} {
	return &base.QueryParams{}
}

// Execute returns the five most recent matches
func (t *LookupConversationsTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args base.QueryParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	res := t.store.Search(ctx, args.Query)
	switch res.Status {
	case history.SearchFailed:
		return Failf(CodeExecutionFailed, "Error searching conversations", res.Err)
	case history.SearchNoMatches:
		return Ok(map[string]string{"message": history.NoMatchesMessage})
	}

	entries := res.Entries
	if len(entries) > lookupLimit {
		entries = entries[:lookupLimit]
	}
	return Ok(map[string]interface{}{"conversations": summarize(entries)})
}

// ListConversationsTool lists every stored conversation
type ListConversationsTool struct {
	base.BaseTool
	store history.Store
}

// NewListConversationsTool creates list_conversations
func NewListConversationsTool(store history.Store) *ListConversationsTool {
	return &ListConversationsTool{
		BaseTool: base.BaseTool{
			ToolName: "list_conversations",
			ToolDesc: "List all stored conversations.",
		},
		store: store,
	}
}

// Parameters returns the parameters struct
func (t *ListConversationsTool) Parameters() interface{} {
	return &base.NoParams{}
}

// Execute lists the index, newest first
func (t *ListConversationsTool) Execute(ctx context.Context, params json.RawMessage) Result {
	entries, err := t.store.List(ctx)
	if err != nil {
		return Failf(CodeExecutionFailed, "Error listing conversations", err)
	}
	return Ok(map[string]interface{}{
		"conversations": summarize(entries),
		"total":         len(entries),
	})
}

// ConversationIDParams identifies one conversation
type ConversationIDParams struct {
	ConversationID string `json:"conversation_id" schema:"required,min:1" description:"ID of the conversation"`
}

// DeleteConversationTool deletes one conversation
type DeleteConversationTool struct {
	base.BaseTool
	store history.Store
}

// NewDeleteConversationTool creates delete_conversation
func NewDeleteConversationTool(store history.Store) *DeleteConversationTool {
	return &DeleteConversationTool{
		BaseTool: base.BaseTool{
			ToolName: "delete_conversation",
			ToolDesc: "Delete a specific conversation.",
		},
		store: store,
	}
}

// Parameters returns the parameters struct
func (t *DeleteConversationTool) Parameters() interface{} {
	return &ConversationIDParams{}
}

// Execute deletes the record and its index entry
func (t *DeleteConversationTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args ConversationIDParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	if err := t.store.Delete(ctx, args.ConversationID); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return Fail(CodeNotFound, "Conversation "+args.ConversationID+" not found")
		}
		return Failf(CodeExecutionFailed, "Error deleting conversation", err)
	}
	return Ok(map[string]interface{}{
		"success":         true,
		"conversation_id": args.ConversationID,
		"action":          "deleted",
	})
}

// ClearHistoryTool removes every conversation
type ClearHistoryTool struct {
	base.BaseTool
	store history.Store
}

// NewClearHistoryTool creates clear_conversation_history
func NewClearHistoryTool(store history.Store) *ClearHistoryTool {
	return &ClearHistoryTool{
		BaseTool: base.BaseTool{
			ToolName: "clear_conversation_history",
			ToolDesc: "Clear all conversation history and index.",
		},
		store: store,
	}
}

// Parameters returns the parameters struct
func (t *ClearHistoryTool) Parameters() interface{} {
	return &base.NoParams{}
}

// Execute clears the store
func (t *ClearHistoryTool) Execute(ctx context.Context, params json.RawMessage) Result {
	if err := t.store.ClearAll(ctx); err != nil {
		return Failf(CodeExecutionFailed, "Error clearing history", err)
	}
	return Ok(map[string]interface{}{
		"success": true,
		"message": "All conversation history cleared",
	})
}
