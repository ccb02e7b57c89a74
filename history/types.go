package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation id has no record
var ErrNotFound = errors.New("conversation not found")

// Conversation is the persisted record of one conversation
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Message represents a conversation message. Content is nil for an
// assistant message that only carries a tool call.
type Message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// IndexEntry is one row of the searchable conversation index
type IndexEntry struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
	Filename     string    `json:"filename"`
}

// SearchStatus distinguishes the outcomes of a search
type SearchStatus int

const (
	SearchMatched SearchStatus = iota
	SearchNoMatches
	SearchFailed
)

// NoMatchesMessage is reported when a search finds nothing
const NoMatchesMessage = "No matching conversations found"

// SearchResult is returned by Store.Search. It is never ambiguous: an empty
// match set has Status SearchNoMatches, an unreadable index SearchFailed.
type SearchResult struct {
	Query   string
	Status  SearchStatus
	Entries []IndexEntry
	Err     error
}

// Found reports whether the search matched at least one entry
func (r SearchResult) Found() bool {
	return r.Status == SearchMatched
}

// Store persists conversations and maintains their summary index.
// Writers of one id are serialized; index updates are atomic per write.
type Store interface {
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, id string, messages []Message) error
	Update(ctx context.Context, id string, messages []Message) error
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Search(ctx context.Context, query string) SearchResult
	List(ctx context.Context) ([]IndexEntry, error)
}

// NewID returns a conversation id derived from the creation time. Ids sort
// by creation second; the suffix keeps ids created in the same second
// distinct.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return now.Format("20060102_150405") + "_" + suffix
}
