// Package tui is the terminal chat front end over the turn loop.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"github.com/gertlabs/gert/agent"
	"github.com/gertlabs/gert/history"
)

// Runner runs one conversational turn
type Runner interface {
	RunTurn(ctx context.Context, utterance, conversationID string) (*agent.Response, error)
}

// ChatMessage is one rendered entry of the transcript
type ChatMessage struct {
	Role       string
	Content    string
	Tool       string
	ToolFailed bool
	Timestamp  time.Time
}

// Roles shown in the transcript
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
	RoleError     = "error"
)

// TranscriptFrom turns a stored conversation into chat entries. System
// messages and bare tool-call messages are skipped.
func TranscriptFrom(conv *history.Conversation) []ChatMessage {
	if conv == nil {
		return nil
	}
	out := make([]ChatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		switch m.Role {
		case "user", "assistant":
			if m.Content == nil {
				continue
			}
			out = append(out, ChatMessage{Role: m.Role, Content: *m.Content, Timestamp: conv.UpdatedAt})
		case "tool":
			out = append(out, ChatMessage{Role: RoleTool, Tool: m.Name, Timestamp: conv.UpdatedAt})
		}
	}
	return out
}

// KeyMap defines key bindings
type KeyMap struct {
	Quit  key.Binding
	Send  key.Binding
	Clear key.Binding
}

// DefaultKeyMap returns default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send message"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear screen"),
		),
	}
}

// turnDoneMsg carries the outcome of RunTurn back to the update loop
type turnDoneMsg struct {
	resp *agent.Response
	err  error
}
