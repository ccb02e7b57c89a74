package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gertlabs/gert/deadline"
	"github.com/gertlabs/gert/llm"
)

const (
	// transcriptLimit caps the summarizer input in characters
	transcriptLimit = 2000
	// DefaultSummaryTimeout bounds one summarization call
	DefaultSummaryTimeout = 60 * time.Second

	summaryPrompt = "Summarize this conversation in 1-2 concise sentences. " +
		"Focus on the main topic and any key outcomes or decisions.\n\nConversation:\n%s\n\nSummary:"
)

// Summarizer produces a short natural-language summary of a transcript
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer
type SummarizerFunc func(ctx context.Context, transcript string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

// LLMSummarizer asks a chat model for the summary
type LLMSummarizer struct {
	Client llm.Client
	Model  string
}

// Summarize implements Summarizer
func (s *LLMSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := s.Client.Chat(ctx, &llm.ChatRequest{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: llm.StringPtr(fmt.Sprintf(summaryPrompt, transcript))},
		},
	})
	if err != nil {
		return "", err
	}
	msg, err := llm.FirstMessage(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(llm.GetStringValue(msg.Content)), nil
}

// Transcript renders user and assistant turns as "User: ..." and
// "Assistant: ..." lines, truncated to transcriptLimit characters.
func Transcript(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Content == nil || *msg.Content == "" {
			continue
		}
		switch msg.Role {
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(*msg.Content)
		b.WriteString("\n")
	}

	text := b.String()
	if runes := []rune(text); len(runes) > transcriptLimit {
		return string(runes[:transcriptLimit]) + "..."
	}
	return text
}

// indexer builds index entries; shared by the file and redis stores
type indexer struct {
	summarizer Summarizer
	timeout    time.Duration
}

// summarize never fails: errors become the summary text so the entry is
// still written.
func (ix indexer) summarize(ctx context.Context, messages []Message) string {
	if ix.summarizer == nil {
		return fallbackSummary(messages)
	}
	summary, err := deadline.Run(ctx, ix.timeout, func(ctx context.Context) (string, error) {
		return ix.summarizer.Summarize(ctx, Transcript(messages))
	})
	if err != nil {
		return "Error generating summary: " + err.Error()
	}
	if summary == "" {
		return fallbackSummary(messages)
	}
	return summary
}

// fallbackSummary uses the first user line when no summarizer is set
func fallbackSummary(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content != nil && *msg.Content != "" {
			content := *msg.Content
			if idx := strings.IndexByte(content, '\n'); idx != -1 {
				content = content[:idx]
			}
			if runes := []rune(content); len(runes) > 100 {
				content = string(runes[:97]) + "..."
			}
			return content
		}
	}
	return "Empty conversation"
}
