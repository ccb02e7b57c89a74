package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gertlabs/gert/tui/styles"
)

const wrapWidth = 100

func newRenderer(width int) *glamour.TermRenderer {
	if width <= 0 || width > wrapWidth {
		width = wrapWidth
	}
	// notty keeps answers readable on any terminal background
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

var thinkTraceRe = regexp.MustCompile(`(?is)<think>\s*(.*?)\s*</think>`)

// splitThinkingTrace separates <think> blocks emitted by reasoning models
// from the answer.
func splitThinkingTrace(content string) (trace string, answer string) {
	if strings.TrimSpace(content) == "" {
		return "", ""
	}
	matches := thinkTraceRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return "", content
	}

	traces := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := strings.TrimSpace(m[1]); t != "" {
			traces = append(traces, t)
		}
	}
	return strings.Join(traces, "\n\n"), strings.TrimSpace(thinkTraceRe.ReplaceAllString(content, ""))
}

func renderMarkdown(r *glamour.TermRenderer, content string) string {
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func renderMessage(s *styles.Styles, r *glamour.TermRenderer, showThinking bool, width int, m ChatMessage) string {
	switch m.Role {
	case RoleUser:
		return s.User.Render("> ") + lipgloss.NewStyle().Width(width).Render(m.Content)
	case RoleAssistant:
		trace, answer := splitThinkingTrace(m.Content)
		var sections []string
		if trace != "" && showThinking {
			sections = append(sections, fmt.Sprintf("%s\n%s\n%s",
				s.ThinkingTag.Render("<thinking>"),
				s.ThinkingTrace.Width(width).Render(trace),
				s.ThinkingTag.Render("</thinking>"),
			))
		}
		if answer != "" {
			sections = append(sections, renderMarkdown(r, answer))
		}
		return strings.Join(sections, "\n\n")
	case RoleTool:
		return s.RenderToolStatus(m.Tool, m.ToolFailed)
	case RoleError:
		return s.Error.Render("Error: ") + m.Content
	default:
		return s.System.Render(m.Content)
	}
}
