package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the chat styles derived from a theme
type Styles struct {
	Theme Theme

	Header    lipgloss.Style
	Subheader lipgloss.Style
	Input     lipgloss.Style

	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style

	ToolName   lipgloss.Style
	ToolOK     lipgloss.Style
	ToolFailed lipgloss.Style

	ThinkingTag   lipgloss.Style
	ThinkingTrace lipgloss.Style
	Spinner       lipgloss.Style
}

// NewStyles creates a new styles instance with the given theme
func NewStyles(theme Theme) *Styles {
	s := &Styles{Theme: theme}

	s.Header = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	s.Subheader = lipgloss.NewStyle().
		Foreground(theme.TextDim)

	s.Input = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	s.User = lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true)

	s.Assistant = lipgloss.NewStyle().
		Foreground(theme.Text)

	s.System = lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Italic(true)

	s.Error = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true)

	s.ToolName = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true)

	s.ToolOK = lipgloss.NewStyle().
		Foreground(theme.Success)

	s.ToolFailed = lipgloss.NewStyle().
		Foreground(theme.Warning)

	s.ThinkingTag = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Bold(true)

	s.ThinkingTrace = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	s.Spinner = lipgloss.NewStyle().
		Foreground(theme.Primary)

	return s
}

// RenderToolStatus returns a styled one-line tool outcome
func (s *Styles) RenderToolStatus(name string, failed bool) string {
	if failed {
		return s.ToolFailed.Render("✗ ") + s.ToolName.Render(name)
	}
	return s.ToolOK.Render("✓ ") + s.ToolName.Render(name)
}
