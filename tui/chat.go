package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/gertlabs/gert/tui/styles"
)

// chromeHeight is the number of rows taken by the header and input box
const chromeHeight = 8

// Options configures the chat model
type Options struct {
	Model          string
	ConversationID string
	Tools          []string
	Transcript     []ChatMessage
	Theme          string
	ShowThinking   bool
}

// Model is the bubbletea chat model
type Model struct {
	runner Runner
	opts   Options
	styles *styles.Styles
	keys   KeyMap

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	conversationID string
	messages       []ChatMessage
	busy           bool
	cancel         context.CancelFunc

	width  int
	height int
	ready  bool
}

// New creates the chat model
func New(runner Runner, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask anything... (/help for commands)"
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	st := styles.NewStyles(styles.GetTheme(opts.Theme))

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = st.Spinner

	return Model{
		runner:         runner,
		opts:           opts,
		styles:         st,
		keys:           DefaultKeyMap(),
		textarea:       ta,
		spinner:        sp,
		renderer:       newRenderer(wrapWidth),
		conversationID: opts.ConversationID,
		messages:       append([]ChatMessage(nil), opts.Transcript...),
	}
}

// ConversationID returns the conversation the next turn continues
func (m Model) ConversationID() string {
	return m.conversationID
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - chromeHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.renderer = newRenderer(msg.Width - 4)
		m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.messages = nil
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Send):
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.command(input)
			}
			return m.send(input)
		}

	case turnDoneMsg:
		m.busy = false
		m.cancel = nil
		m.finishTurn(msg)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.busy {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "\nInitializing..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("gert") + m.styles.Subheader.Render(" | model: "+m.opts.Model))
	b.WriteString("\n")
	b.WriteString(m.styles.Subheader.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " Thinking...")
	} else {
		b.WriteString(m.styles.Input.Render(m.textarea.View()))
	}
	return b.String()
}

func (m Model) statusLine() string {
	conv := "new conversation"
	if m.conversationID != "" {
		conv = "conversation " + m.conversationID
	}
	return fmt.Sprintf("%s | %d tools | /help /new /tools /quit", conv, len(m.opts.Tools))
}

func (m Model) command(input string) (tea.Model, tea.Cmd) {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/new":
		m.conversationID = ""
		m.messages = nil
		m.add(ChatMessage{Role: RoleSystem, Content: "Started a new conversation"})
	case "/tools":
		m.add(ChatMessage{Role: RoleSystem, Content: "Tools: " + strings.Join(m.opts.Tools, ", ")})
	case "/thinking":
		m.opts.ShowThinking = !m.opts.ShowThinking
		state := "hidden"
		if m.opts.ShowThinking {
			state = "shown"
		}
		m.add(ChatMessage{Role: RoleSystem, Content: "Thinking traces " + state})
	case "/help":
		m.add(ChatMessage{Role: RoleSystem, Content: helpText})
	default:
		m.add(ChatMessage{Role: RoleSystem, Content: "Unknown command " + input + ", try /help"})
	}
	m.refresh()
	return m, nil
}

func (m Model) send(input string) (tea.Model, tea.Cmd) {
	m.add(ChatMessage{Role: RoleUser, Content: input})
	m.busy = true
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	runner, id := m.runner, m.conversationID

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		defer cancel()
		resp, err := runner.RunTurn(ctx, input, id)
		return turnDoneMsg{resp: resp, err: err}
	})
}

func (m *Model) finishTurn(msg turnDoneMsg) {
	if msg.resp != nil && msg.resp.Tool != nil {
		m.add(ChatMessage{Role: RoleTool, Tool: msg.resp.Tool.Name, ToolFailed: msg.resp.Tool.Failed})
	}
	if msg.err != nil {
		m.add(ChatMessage{Role: RoleError, Content: msg.err.Error()})
		return
	}
	if msg.resp == nil {
		return
	}
	m.conversationID = msg.resp.ConversationID
	m.add(ChatMessage{Role: RoleAssistant, Content: msg.resp.Content})
}

func (m *Model) add(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.messages = append(m.messages, msg)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	width := m.width - 2
	if width < 10 {
		width = 10
	}
	parts := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		parts = append(parts, renderMessage(m.styles, m.renderer, m.opts.ShowThinking, width, msg))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	m.viewport.GotoBottom()
}

// Run starts the chat program and blocks until the user quits. It returns
// the id of the last conversation touched.
func Run(runner Runner, opts Options) (string, error) {
	p := tea.NewProgram(New(runner, opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if fm, ok := final.(Model); ok {
		return fm.ConversationID(), nil
	}
	return "", nil
}

const helpText = `Commands:
/new      - start a new conversation
/tools    - list available tools
/thinking - show or hide thinking traces
/help     - show this help
/quit     - exit`
