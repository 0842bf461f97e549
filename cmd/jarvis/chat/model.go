// Package chat is the interactive terminal console for jarvis. Every line
// typed is routed exactly like an inbound WhatsApp message from one sender.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 1
	footerHeight = 1
	inputHeight  = 2
)

// Router is the part of the intent router the console needs.
type Router interface {
	Route(ctx context.Context, sender, text string) string
}

// Message is one line of the conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Time    time.Time
}

// replyMsg carries a routed reply back into the update loop.
type replyMsg struct {
	text    string
	elapsed time.Duration
}

// Model is the bubbletea model of the console.
type Model struct {
	router  Router
	sender  string
	timeout time.Duration

	styles   Styles
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history []Message
	loading bool
	ready   bool
	width   int
	height  int
	last    time.Duration
}

// New creates a console routing every line as sender.
func New(r Router, sender string, timeout time.Duration) Model {
	styles := NewStyles(DetectTheme())

	ti := textinput.New()
	ti.Placeholder = "Escribe un mensaje... (Enter para enviar, Ctrl+C para salir)"
	ti.Focus()
	ti.Prompt = "| "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return Model{
		router:   r,
		sender:   sender,
		timeout:  timeout,
		styles:   styles,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		renderer: newRenderer(styles.Theme, 80),
	}
}

func newRenderer(theme Theme, width int) *glamour.TermRenderer {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// History returns the conversation so far.
func (m Model) History() []Message {
	return m.history
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			switch text {
			case "":
				return m, nil
			case "/quit", "/exit":
				return m, tea.Quit
			case "/clear":
				m.history = nil
				m.refresh()
				return m, nil
			}
			m.history = append(m.history, Message{Role: "user", Content: text, Time: time.Now()})
			m.loading = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.send(text))
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := msg.Height - headerHeight - footerHeight - inputHeight
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
		m.input.Width = msg.Width - 4
		if wrap := msg.Width - 6; wrap > 20 {
			m.renderer = newRenderer(m.styles.Theme, wrap)
		}
		m.refresh()

	case replyMsg:
		m.loading = false
		m.last = msg.elapsed
		m.history = append(m.history, Message{Role: "assistant", Content: msg.text, Time: time.Now()})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// send routes text off the update loop.
func (m Model) send(text string) tea.Cmd {
	r, sender, timeout := m.router, m.sender, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		reply := r.Route(ctx, sender, text)
		return replyMsg{text: reply, elapsed: time.Since(start)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			sb.WriteString(m.styles.UserLabel.Render("Tú") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n\n")
		default:
			sb.WriteString(m.styles.AssistantLabel.Render("Jarvis") + "\n")
			sb.WriteString(m.styles.AgentResponse.Render(m.safeRenderMarkdown(msg.Content)))
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// safeRenderMarkdown falls back to plain text when glamour fails or panics.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return content
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Width(m.width).Render("Jarvis · " + m.sender)

	status := "Enter envía · /clear limpia · Ctrl+C sale"
	if m.loading {
		status = m.spinner.View() + " pensando..."
	} else if m.last > 0 {
		status = "última respuesta en " + m.last.Round(time.Millisecond).String() + " · " + status
	}
	footer := m.styles.Footer.Render(status)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.styles.RenderDivider(m.width),
		m.input.View(),
		footer,
	)
}
