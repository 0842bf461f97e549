package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRouter struct {
	mu   sync.Mutex
	seen []string
}

func (e *echoRouter) Route(_ context.Context, sender, text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, sender+":"+text)
	return "eco: " + text
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

// drain runs cmd and feeds every resulting replyMsg back into the model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	var cmds []tea.Cmd
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		cmds = msg
	default:
		next, _ := m.Update(msg)
		return next.(Model)
	}
	for _, c := range cmds {
		if c == nil {
			continue
		}
		if reply, ok := c().(replyMsg); ok {
			next, _ := m.Update(reply)
			m = next.(Model)
		}
	}
	return m
}

func sized(t *testing.T, r Router) Model {
	t.Helper()
	m := New(r, "console", time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestViewBeforeResize(t *testing.T) {
	m := New(&echoRouter{}, "console", 0)
	assert.Equal(t, "Initializing...", m.View())
}

func TestSendRoutesAndRecordsReply(t *testing.T) {
	r := &echoRouter{}
	m := sized(t, r)
	m = typeText(t, m, "idea pan")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.True(t, m.loading)
	assert.Empty(t, m.input.Value())

	m = drain(t, m, cmd)
	assert.False(t, m.loading)

	require.Len(t, m.History(), 2)
	assert.Equal(t, "user", m.History()[0].Role)
	assert.Equal(t, "idea pan", m.History()[0].Content)
	assert.Equal(t, "assistant", m.History()[1].Role)
	assert.Equal(t, "eco: idea pan", m.History()[1].Content)
	assert.Equal(t, []string{"console:idea pan"}, r.seen)
	assert.Contains(t, m.View(), "Jarvis")
}

func TestEmptyInputIsIgnored(t *testing.T) {
	m := sized(t, &echoRouter{})
	m = typeText(t, m, "   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, next.(Model).History())
}

func TestClearCommand(t *testing.T) {
	m := sized(t, &echoRouter{})
	m.history = []Message{{Role: "user", Content: "x"}}
	m = typeText(t, m, "/clear")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, next.(Model).History())
}

func TestQuitKeys(t *testing.T) {
	m := sized(t, &echoRouter{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = typeText(t, m, "/quit")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEnterWhileLoadingIsIgnored(t *testing.T) {
	m := sized(t, &echoRouter{})
	m.loading = true
	m = typeText(t, m, "hola")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("JARVIS_DARK_MODE", "")
	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "0;15")
	assert.False(t, DetectTheme().IsDark)

	t.Setenv("JARVIS_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark)
}
