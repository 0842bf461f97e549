package chat

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the console color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Bubble     lipgloss.Color // header background
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

var (
	lightTheme = Theme{
		Foreground: "#111b21",
		Bubble:     "#075e54",
		Accent:     "#25d366",
		Muted:      "#667781",
		Border:     "#d1d7db",
	}
	darkTheme = Theme{
		Foreground: "#e9edef",
		Bubble:     "#005c4b",
		Accent:     "#00a884",
		Muted:      "#8696a0",
		Border:     "#2a3942",
		IsDark:     true,
	}
)

// LightTheme returns the light mode theme
func LightTheme() Theme { return lightTheme }

// DarkTheme returns the dark mode theme
func DarkTheme() Theme { return darkTheme }

// DetectTheme picks dark mode when COLORFGBG reports a dark background
// (index 0-6 or 8) or JARVIS_DARK_MODE=1.
func DetectTheme() Theme {
	if os.Getenv("JARVIS_DARK_MODE") == "1" {
		return darkTheme
	}
	fgbg := os.Getenv("COLORFGBG")
	if i := strings.LastIndex(fgbg, ";"); i >= 0 {
		if bg, err := strconv.Atoi(fgbg[i+1:]); err == nil && (bg <= 6 || bg == 8) && bg >= 0 {
			return darkTheme
		}
	}
	return lightTheme
}

// Styles are the rendered pieces of the console.
type Styles struct {
	Theme Theme

	Header         lipgloss.Style
	Footer         lipgloss.Style
	Prompt         lipgloss.Style
	UserInput      lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	AgentResponse  lipgloss.Style
	Spinner        lipgloss.Style
	Divider        lipgloss.Style
}

// NewStyles derives every style from theme.
func NewStyles(theme Theme) Styles {
	fg := lipgloss.NewStyle().Foreground(theme.Foreground)
	label := fg.Bold(true).MarginTop(1)

	return Styles{
		Theme:          theme,
		Header:         lipgloss.NewStyle().Background(theme.Bubble).Foreground(lipgloss.Color("#ffffff")).Bold(true).Padding(0, 2),
		Footer:         lipgloss.NewStyle().Foreground(theme.Muted).Padding(0, 2),
		Prompt:         lipgloss.NewStyle().Foreground(theme.Accent).Bold(true),
		UserInput:      fg,
		UserLabel:      label.Foreground(theme.Bubble),
		AssistantLabel: label.Foreground(theme.Accent),
		AgentResponse: fg.PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent),
		Spinner: lipgloss.NewStyle().Foreground(theme.Accent),
		Divider: lipgloss.NewStyle().Foreground(theme.Border),
	}
}

// RenderDivider returns a horizontal rule width cells wide.
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", max(width, 1)))
}
