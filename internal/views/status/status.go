package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/yaan-ai/yaan/internal/theme"
)

// Conn is the connection indicator shown in the bar.
type Conn int

const (
	Connecting Conn = iota
	Online
	Offline
)

// Model holds the status bar state.
type Model struct {
	Conn     Conn
	URL      string
	Messages int
	Width    int
}

// New creates a status bar model for the given server URL.
func New(url string) Model {
	return Model{URL: url}
}

// Label returns the indicator text for the current connection state.
func (m Model) Label() string {
	switch m.Conn {
	case Online:
		return "● Online"
	case Offline:
		return "● Offline"
	default:
		return "● Connecting..."
	}
}

func (m Model) color() lipgloss.Color {
	switch m.Conn {
	case Online:
		return theme.ColorOnline
	case Offline:
		return theme.ColorOffline
	default:
		return theme.ColorConnecting
	}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	title := theme.StyleTitle.Render("YAAN")
	connStr := lipgloss.NewStyle().Foreground(m.color()).Render(m.Label())
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	info := theme.StyleDimmed.Render(fmt.Sprintf("%s  %d messages", m.URL, m.Messages))

	content := title + " " + connStr + sep + info

	return lipgloss.NewStyle().
		Width(width-2).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
