// Package chatlog holds the in-memory conversation log and renders it as
// timestamped, labeled lines.
package chatlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/yaan-ai/yaan/internal/theme"
)

const (
	maxEntries        = 500
	DefaultTimeFormat = "15:04:05"
)

// Entry is a single chat log line.
type Entry struct {
	Time   time.Time
	Sender string // theme.SenderSystem, theme.SenderUser, ...
	Text   string
}

// FormatLine renders an entry as "[HH:MM:SS] Sender: text" without styling.
func FormatLine(e Entry, layout string) string {
	if layout == "" {
		layout = DefaultTimeFormat
	}
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format(layout), e.Sender, e.Text)
}

// Model holds chat log state.
type Model struct {
	Entries    []Entry
	TimeFormat string

	markdown  bool
	style     string
	renderers map[int]*glamour.TermRenderer // by wrap width
	now       func() time.Time

	// blocks caches the rendered entry at blocksWidth, parallel to Entries.
	blocks      []string
	blocksWidth int
}

// New creates an empty chat log.
func New() Model {
	return Model{
		TimeFormat: DefaultTimeFormat,
		now:        time.Now,
	}
}

// EnableMarkdown renders assistant entries as Markdown using a glamour
// standard style ("dark", "light", "notty", ...).
func (m *Model) EnableMarkdown(style string) {
	if style == "" {
		style = "dark"
	}
	m.markdown = true
	m.style = style
	m.renderers = make(map[int]*glamour.TermRenderer)
	m.blocks = nil
}

// Add appends an entry stamped with the current time and caps the buffer.
func (m *Model) Add(sender, text string) Entry {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	e := Entry{Time: now(), Sender: sender, Text: text}
	m.Entries = append(m.Entries, e)
	if len(m.blocks) == len(m.Entries)-1 {
		m.blocks = append(m.blocks, "")
	}
	if len(m.Entries) > maxEntries {
		drop := len(m.Entries) - maxEntries
		m.Entries = m.Entries[drop:]
		if len(m.blocks) >= drop {
			m.blocks = m.blocks[drop:]
		}
	}
	return e
}

// Len returns the number of entries held.
func (m Model) Len() int { return len(m.Entries) }

// Render returns the whole log wrapped to width, one blank line between
// entries. Entries are rendered once per width.
func (m *Model) Render(width int) string {
	if width < 20 {
		width = 20
	}
	if len(m.Entries) == 0 {
		return theme.StyleDimmed.Render("No messages yet.")
	}

	if width != m.blocksWidth || len(m.blocks) != len(m.Entries) {
		m.blocks = make([]string, len(m.Entries))
		m.blocksWidth = width
	}
	for i, e := range m.Entries {
		if m.blocks[i] == "" {
			m.blocks[i] = m.renderEntry(e, width)
		}
	}
	return strings.Join(m.blocks, "\n\n")
}

func (m *Model) renderEntry(e Entry, width int) string {
	ts := theme.StyleDimmed.Render("[" + e.Time.Format(m.layout()) + "]")
	sender := lipgloss.NewStyle().Bold(true).Foreground(theme.SenderColor(e.Sender)).Render(e.Sender + ":")
	head := ts + " " + sender

	if m.markdown && e.Sender == theme.SenderAssistant {
		if body, ok := m.renderMarkdown(e.Text, width); ok {
			return head + "\n" + body
		}
	}

	body := e.Text
	if e.Sender == theme.SenderError {
		body = lipgloss.NewStyle().Foreground(theme.ColorError).Render(body)
	}
	return lipgloss.NewStyle().Width(width).Render(head + " " + body)
}

func (m *Model) renderMarkdown(text string, width int) (string, bool) {
	r, ok := m.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return "", false
		}
		m.renderers[width] = r
	}
	out, err := r.Render(text)
	if err != nil {
		return "", false
	}
	return strings.Trim(out, "\n"), true
}

func (m Model) layout() string {
	if m.TimeFormat == "" {
		return DefaultTimeFormat
	}
	return m.TimeFormat
}
