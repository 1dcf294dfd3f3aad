package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/yaan-ai/yaan/internal/client"
	"github.com/yaan-ai/yaan/internal/theme"
	"github.com/yaan-ai/yaan/internal/views/chatlog"
	"github.com/yaan-ai/yaan/internal/views/status"
)

// Session is the part of client.Session the TUI drives.
type Session interface {
	Connect(ctx context.Context) error
	SendCommand(text string)
	Close() error
	URL() string
}

// EventMsg carries a session event into the Bubble Tea loop.
type EventMsg client.Event

// Forward returns a session handler that delivers every event with send,
// typically tea.Program.Send.
func Forward(send func(tea.Msg)) client.Handler {
	return client.HandlerFunc(func(ev client.Event) {
		send(EventMsg(ev))
	})
}

// Options tunes the presentation.
type Options struct {
	Markdown      bool
	MarkdownStyle string
	TimeFormat    string
	Logger        zerolog.Logger
}

// chrome is the number of rows used by the status bar, input box and help.
const chrome = 7

// Model is the root Bubble Tea model.
type Model struct {
	session Session
	out     *outbox
	ctx     context.Context
	cancel  context.CancelFunc
	log     zerolog.Logger

	keys   KeyMap
	width  int
	height int

	statusBar status.Model
	chat      chatlog.Model
	viewport  viewport.Model
	input     textinput.Model
	scroll    scroller

	// Connection state.
	connected bool
	quitting  bool
}

// New creates the root model around a session that has not been connected yet.
func New(s Session, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.Placeholder = "Type your message or command..."
	ti.Prompt = "> "
	ti.Focus()

	chat := chatlog.New()
	if opts.TimeFormat != "" {
		chat.TimeFormat = opts.TimeFormat
	}
	if opts.Markdown {
		chat.EnableMarkdown(opts.MarkdownStyle)
	}
	chat.Add(theme.SenderSystem, "Welcome to YAAN!")
	chat.Add(theme.SenderSystem, "Connecting to server...")

	url := ""
	if s != nil {
		url = s.URL()
	}

	m := Model{
		session:   s,
		ctx:       ctx,
		cancel:    cancel,
		log:       opts.Logger.With().Str("component", "tui").Logger(),
		keys:      DefaultKeyMap(),
		statusBar: status.New(url),
		chat:      chat,
		viewport:  viewport.New(0, 0),
		input:     ti,
		scroll:    newScroller(),
	}
	if s != nil {
		m.out = newOutbox(s.SendCommand)
	}
	m.statusBar.Messages = m.chat.Len()
	return m
}

// Init starts the connection attempt.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.connect())
}

func (m Model) connect() tea.Cmd {
	if m.session == nil {
		return nil
	}
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		// Failures arrive as EventMsg.
		_ = s.Connect(ctx)
		return nil
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.input.Width = max(msg.Width-6, 10)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 3)
		m.viewport.SetContent(m.chat.Render(m.viewport.Width))
		m.viewport.GotoBottom()
		m.scroll.stop()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(client.Event(msg))

	case scrollTickMsg:
		if !m.scroll.current(msg) {
			return m, nil
		}
		offset, settled := m.scroll.step()
		m.viewport.SetYOffset(offset)
		if settled {
			return m, nil
		}
		return m, scrollTick(m.scroll.gen)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(ev client.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case client.EventConnected:
		m.connected = true
		m.statusBar.Conn = status.Online
		return m.appendLine(theme.SenderSystem, "Connected to YAAN backend successfully!")

	case client.EventDisconnected:
		m.connected = false
		m.statusBar.Conn = status.Offline
		m.log.Info().Int("code", ev.Code).Str("reason", ev.Reason).Msg("disconnected")
		if m.quitting {
			return m, tea.Quit
		}
		return m.appendLine(theme.SenderSystem, "Disconnected from backend.")

	case client.EventMessage:
		return m.appendLine(theme.SenderAssistant, ev.Text)

	case client.EventError:
		if errors.Is(ev.Err, client.ErrConnection) {
			m.statusBar.Conn = status.Offline
			if m.quitting {
				return m, tea.Quit
			}
		}
		text := "unknown error"
		if ev.Err != nil {
			text = ev.Err.Error()
		}
		m.log.Warn().Err(ev.Err).Msg("session error")
		return m.appendLine(theme.SenderError, text)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.Voice):
		if !m.connected {
			return m, nil
		}
		return m.appendLine(theme.SenderSystem, "Voice input feature coming soon!")

	case key.Matches(msg, m.keys.PageUp):
		m.scroll.stop()
		m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height)
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.scroll.stop()
		m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height)
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		cmd := m.scroll.start(m.viewport.YOffset, m.maxOffset())
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line. Empty input and input typed while offline or
// closing are ignored and left in place.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || !m.connected || m.quitting || m.out == nil {
		return m, nil
	}
	if !m.out.push(text) {
		return m.appendLine(theme.SenderError, "Too many pending messages, try again shortly.")
	}
	m.input.Reset()
	return m.appendLine(theme.SenderUser, text)
}

// quit closes the session and waits for its disconnect before leaving. A
// second quit key press leaves immediately.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting || !m.connected {
		m.shutdown()
		return m, tea.Quit
	}
	m.quitting = true
	m.statusBar.Conn = status.Offline
	if m.out != nil {
		m.out.close()
	}
	if err := m.session.Close(); err != nil {
		m.log.Warn().Err(err).Msg("close failed")
	}
	return m, nil
}

func (m Model) shutdown() {
	m.cancel()
	if m.out != nil {
		m.out.close()
	}
	if m.session != nil {
		_ = m.session.Close()
	}
}

// appendLine adds a chat entry and follows the newest line when the view
// was already at the bottom.
func (m Model) appendLine(sender, text string) (tea.Model, tea.Cmd) {
	m.chat.Add(sender, text)
	m.statusBar.Messages = m.chat.Len()
	if m.width == 0 {
		return m, nil
	}

	follow := m.viewport.AtBottom() || m.scroll.active
	from := m.viewport.YOffset
	m.viewport.SetContent(m.chat.Render(m.viewport.Width))
	if !follow {
		return m, nil
	}
	m.viewport.SetYOffset(from)
	cmd := m.scroll.start(from, m.maxOffset())
	return m, cmd
}

func (m Model) maxOffset() int {
	return max(m.viewport.TotalLineCount()-m.viewport.Height, 0)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	inputBox := theme.StyleBorder.
		Width(max(m.width-2, 10)).
		Render(m.input.View())

	sections := []string{
		m.statusBar.View(),
		m.viewport.View(),
		inputBox,
		theme.StyleDimmed.Render("  enter:send  pgup/pgdn:scroll  ctrl+g:latest  ctrl+v:voice  esc:quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
