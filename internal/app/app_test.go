package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yaan-ai/yaan/internal/client"
	"github.com/yaan-ai/yaan/internal/views/status"
)

type fakeSession struct {
	mu     sync.Mutex
	sent   chan string
	closed int
}

func newFakeSession() *fakeSession {
	return &fakeSession{sent: make(chan string, 16)}
}

func (f *fakeSession) Connect(context.Context) error { return nil }
func (f *fakeSession) SendCommand(text string)       { f.sent <- text }
func (f *fakeSession) URL() string                   { return "ws://test.local/ws" }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func sized(t *testing.T, s Session) Model {
	t.Helper()
	m := New(s, Options{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func enter(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	return m
}

func connected(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, EventMsg{Kind: client.EventConnected})
	return m
}

func lastEntry(m Model) (string, string) {
	e := m.chat.Entries[len(m.chat.Entries)-1]
	return e.Sender, e.Text
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestInitialView(t *testing.T) {
	m := New(nil, Options{})
	if v := m.View(); v != "Initializing..." {
		t.Errorf("View before size = %q", v)
	}

	m = sized(t, nil)
	v := m.View()
	for _, want := range []string{"YAAN", "Welcome to YAAN!", "Connecting to server...", "Connecting..."} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestConnectedEvent(t *testing.T) {
	m := connected(t, sized(t, newFakeSession()))
	if !m.connected || m.statusBar.Conn != status.Online {
		t.Fatal("expected online after Connected")
	}
	sender, text := lastEntry(m)
	if sender != "System" || text != "Connected to YAAN backend successfully!" {
		t.Errorf("last entry = %s: %s", sender, text)
	}
}

func TestSubmitSendsAndEchoes(t *testing.T) {
	fs := newFakeSession()
	m := connected(t, sized(t, fs))
	m = typeText(t, m, "  what time is it  ")
	m = enter(t, m)

	select {
	case got := <-fs.sent:
		if got != "what time is it" {
			t.Errorf("sent %q, want trimmed text", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nothing sent")
	}

	sender, text := lastEntry(m)
	if sender != "You" || text != "what time is it" {
		t.Errorf("last entry = %s: %s", sender, text)
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestSubmitIgnoredWhenBlankOrOffline(t *testing.T) {
	fs := newFakeSession()
	m := sized(t, fs)

	m = typeText(t, m, "hello")
	before := m.chat.Len()
	m = enter(t, m)
	if m.chat.Len() != before {
		t.Error("offline submit should not add a line")
	}
	if m.input.Value() != "hello" {
		t.Errorf("offline submit should keep input, got %q", m.input.Value())
	}

	m = connected(t, m)
	m.input.SetValue("   ")
	before = m.chat.Len()
	m = enter(t, m)
	if m.chat.Len() != before {
		t.Error("blank submit should not add a line")
	}

	select {
	case got := <-fs.sent:
		t.Errorf("unexpected send %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMessageAndErrorEvents(t *testing.T) {
	m := connected(t, sized(t, newFakeSession()))

	m, _ = update(t, m, EventMsg{Kind: client.EventMessage, Text: "Hello!"})
	if sender, text := lastEntry(m); sender != "YAAN" || text != "Hello!" {
		t.Errorf("last entry = %s: %s", sender, text)
	}

	decodeErr := &client.Error{Kind: client.ErrDecode, Msg: "Failed to parse message", Err: errors.New("bad json")}
	m, _ = update(t, m, EventMsg{Kind: client.EventError, Err: decodeErr})
	sender, text := lastEntry(m)
	if sender != "Error" || !strings.HasPrefix(text, "Failed to parse message") {
		t.Errorf("last entry = %s: %s", sender, text)
	}
	if m.statusBar.Conn != status.Online {
		t.Error("decode error should not change connection state")
	}
}

func TestConnectFailureShowsOffline(t *testing.T) {
	m := sized(t, newFakeSession())
	connErr := &client.Error{Kind: client.ErrConnection, Msg: "Connection failed", Err: errors.New("refused")}
	m, _ = update(t, m, EventMsg{Kind: client.EventError, Err: connErr})

	if m.statusBar.Conn != status.Offline {
		t.Errorf("status = %v, want offline", m.statusBar.Conn)
	}
	if sender, _ := lastEntry(m); sender != "Error" {
		t.Errorf("last sender = %s", sender)
	}
}

func TestDisconnectedEvent(t *testing.T) {
	m := connected(t, sized(t, newFakeSession()))
	m, cmd := update(t, m, EventMsg{Kind: client.EventDisconnected, Code: 1001, Reason: "going away"})
	if m.connected || m.statusBar.Conn != status.Offline {
		t.Error("expected offline after Disconnected")
	}
	if isQuit(cmd) {
		t.Error("unrequested disconnect should not quit")
	}
	if _, text := lastEntry(m); text != "Disconnected from backend." {
		t.Errorf("last entry = %q", text)
	}
}

func TestVoicePlaceholder(t *testing.T) {
	m := sized(t, newFakeSession())
	before := m.chat.Len()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if m.chat.Len() != before {
		t.Error("voice key should do nothing while offline")
	}

	m = connected(t, m)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if _, text := lastEntry(m); text != "Voice input feature coming soon!" {
		t.Errorf("last entry = %q", text)
	}
}

func TestQuitWaitsForDisconnect(t *testing.T) {
	fs := newFakeSession()
	m := connected(t, sized(t, fs))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if isQuit(cmd) {
		t.Fatal("quit should wait for the close handshake")
	}
	if fs.closeCount() != 1 {
		t.Fatalf("Close called %d times, want 1", fs.closeCount())
	}

	_, cmd = update(t, m, EventMsg{Kind: client.EventDisconnected, Code: 1000, Reason: client.CloseReason})
	if !isQuit(cmd) {
		t.Error("expected quit after disconnect")
	}
}

func TestQuitTwiceForces(t *testing.T) {
	m := connected(t, sized(t, newFakeSession()))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("second quit should leave immediately")
	}
}

func TestQuitWhileOffline(t *testing.T) {
	m := sized(t, newFakeSession())
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !isQuit(cmd) {
		t.Error("offline quit should leave immediately")
	}
}

func TestForwardDeliversEvents(t *testing.T) {
	var got []tea.Msg
	h := Forward(func(msg tea.Msg) { got = append(got, msg) })
	h.OnConnected()
	h.OnMessage("hi")
	h.OnDisconnected(1000, "bye")

	if len(got) != 3 {
		t.Fatalf("got %d messages", len(got))
	}
	if ev := got[1].(EventMsg); ev.Kind != client.EventMessage || ev.Text != "hi" {
		t.Errorf("second message = %+v", ev)
	}
	if ev := got[2].(EventMsg); ev.Code != 1000 || ev.Reason != "bye" {
		t.Errorf("third message = %+v", ev)
	}
}

func TestScrollerSettles(t *testing.T) {
	s := newScroller()
	if cmd := s.start(0, 20); cmd == nil {
		t.Fatal("expected tick command")
	}
	if cmd := s.start(0, 25); cmd != nil {
		t.Error("retarget while active should not start a second tick")
	}

	var pos int
	settled := false
	for i := 0; i < 600 && !settled; i++ {
		pos, settled = s.step()
	}
	if !settled || pos != 25 {
		t.Errorf("scroller ended at %d (settled=%v), want 25", pos, settled)
	}
}

func TestSubmitIgnoredWhileClosing(t *testing.T) {
	fs := newFakeSession()
	m := connected(t, sized(t, fs))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	m = typeText(t, m, "still here")
	before := m.chat.Len()
	m = enter(t, m)
	if m.chat.Len() != before {
		sender, text := lastEntry(m)
		t.Errorf("submit while closing added %s: %q", sender, text)
	}
	if m.input.Value() != "still here" {
		t.Errorf("input = %q, want it kept", m.input.Value())
	}

	select {
	case got := <-fs.sent:
		t.Errorf("unexpected send %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOutboxPushAfterClose(t *testing.T) {
	sent := make(chan string, 4)
	o := newOutbox(func(text string) { sent <- text })
	if !o.push("first") {
		t.Fatal("push on open outbox failed")
	}
	o.close()
	o.close()
	if o.push("late") {
		t.Error("push after close should report false")
	}

	<-o.done
	if got := <-sent; got != "first" {
		t.Errorf("sent %q, want first", got)
	}
	if len(sent) != 0 {
		t.Errorf("%d extra sends after close", len(sent))
	}
}

func TestStaleScrollTickIgnored(t *testing.T) {
	m := sized(t, newFakeSession())
	m.scroll.start(0, 20)
	stale := m.scroll.gen
	m.scroll.stop()
	m.scroll.start(0, 20)

	m, cmd := update(t, m, scrollTickMsg{gen: stale})
	if cmd != nil {
		t.Error("stale tick should not schedule another frame")
	}
	if m.scroll.pos != 0 {
		t.Errorf("stale tick moved the animation to %v", m.scroll.pos)
	}

	m, cmd = update(t, m, scrollTickMsg{gen: m.scroll.gen})
	if cmd == nil {
		t.Error("current tick should schedule the next frame")
	}
	if m.scroll.pos == 0 {
		t.Error("current tick should advance the animation")
	}
}
