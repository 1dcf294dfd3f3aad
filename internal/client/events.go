package client

// Handler receives session notifications. Calls may come from the session's read
// goroutine or from the goroutine calling Connect/SendCommand, but a session
// never makes two calls at once. Hosts that own UI state must hand the
// notifications over to their own event loop and must not call back into the
// session before returning.
type Handler interface {
	OnConnected()
	OnDisconnected(code int, reason string)
	OnMessage(text string)
	OnError(err error)
}

// EventKind identifies an Event variant.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a one-shot notification in value form, for hosts that prefer a
// single message type over four callbacks.
type Event struct {
	Kind   EventKind
	Code   int    // EventDisconnected
	Reason string // EventDisconnected
	Text   string // EventMessage
	Err    error  // EventError
}

// HandlerFunc adapts a function taking Events to the Handler interface.
type HandlerFunc func(Event)

func (f HandlerFunc) OnConnected() { f(Event{Kind: EventConnected}) }

func (f HandlerFunc) OnDisconnected(code int, reason string) {
	f(Event{Kind: EventDisconnected, Code: code, Reason: reason})
}

func (f HandlerFunc) OnMessage(text string) { f(Event{Kind: EventMessage, Text: text}) }

func (f HandlerFunc) OnError(err error) { f(Event{Kind: EventError, Err: err}) }
