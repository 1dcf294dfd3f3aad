package app

import "sync"

const outboxSize = 64

// outbox hands user input to the session from a single goroutine, keeping
// submission order and keeping blocking writes off the Bubble Tea loop.
type outbox struct {
	mu     sync.Mutex
	closed bool
	ch     chan string
	done   chan struct{}
}

func newOutbox(send func(string)) *outbox {
	o := &outbox{
		ch:   make(chan string, outboxSize),
		done: make(chan struct{}),
	}
	go o.pump(send)
	return o
}

func (o *outbox) pump(send func(string)) {
	defer close(o.done)
	for text := range o.ch {
		send(text)
	}
}

// push queues text; it reports false when the queue is full or closed.
func (o *outbox) push(text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- text:
		return true
	default:
		return false
	}
}

// close stops the pump after the queued texts have been sent.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}
