package camera

import (
	"sync"

	"github.com/teslashibe/go-facebox/pkg/frame"
)

// mailbox is a single-slot buffer between the device reader and delivery.
// Publishing overwrites an undelivered frame; the overwritten frame is
// released and counted as dropped.
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	frame   *frame.Frame
	dropped uint64
	closed  bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// publish never blocks. It returns false after close, in which case f is released.
func (m *mailbox) publish(f *frame.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		f.Release()
		return false
	}
	if m.frame != nil {
		m.frame.Release()
		m.dropped++
	}
	m.frame = f
	m.cond.Signal()
	return true
}

// take blocks until a frame is available. After close it still hands out the
// last published frame, then returns nil.
func (m *mailbox) take() *frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	f := m.frame
	m.frame = nil
	return f
}

// close refuses further publishes and wakes the consumer.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Broadcast()
}

func (m *mailbox) drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
