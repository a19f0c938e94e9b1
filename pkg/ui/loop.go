// Package ui provides the single goroutine on which overlay and display state
// is mutated.
package ui

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when Run is called on a loop that is running or done.
var ErrAlreadyRunning = errors.New("ui: loop already started")

// Dispatcher schedules work onto the UI context.
// Post returns false when the task will never run.
type Dispatcher interface {
	Post(fn func()) bool
}

// Config for a Loop.
type Config struct {
	QueueSize    int
	TickInterval time.Duration // 0 disables OnTick
	OnTick       func()
}

// DefaultConfig returns a loop that ticks at roughly 30 Hz.
func DefaultConfig() Config {
	return Config{
		QueueSize:    64,
		TickInterval: 33 * time.Millisecond,
	}
}

// Loop runs posted closures in FIFO order on the goroutine that calls Run.
type Loop struct {
	config Config
	tasks  chan func()
	done   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(cfg Config) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Loop{
		config: cfg,
		tasks:  make(chan func(), cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Post enqueues fn. It blocks only while the queue is full and the loop is
// running, and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until ctx is cancelled or Stop is called, then runs
// whatever is still queued and returns.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.started = true
	l.mu.Unlock()

	var tick <-chan time.Time
	if l.config.TickInterval > 0 && l.config.OnTick != nil {
		ticker := time.NewTicker(l.config.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			l.drain()
			return ctx.Err()
		case <-l.done:
			l.drain()
			return nil
		case fn := <-l.tasks:
			fn()
		case <-tick:
			l.config.OnTick()
		}
	}
}

// Stop makes Run return after draining the queue. Safe to call more than once,
// and from inside a task.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stopped {
		l.stopped = true
		close(l.done)
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}

// Sync runs every task immediately on the posting goroutine.
type Sync struct{}

// Post runs fn and returns true.
func (Sync) Post(fn func()) bool {
	fn()
	return true
}

// Manual queues tasks until RunPending is called. Used to control interleaving
// in tests.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

// Post queues fn.
func (m *Manual) Post(fn func()) bool {
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
	return true
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// RunPending executes queued tasks in order, including any they post, and
// returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

var (
	_ Dispatcher = (*Loop)(nil)
	_ Dispatcher = Sync{}
	_ Dispatcher = (*Manual)(nil)
)
