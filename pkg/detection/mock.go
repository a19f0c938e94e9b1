package detection

import (
	"context"
	"sync"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, req Request) ([]Region, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	calls  []Request
	closed bool
}

// NewMock creates a mock that always returns the given regions.
func NewMock(regions ...Region) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, req Request) ([]Region, error) {
			out := make([]Region, len(regions))
			copy(out, regions)
			return out, nil
		},
	}
}

// Detect calls DetectFunc and records the request.
func (m *Mock) Detect(ctx context.Context, req Request) ([]Region, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, req)
}

// Close calls CloseFunc and marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// Calls returns a copy of the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
