package detection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Completion receives the outcome of one asynchronous detection.
// It runs on the detection goroutine, never on the submitter's.
type Completion func(regions []Region, err error)

// Async is the asynchronous detector contract used by the pipeline.
type Async interface {
	// Submit starts detection and returns immediately.
	// done is called exactly once.
	Submit(req Request, done Completion)
}

// AsyncDetector runs a synchronous Detector on its own goroutine per request.
// There is no timeout and no per-request cancel; Close cancels everything.
type AsyncDetector struct {
	detector Detector

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // Guards closed and wg.Add
	closed  bool
	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewAsync wraps a detector.
func NewAsync(d Detector) *AsyncDetector {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncDetector{
		detector: d,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit implements Async.
func (a *AsyncDetector) Submit(req Request, done Completion) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		done(nil, ErrClosed)
		return
	}
	a.wg.Add(1)
	a.pending.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		regions, err := a.run(req)
		a.pending.Add(-1)
		done(regions, err)
	}()
}

// run calls the backend and turns a panic into an error.
func (a *AsyncDetector) run(req Request) (regions []Region, err error) {
	defer func() {
		if r := recover(); r != nil {
			regions = nil
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	if err := req.Frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyFrame, err)
	}
	return a.detector.Detect(a.ctx, req)
}

// Pending returns the number of detections not yet completed.
func (a *AsyncDetector) Pending() int {
	return int(a.pending.Load())
}

// Close stops accepting work, waits for in-flight detections and closes the backend.
func (a *AsyncDetector) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	return a.detector.Close()
}
