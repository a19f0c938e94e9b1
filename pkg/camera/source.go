package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/debug"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

// Errors
var (
	ErrNoCamera = errors.New("camera: no capture device available")
	ErrClosed   = errors.New("camera: source closed")
	ErrRunning  = errors.New("camera: source already running")
)

// Handler receives each delivered frame and takes ownership of it.
// It is called on the source's delivery goroutine and should not block for long.
type Handler func(f *frame.Frame)

// Reader reads raw frames from one opened device.
type Reader interface {
	// Read blocks until the next frame. io.EOF ends the stream.
	Read(pool *frame.Pool) (*frame.Frame, error)
	Close() error
}

// Driver opens devices for one backend.
type Driver interface {
	// Candidates lists the devices to try, in order of preference.
	Candidates(cfg Config) ([]string, error)
	// Open opens a single device.
	Open(cfg Config, device string) (Reader, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under name. It panics if the name is taken.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("camera: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Registered reports whether a driver exists for name.
func Registered(name string) bool {
	driversMu.RLock()
	defer driversMu.RUnlock()
	_, ok := drivers[name]
	return ok
}

// Drivers returns the sorted list of registered driver names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover returns the devices Open would try for cfg, in order.
func Discover(cfg Config) ([]string, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.Backend]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: backend %q not registered", ErrNoCamera, cfg.Backend)
	}
	return d.Candidates(cfg)
}

// Stats is a snapshot of source counters.
type Stats struct {
	Backend   string `json:"backend"`
	Device    string `json:"device"`
	Captured  uint64 `json:"captured"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"` // Overwritten before delivery
	Errors    uint64 `json:"errors"`
}

// Source is an opened camera delivering frames.
type Source interface {
	// Run reads and delivers frames until ctx is cancelled, the device ends,
	// or Close is called. It may be called once.
	Run(ctx context.Context, h Handler) error
	Stats() Stats
	Close() error
}

// Open discovers a device for cfg.Backend and opens the first one that works.
// When nothing opens, the error wraps ErrNoCamera and names every device tried.
func Open(cfg Config) (Source, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.Backend]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: backend %q not registered (have %v)", ErrNoCamera, cfg.Backend, Drivers())
	}

	candidates, err := d.Candidates(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s discovery: %v", ErrNoCamera, cfg.Backend, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s found no devices", ErrNoCamera, cfg.Backend)
	}

	logger := log.Component("camera")
	var failures []string
	for _, dev := range candidates {
		r, err := d.Open(cfg, dev)
		if err != nil {
			logger.Debug("device failed to open", "backend", cfg.Backend, "device", dev, "error", err)
			failures = append(failures, fmt.Sprintf("%s (%v)", dev, err))
			continue
		}
		logger.Info("camera opened", "backend", cfg.Backend, "device", dev,
			"width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
		return newStream(cfg, dev, r), nil
	}

	return nil, fmt.Errorf("%w: %s tried %v", ErrNoCamera, cfg.Backend, failures)
}

// stream is the Source shared by all drivers: a reader goroutine publishing
// into a mailbox and a delivery loop draining it.
type stream struct {
	backend string
	device  string
	reader  Reader
	pool    *frame.Pool
	box     *mailbox
	logger  *slog.Logger

	seq       atomic.Uint64
	captured  atomic.Uint64
	delivered atomic.Uint64
	errs      atomic.Uint64

	mu       sync.Mutex
	running  bool
	closed   bool
	cancel   context.CancelFunc
	readDone chan struct{}
}

func newStream(cfg Config, device string, r Reader) *stream {
	return &stream{
		backend: cfg.Backend,
		device:  device,
		reader:  r,
		pool:    frame.NewPool(cfg.Width * cfg.Height * 3),
		box:     newMailbox(),
		logger:  log.Component("camera"),
	}
}

// maxReadErrors is how many consecutive read failures end the stream.
const maxReadErrors = 30

func (s *stream) Run(ctx context.Context, h Handler) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.readDone = make(chan struct{})
	s.mu.Unlock()
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		defer close(s.readDone)
		readErr <- s.readLoop(ctx)
		s.box.close()
	}()
	go func() {
		<-ctx.Done()
		s.box.close()
	}()

	for {
		f := s.box.take()
		if f == nil {
			break
		}
		s.delivered.Add(1)
		h(f)
	}

	cancel()
	err := <-readErr
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *stream) readLoop(ctx context.Context) error {
	consecutive := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := s.reader.Read(s.pool)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("camera stream ended", "device", s.device)
				return err
			}
			s.errs.Add(1)
			consecutive++
			if consecutive >= maxReadErrors {
				return fmt.Errorf("camera: %d consecutive read errors on %s: %w", consecutive, s.device, err)
			}
			debug.Log("camera read failed", "device", s.device, "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		consecutive = 0

		f.Seq = s.seq.Add(1)
		f.CapturedAt = time.Now()
		s.captured.Add(1)
		if !s.box.publish(f) {
			return nil
		}
	}
}

func (s *stream) Stats() Stats {
	return Stats{
		Backend:   s.backend,
		Device:    s.device,
		Captured:  s.captured.Load(),
		Delivered: s.delivered.Load(),
		Dropped:   s.box.drops(),
		Errors:    s.errs.Load(),
	}
}

// Close stops delivery, waits for the reader goroutine and releases the device.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, readDone := s.cancel, s.readDone
	s.mu.Unlock()

	s.box.close()
	if cancel != nil {
		cancel()
		<-readDone
	}
	return s.reader.Close()
}
