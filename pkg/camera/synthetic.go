package camera

import (
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facebox/pkg/frame"
)

func init() {
	Register(BackendSynthetic, syntheticDriver{})
}

type syntheticDriver struct{}

func (syntheticDriver) Candidates(cfg Config) ([]string, error) {
	if cfg.Device != "" {
		return []string{cfg.Device}, nil
	}
	return []string{"synthetic"}, nil
}

func (syntheticDriver) Open(cfg Config, device string) (Reader, error) {
	s := NewSynthetic(cfg.Width, cfg.Height, cfg.FrameInterval())
	// A numeric device name limits the number of frames, for tests
	if n, err := strconv.Atoi(device); err == nil && n > 0 {
		s.Limit = n
	}
	return s, nil
}

// Synthetic generates BGR frames with a moving gradient at a fixed rate.
type Synthetic struct {
	Width, Height int
	Interval      time.Duration
	Limit         int // Frames before io.EOF; 0 means unlimited

	count  int
	next   time.Time
	closed atomic.Bool
}

// NewSynthetic creates a synthetic reader.
func NewSynthetic(width, height int, interval time.Duration) *Synthetic {
	return &Synthetic{Width: width, Height: height, Interval: interval}
}

// Read paces to Interval and returns the next generated frame.
func (s *Synthetic) Read(pool *frame.Pool) (*frame.Frame, error) {
	if s.closed.Load() {
		return nil, io.EOF
	}
	if s.Limit > 0 && s.count >= s.Limit {
		return nil, io.EOF
	}

	if s.Interval > 0 {
		now := time.Now()
		if s.next.After(now) {
			time.Sleep(s.next.Sub(now))
		}
		s.next = time.Now().Add(s.Interval)
	}

	buf := pool.Get(s.Width * s.Height * 3)
	shift := s.count * 4
	for y := 0; y < s.Height; y++ {
		row := buf[y*s.Width*3 : (y+1)*s.Width*3]
		for x := 0; x < s.Width; x++ {
			row[x*3] = uint8(x + shift)
			row[x*3+1] = uint8(y)
			row[x*3+2] = uint8(s.count)
		}
	}
	s.count++
	return pool.Wrap(0, s.Width, s.Height, frame.FormatBGR, buf), nil
}

// Close makes further reads return io.EOF.
func (s *Synthetic) Close() error {
	s.closed.Store(true)
	return nil
}
