// Package gocvcam registers the "gocv" camera driver, backed by OpenCV's
// VideoCapture. A device is a camera index or a video file path.
package gocvcam

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facebox/pkg/camera"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

func init() {
	camera.Register(camera.BackendGoCV, driver{})
}

type driver struct{}

// Candidates returns the configured device followed by the fallback indices.
// A file path is never followed by fallbacks.
func (driver) Candidates(cfg camera.Config) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(dev string) {
		if !seen[dev] {
			seen[dev] = true
			out = append(out, dev)
		}
	}

	if cfg.Device != "" {
		if _, ok := cfg.DeviceIndex(); !ok {
			return []string{cfg.Device}, nil
		}
		add(cfg.Device)
	}
	for _, idx := range cfg.Fallbacks {
		add(strconv.Itoa(idx))
	}
	return out, nil
}

func (driver) Open(cfg camera.Config, device string) (camera.Reader, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	idx, isIndex := (&camera.Config{Device: device}).DeviceIndex()
	if isIndex {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.VideoCaptureFile(device)
	}
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %s did not open", device)
	}

	r := &reader{
		capture: vc,
		mat:     gocv.NewMat(),
		file:    !isIndex,
		loop:    cfg.Loop,
	}
	if isIndex {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	} else {
		// Files decode as fast as we ask; pace them like a live camera
		r.interval = cfg.FrameInterval()
	}

	// A device can open and still fail to produce frames
	if !vc.Read(&r.mat) || r.mat.Empty() {
		r.Close()
		return nil, fmt.Errorf("device %s produced no frame", device)
	}
	r.primed = true
	return r, nil
}

type reader struct {
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	file     bool
	loop     bool
	interval time.Duration
	next     time.Time
	primed   bool
}

func (r *reader) Read(pool *frame.Pool) (*frame.Frame, error) {
	if r.primed {
		r.primed = false
	} else if err := r.grab(); err != nil {
		return nil, err
	}

	if r.interval > 0 {
		if wait := time.Until(r.next); wait > 0 {
			time.Sleep(wait)
		}
		r.next = time.Now().Add(r.interval)
	}

	if err := toBGR(&r.mat); err != nil {
		return nil, err
	}
	return pool.Frame(0, r.mat.Cols(), r.mat.Rows(), frame.FormatBGR, r.mat.ToBytes()), nil
}

// toBGR converts a captured mat to 3-channel BGR in place.
func toBGR(m *gocv.Mat) error {
	switch ch := m.Channels(); ch {
	case 3:
		return nil
	case 1:
		gocv.CvtColor(*m, m, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(*m, m, gocv.ColorBGRAToBGR)
	default:
		return fmt.Errorf("gocvcam: unsupported %d-channel frame", ch)
	}
	return nil
}

func (r *reader) grab() error {
	if r.capture.Read(&r.mat) && !r.mat.Empty() {
		return nil
	}
	if !r.file {
		return fmt.Errorf("capture read failed")
	}
	if !r.loop {
		return io.EOF
	}
	r.capture.Set(gocv.VideoCapturePosFrames, 0)
	if r.capture.Read(&r.mat) && !r.mat.Empty() {
		return nil
	}
	return io.EOF
}

func (r *reader) Close() error {
	r.mat.Close()
	return r.capture.Close()
}
