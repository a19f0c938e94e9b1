package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facebox/internal/config"
	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/camera"
	_ "github.com/teslashibe/go-facebox/pkg/camera/gocvcam"  // Register the gocv camera driver
	_ "github.com/teslashibe/go-facebox/pkg/camera/mediacam" // Register the mediadevices camera driver
	"github.com/teslashibe/go-facebox/pkg/debug"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/detection/pigo"
	"github.com/teslashibe/go-facebox/pkg/detection/yolo"
	"github.com/teslashibe/go-facebox/pkg/detection/yunet"
	"github.com/teslashibe/go-facebox/pkg/display"
	"github.com/teslashibe/go-facebox/pkg/display/window"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
	"github.com/teslashibe/go-facebox/pkg/pipeline"
	"github.com/teslashibe/go-facebox/pkg/ui"
)

// defaultStatsInterval is how often counters are logged in debug mode.
const defaultStatsInterval = 5 * time.Second

// Stats combines the counters of every stage.
type Stats struct {
	Camera   camera.Stats   `json:"camera"`
	Pipeline pipeline.Stats `json:"pipeline"`
	Pending  int            `json:"pendingDetections"`
}

// App is the facebox application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	source   camera.Source
	async    *detection.AsyncDetector
	loop     *ui.Loop
	display  display.Display
	pipeline *pipeline.Pipeline

	// Last upright size reported to the display, packed w<<32|h
	imageSize atomic.Uint64

	captureWG  sync.WaitGroup
	captureErr error
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	// Apply environment overrides
	if err := cfg.LoadEnvConfig(); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Frames = cfg.DebugFrames

	return &App{
		config: cfg,
		logger: log.Component("app"),
	}, nil
}

// Init opens the camera, loads the detector and builds the display.
// A camera that cannot be opened is fatal: the error wraps camera.ErrNoCamera.
// Call this after New() and before Run().
func (a *App) Init() error {
	source, err := camera.Open(a.config.Camera)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.source = source

	det, err := openDetector(a.config.Detection)
	if err != nil {
		a.source.Close()
		return fmt.Errorf("detector: %w", err)
	}
	a.async = detection.NewAsync(det)
	a.logger.Info("detector ready", "backend", a.config.Detection.Backend)

	a.loop = ui.NewLoop(ui.Config{
		TickInterval: time.Second / time.Duration(a.config.PreviewFPS),
		OnTick:       a.render,
	})

	a.display = a.newDisplay()

	style := overlay.DefaultStyle()
	a.pipeline = pipeline.New(pipeline.Config{
		Orientation: a.config.Orientation,
		MaxInFlight: a.config.MaxInFlight,
		Style:       style,
	}, a.async, a.loop, a.display)

	if web, ok := a.display.(*display.Web); ok {
		web.SetStatsFunc(func() any { return a.Stats() })
	}
	return nil
}

// openDetector builds the configured detection backend.
var openDetector = func(cfg detection.Config) (detection.Detector, error) {
	switch cfg.Backend {
	case detection.BackendYuNet:
		return yunet.New(cfg)
	case detection.BackendPigo:
		return pigo.New(cfg)
	case detection.BackendYOLO:
		return yolo.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", detection.ErrUnknownBackend, cfg.Backend)
	}
}

func (a *App) newDisplay() display.Display {
	vp := overlay.Viewport{
		Width:    float64(a.config.DisplayWidth),
		Height:   float64(a.config.DisplayHeight),
		Gravity:  a.config.Gravity,
		Mirrored: a.config.Mirror,
	}

	switch a.config.Display {
	case display.KindWindow:
		return window.New(window.Config{
			Title:       "facebox",
			PreviewFPS:  a.config.PreviewFPS,
			Orientation: a.config.Orientation,
			Viewport:    vp,
		}, a.loop.Stop)
	case display.KindWeb:
		cfg := display.DefaultWebConfig()
		cfg.Addr = a.config.Addr
		cfg.PreviewFPS = min(a.config.PreviewFPS, 30)
		cfg.Orientation = a.config.Orientation
		cfg.Viewport = vp
		return display.NewWeb(cfg, a.loop)
	default:
		return display.NewHeadless(vp)
	}
}

// Run starts capture in the background and runs the UI loop on the calling
// goroutine. It blocks until ctx is cancelled, the window is closed, or the
// camera stream ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.display.Start(ctx); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	a.captureWG.Add(1)
	go func() {
		defer a.captureWG.Done()
		err := a.source.Run(ctx, a.handleFrame)
		if err != nil {
			a.logger.Error("capture stopped", "error", err)
			a.captureErr = err
		} else {
			a.logger.Info("capture finished")
		}
		a.loop.Stop()
	}()

	if debug.Enabled {
		go a.logStats(ctx)
	}

	a.logger.Info("running", "display", a.config.Display, "orientation", a.config.Orientation)
	err := a.loop.Run(ctx)

	cancel()
	a.captureWG.Wait()

	if a.captureErr != nil {
		return a.captureErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleFrame runs on the camera delivery goroutine.
func (a *App) handleFrame(f *frame.Frame) {
	a.display.ShowFrame(f)

	w, h := a.config.Orientation.UprightSize(f.Width, f.Height)
	size := uint64(w)<<32 | uint64(h)
	if a.imageSize.Swap(size) != size {
		a.loop.Post(func() { a.display.SetImageSize(w, h) })
	}

	a.pipeline.SubmitFrame(f)
}

// render runs on the UI loop.
func (a *App) render() {
	a.display.Render()
}

func (a *App) logStats(ctx context.Context) {
	interval := config.Duration("stats_interval", defaultStatsInterval)
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := a.Stats()
			debug.Log("stats",
				"captured", s.Camera.Captured,
				"camera_dropped", s.Camera.Dropped,
				"submitted", s.Pipeline.Submitted,
				"busy_dropped", s.Pipeline.DroppedBusy,
				"completed", s.Pipeline.Completed,
				"failed", s.Pipeline.Failed,
				"faces", s.Pipeline.LastFaces)
		}
	}
}

// Stats returns the current counters. Safe from any goroutine.
func (a *App) Stats() Stats {
	var s Stats
	if a.source != nil {
		s.Camera = a.source.Stats()
	}
	if a.pipeline != nil {
		s.Pipeline = a.pipeline.Stats()
	}
	if a.async != nil {
		s.Pending = a.async.Pending()
	}
	return s
}

// Display returns the active display surface.
func (a *App) Display() display.Display {
	return a.display
}

// Shutdown releases every component. Call on the goroutine that ran Run.
func (a *App) Shutdown() {
	if a.source != nil {
		a.source.Close()
	}
	if a.async != nil {
		// Waits for in-flight detections; their completions are discarded
		a.async.Close()
	}
	if a.pipeline != nil {
		a.pipeline.Clear()
	}
	if a.display != nil {
		a.display.Close()
	}

	s := a.Stats()
	a.logger.Info("shutdown",
		"frames", s.Camera.Captured,
		"detections", s.Pipeline.Completed,
		"failed", s.Pipeline.Failed)
}
