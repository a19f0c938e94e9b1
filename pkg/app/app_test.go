package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-facebox/pkg/camera"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/display"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string // Empty means valid
	}{
		{"defaults", func(c *Config) {}, ""},
		{"headless", func(c *Config) { c.Display = display.KindNone }, ""},
		{"web loopback", func(c *Config) { c.Display = display.KindWeb; c.Addr = "127.0.0.1:9000" }, ""},
		{"web localhost", func(c *Config) { c.Display = display.KindWeb; c.Addr = "localhost:9000" }, ""},
		{"web ipv6 loopback", func(c *Config) { c.Display = display.KindWeb; c.Addr = "[::1]:9000" }, ""},
		{"web all interfaces", func(c *Config) { c.Display = display.KindWeb; c.Addr = ":8080" }, "Addr"},
		{"web public", func(c *Config) { c.Display = display.KindWeb; c.Addr = "0.0.0.0:8080" }, "Addr"},
		{"addr ignored for window", func(c *Config) { c.Addr = "0.0.0.0:8080" }, ""},
		{"bad display", func(c *Config) { c.Display = "projector" }, "Display"},
		{"bad orientation", func(c *Config) { c.Orientation = frame.Orientation(42) }, "Orientation"},
		{"bad detector", func(c *Config) { c.Detection.Backend = "haar" }, "Detection"},
		{"bad camera size", func(c *Config) { c.Camera.Width = 0 }, "Camera"},
		{"zero display", func(c *Config) { c.DisplayHeight = 0 }, "DisplayWidth"},
		{"preview fps", func(c *Config) { c.PreviewFPS = 0 }, "PreviewFPS"},
		{"preview fps high", func(c *Config) { c.PreviewFPS = 120 }, "PreviewFPS"},
		{"max in flight", func(c *Config) { c.MaxInFlight = 0 }, "MaxInFlight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("FACEBOX_CAMERA", "2")
	t.Setenv("FACEBOX_DETECTOR", "pigo")
	t.Setenv("FACEBOX_CASCADE", "/tmp/facefinder")
	t.Setenv("FACEBOX_DISPLAY", "web")
	t.Setenv("FACEBOX_ADDR", "127.0.0.1:9999")
	t.Setenv("FACEBOX_DEBUG", "true")
	t.Setenv("FACEBOX_ORIENTATION", "up")
	t.Setenv("FACEBOX_CONFIDENCE", "0.8")
	t.Setenv("FACEBOX_MAX_IN_FLIGHT", "3")

	cfg := DefaultConfig()
	if err := cfg.LoadEnvConfig(); err != nil {
		t.Fatalf("LoadEnvConfig() error = %v", err)
	}

	if cfg.Camera.Device != "2" {
		t.Errorf("Camera.Device = %q", cfg.Camera.Device)
	}
	if cfg.Detection.Backend != detection.BackendPigo {
		t.Errorf("Detection.Backend = %q", cfg.Detection.Backend)
	}
	if cfg.Detection.CascadePath != "/tmp/facefinder" {
		t.Errorf("Detection.CascadePath = %q", cfg.Detection.CascadePath)
	}
	if cfg.Display != display.KindWeb || cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("Display = %q Addr = %q", cfg.Display, cfg.Addr)
	}
	if !cfg.Debug {
		t.Error("Debug not set")
	}
	if cfg.Orientation != frame.Up {
		t.Errorf("Orientation = %v, want up", cfg.Orientation)
	}
	if cfg.Detection.ConfidenceThresh != 0.8 {
		t.Errorf("ConfidenceThresh = %v, want 0.8", cfg.Detection.ConfidenceThresh)
	}
	if cfg.MaxInFlight != 3 {
		t.Errorf("MaxInFlight = %d, want 3", cfg.MaxInFlight)
	}
}

func TestLoadEnvConfigBadOrientation(t *testing.T) {
	t.Setenv("FACEBOX_ORIENTATION", "sideways")

	cfg := DefaultConfig()
	err := cfg.LoadEnvConfig()
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "Orientation" {
		t.Fatalf("LoadEnvConfig() = %v, want Orientation ConfigError", err)
	}
}

func TestInitNoCamera(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.Backend = camera.BackendGoCV
	cfg.Camera.Device = "/nonexistent/facebox-test.mp4"

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = a.Init()
	if !errors.Is(err, camera.ErrNoCamera) {
		t.Fatalf("Init() = %v, want ErrNoCamera", err)
	}
}

func TestInitUnknownDetector(t *testing.T) {
	cfg := syntheticConfig()

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.config.Detection.Backend = "haar"
	err = a.Init()
	if !errors.Is(err, detection.ErrUnknownBackend) {
		t.Fatalf("Init() = %v, want ErrUnknownBackend", err)
	}
}

func syntheticConfig() Config {
	cfg := DefaultConfig()
	cfg.Camera.Backend = camera.BackendSynthetic
	cfg.Camera.Device = "20"
	cfg.Camera.Framerate = 60
	cfg.Camera.Width = 160
	cfg.Camera.Height = 120
	cfg.Display = display.KindNone
	return cfg
}

func useMockDetector(t *testing.T, m *detection.Mock) {
	t.Helper()
	orig := openDetector
	openDetector = func(detection.Config) (detection.Detector, error) { return m, nil }
	t.Cleanup(func() { openDetector = orig })
}

func TestRunEndToEnd(t *testing.T) {
	mock := detection.NewMock(detection.Region{X: 0.25, Y: 0.25, W: 0.5, H: 0.5, Confidence: 0.9})
	useMockDetector(t, mock)

	a, err := New(syntheticConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The synthetic camera stops after 20 frames, which ends Run
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run() only returned on timeout")
	}

	s := a.Stats()
	if s.Camera.Captured != 20 {
		t.Errorf("Camera.Captured = %d, want 20", s.Camera.Captured)
	}
	if s.Pipeline.Completed == 0 {
		t.Error("no detections completed")
	}
	if s.Pipeline.Submitted+s.Pipeline.DroppedBusy != s.Camera.Delivered {
		t.Errorf("submitted %d + busy %d != delivered %d",
			s.Pipeline.Submitted, s.Pipeline.DroppedBusy, s.Camera.Delivered)
	}

	h, ok := a.Display().(*display.Headless)
	if !ok {
		t.Fatalf("Display() = %T, want *display.Headless", a.Display())
	}
	if n := h.Len(); n != 1 {
		t.Errorf("overlay shapes = %d, want 1", n)
	}

	// Detector saw upright frames
	calls := mock.Calls()
	if len(calls) == 0 {
		t.Fatal("detector never called")
	}
	if calls[0].Orientation != a.config.Orientation {
		t.Errorf("request orientation = %v, want %v", calls[0].Orientation, a.config.Orientation)
	}

	a.Shutdown()
	if h.Len() != 0 {
		t.Errorf("overlay shapes after Shutdown = %d, want 0", h.Len())
	}
	if !mock.Closed() {
		t.Error("detector not closed on Shutdown")
	}
}

func TestRunCancel(t *testing.T) {
	useMockDetector(t, detection.NewMock())

	cfg := syntheticConfig()
	cfg.Camera.Device = "synthetic"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
