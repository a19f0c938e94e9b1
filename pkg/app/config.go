// Package app wires the camera, detector, overlay pipeline and display into
// the facebox application.
package app

import (
	"fmt"
	"net"
	"strings"

	"github.com/teslashibe/go-facebox/internal/config"
	"github.com/teslashibe/go-facebox/pkg/camera"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/display"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
)

// Config holds all configuration for the facebox application.
// Flag parsing is done in cmd/facebox/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool
	// DebugFrames adds per-frame log lines (very verbose).
	DebugFrames bool

	Camera    camera.Config
	Detection detection.Config

	// Orientation maps raw camera frames to upright.
	Orientation frame.Orientation

	// Display settings.
	Display       string          // "window", "web" or "none"
	Addr          string          // Web display listen address
	Gravity       overlay.Gravity // How the preview fills the display
	Mirror        bool            // Show the preview mirrored (selfie view)
	DisplayWidth  int             // Initial display width
	DisplayHeight int             // Initial display height
	PreviewFPS    int             // Preview refresh rate

	// MaxInFlight is how many detections may run at once.
	MaxInFlight int
}

// DefaultConfig returns sensible defaults for a laptop front camera.
func DefaultConfig() Config {
	return Config{
		Camera:        camera.DefaultConfig(),
		Detection:     detection.DefaultConfig(),
		Orientation:   frame.DefaultFrontCamera,
		Display:       display.KindWindow,
		Addr:          "127.0.0.1:8080",
		Gravity:       overlay.ResizeAspectFill,
		DisplayWidth:  640,
		DisplayHeight: 480,
		PreviewFPS:    30,
		MaxInFlight:   1,
	}
}

// LoadEnvConfig applies FACEBOX_* environment overrides.
// Call this after flag parsing.
func (c *Config) LoadEnvConfig() error {
	c.Camera.Device = config.String("camera", c.Camera.Device)
	c.Detection.Backend = config.String("detector", c.Detection.Backend)
	c.Detection.ModelPath = config.String("model", c.Detection.ModelPath)
	c.Detection.CascadePath = config.String("cascade", c.Detection.CascadePath)
	c.Detection.YOLOModelPath = config.String("yolo_model", c.Detection.YOLOModelPath)
	c.Detection.ConfidenceThresh = config.Float("confidence", c.Detection.ConfidenceThresh)
	c.Display = config.String("display", c.Display)
	c.PreviewFPS = config.Int("preview_fps", c.PreviewFPS)
	c.MaxInFlight = config.Int("max_in_flight", c.MaxInFlight)
	c.Addr = config.String("addr", c.Addr)
	c.Debug = config.Bool("debug", c.Debug)

	if v := config.String("orientation", ""); v != "" {
		o, err := frame.ParseOrientation(v)
		if err != nil {
			return &ConfigError{Field: "Orientation", Message: fmt.Sprintf("%s: %v", config.Key("orientation"), err)}
		}
		c.Orientation = o
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: "camera: " + strings.Join(errs, "; ")}
	}
	if err := c.Detection.Validate(); err != nil {
		return &ConfigError{Field: "Detection", Message: err.Error()}
	}
	if !c.Orientation.Valid() {
		return &ConfigError{Field: "Orientation", Message: fmt.Sprintf("invalid orientation %d", int(c.Orientation))}
	}
	kind, err := display.ParseKind(c.Display)
	if err != nil {
		return &ConfigError{Field: "Display", Message: err.Error()}
	}
	c.Display = kind
	if c.Display == display.KindWeb {
		if err := checkLoopback(c.Addr); err != nil {
			return &ConfigError{Field: "Addr", Message: err.Error()}
		}
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return &ConfigError{Field: "DisplayWidth", Message: "display size must be positive"}
	}
	if c.PreviewFPS < 1 || c.PreviewFPS > 60 {
		return &ConfigError{Field: "PreviewFPS", Message: "preview fps must be between 1 and 60"}
	}
	if c.MaxInFlight < 1 {
		return &ConfigError{Field: "MaxInFlight", Message: "max in flight must be at least 1"}
	}
	return nil
}

// checkLoopback rejects listen addresses reachable from other hosts.
func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("web address %q: %v", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("web address %q must be a loopback address", addr)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
