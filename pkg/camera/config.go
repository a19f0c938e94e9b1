// Package camera opens a capture device and delivers a push stream of frames.
//
// Backends register a Driver under a name (see Register). The gocv and
// mediadevices drivers live in subpackages and register themselves on import,
// the same way mediadevices registers its own camera adapters.
package camera

import (
	"fmt"
	"strconv"
	"time"
)

// Backend names
const (
	BackendGoCV         = "gocv"
	BackendMediaDevices = "mediadevices"
	BackendSynthetic    = "synthetic"
)

// Capture limits accepted by Validate
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// Config holds camera configuration.
type Config struct {
	Backend   string `json:"backend"`   // Driver name
	Device    string `json:"device"`    // Index, file path, or device ID; empty tries Fallbacks
	Fallbacks []int  `json:"fallbacks"` // Device indices tried in order after Device
	Width     int    `json:"width"`     // Requested frame width in pixels
	Height    int    `json:"height"`    // Requested frame height in pixels
	Framerate int    `json:"framerate"` // Target FPS (also paces file and synthetic sources)
	Loop      bool   `json:"loop"`      // Restart file sources at EOF
}

// DefaultConfig returns a 640x480 front camera configuration.
// Detection runs on every frame the pipeline accepts, so VGA keeps latency low.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendGoCV,
		Fallbacks: []int{0, 1},
		Width:     640,
		Height:    480,
		Framerate: 30,
		Loop:      true,
	}
}

// FrameInterval returns the time between frames at the target rate.
func (c *Config) FrameInterval() time.Duration {
	if c.Framerate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Framerate)
}

// DeviceIndex reports whether Device is a numeric device index.
func (c *Config) DeviceIndex() (int, bool) {
	i, err := strconv.Atoi(c.Device)
	return i, err == nil && i >= 0
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if !Registered(c.Backend) {
		errors = append(errors, fmt.Sprintf("backend %q is not available (have %v)", c.Backend, Drivers()))
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	for _, idx := range c.Fallbacks {
		if idx < 0 {
			errors = append(errors, "fallback device indices must not be negative")
			break
		}
	}

	return errors
}
