// Package detection defines the face detector capability used by the overlay pipeline.
//
// Backends live in subpackages (yunet, pigo) so that the pipeline and its tests
// do not link OpenCV.
package detection

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-facebox/pkg/frame"
)

// Region is one detected face.
// Coordinates are normalized to the upright image, origin top-left.
type Region struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the region
func (r Region) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Area returns the area of the bounding box
func (r Region) Area() float64 {
	return r.W * r.H
}

// Clamp trims the region to the unit square.
func (r Region) Clamp() Region {
	x0, y0 := clamp01(r.X), clamp01(r.Y)
	x1, y1 := clamp01(r.X+r.W), clamp01(r.Y+r.H)
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0, Confidence: r.Confidence}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SelectBest returns the index of the most prominent face, or -1 when empty.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(regions []Region) int {
	if len(regions) == 0 {
		return -1
	}
	if len(regions) == 1 {
		return 0
	}

	maxArea := 0.0
	for _, r := range regions {
		if r.Area() > maxArea {
			maxArea = r.Area()
		}
	}

	best, bestScore := -1, -1.0
	for i, r := range regions {
		rel := 0.0
		if maxArea > 0 {
			rel = r.Area() / maxArea
		}
		score := r.Confidence*0.7 + rel*0.3
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// Request is one detection job: a frame plus how to read it.
type Request struct {
	Frame       *frame.Frame
	Orientation frame.Orientation
	Options     map[string]any // Backend specific; empty by default
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in the request's frame.
	// Regions are normalized to the upright image described by the orientation.
	Detect(ctx context.Context, req Request) ([]Region, error)

	// Close releases resources
	Close() error
}

// Backend names accepted by Config.Backend.
const (
	BackendYuNet = "yunet"
	BackendPigo  = "pigo"
	BackendYOLO  = "yolo"
)

// Config holds detector configuration for every backend.
type Config struct {
	Backend          string  // "yunet", "pigo" or "yolo"
	ConfidenceThresh float64 // Minimum confidence (default 0.5)

	// YuNet
	ModelPath   string  // Path to ONNX model
	NMSThresh   float64 // Non-maximum suppression IoU
	TopK        int     // Max candidates before NMS
	InputWidth  int     // Initial model input width
	InputHeight int     // Initial model input height

	// Pigo
	CascadePath  string  // Path to the facefinder cascade
	MinSize      int     // Smallest face side in pixels
	MaxSize      int     // Largest face side in pixels
	ShiftFactor  float64 // Sliding window step relative to size
	ScaleFactor  float64 // Scale step between pyramid levels
	IoUThreshold float64 // Clustering overlap

	// YOLO (single-class face model, shares NMSThresh)
	YOLOModelPath string
	YOLOInputSize int // Square network input side
	YOLOClass     int // Score channel holding the face class
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		Backend:          BackendYuNet,
		ConfidenceThresh: 0.5,

		ModelPath:   "models/face_detection_yunet.onnx",
		NMSThresh:   0.3,
		TopK:        5000,
		InputWidth:  320,
		InputHeight: 320,

		CascadePath:  "models/facefinder",
		MinSize:      60,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,

		YOLOModelPath: "models/yolov8n-face.onnx",
		YOLOInputSize: 640,
	}
}

// Validate checks the fields used by the selected backend.
func (c Config) Validate() error {
	if c.ConfidenceThresh < 0 || c.ConfidenceThresh > 1 {
		return fmt.Errorf("detection: confidence threshold must be 0-1, got %v", c.ConfidenceThresh)
	}
	switch c.Backend {
	case BackendYuNet:
		if c.ModelPath == "" {
			return fmt.Errorf("detection: yunet requires a model path")
		}
		if c.InputWidth <= 0 || c.InputHeight <= 0 {
			return fmt.Errorf("detection: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
		}
	case BackendPigo:
		if c.CascadePath == "" {
			return fmt.Errorf("detection: pigo requires a cascade path")
		}
		if c.MinSize <= 0 || c.MaxSize < c.MinSize {
			return fmt.Errorf("detection: invalid size range %d-%d", c.MinSize, c.MaxSize)
		}
		if c.ScaleFactor <= 1 || c.ShiftFactor <= 0 {
			return fmt.Errorf("detection: scale factor must be >1 and shift factor >0")
		}
	case BackendYOLO:
		if c.YOLOModelPath == "" {
			return fmt.Errorf("detection: yolo requires a model path")
		}
		if c.YOLOInputSize <= 0 || c.YOLOInputSize%32 != 0 {
			return fmt.Errorf("detection: yolo input size must be a positive multiple of 32, got %d", c.YOLOInputSize)
		}
		if c.YOLOClass < 0 {
			return fmt.Errorf("detection: yolo class must be >= 0")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}
