// Package pigo implements detection.Detector with the pure Go pigo cascade classifier.
package pigo

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"github.com/teslashibe/go-facebox/pkg/debug"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

// Detector runs the pigo facefinder cascade on the luminance plane.
type Detector struct {
	classifier *pigo.Pigo
	config     detection.Config
	mu         sync.Mutex
}

// New reads and unpacks the cascade file.
func New(cfg detection.Config) (*Detector, error) {
	cascade, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.CascadePath)
		}
		return nil, fmt.Errorf("read cascade: %w", err)
	}

	// Unpack returns the cascade trees, depth, threshold and leaf predictions
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}

	return &Detector{classifier: classifier, config: cfg}, nil
}

// Detect finds faces in the upright luminance plane of the request frame.
func (d *Detector) Detect(ctx context.Context, req detection.Request) ([]detection.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray, err := Grayscale(req.Frame)
	if err != nil {
		return nil, err
	}
	if req.Orientation.Valid() {
		gray = req.Orientation.Orient(gray)
	}

	cols, rows := gray.Width, gray.Height
	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     d.config.MaxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Data,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	d.mu.Lock()
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)
	d.mu.Unlock()

	regions := make([]detection.Region, 0, len(dets))
	for _, det := range dets {
		conf := Confidence(det.Q)
		if conf < d.config.ConfidenceThresh {
			continue
		}
		// Row/Col is the center, Scale the side length, all in pixels
		side := float64(det.Scale)
		region := detection.Region{
			X:          (float64(det.Col) - side/2) / float64(cols),
			Y:          (float64(det.Row) - side/2) / float64(rows),
			W:          side / float64(cols),
			H:          side / float64(rows),
			Confidence: conf,
		}.Clamp()
		if !region.Empty() {
			regions = append(regions, region)
		}
	}

	debug.FrameLog("pigo detection", "seq", req.Frame.Seq, "faces", len(regions))
	return regions, nil
}

// Close is a no-op; the classifier holds only Go memory.
func (d *Detector) Close() error {
	return nil
}

// Confidence squashes pigo's unbounded detection score into 0-1.
// A score of 5 (the usual acceptance level) maps to 0.5.
func Confidence(q float32) float64 {
	if q <= 0 {
		return 0
	}
	return float64(q) / (float64(q) + 5)
}

// Grayscale returns the luminance plane of a frame as a FormatGray frame.
func Grayscale(f *frame.Frame) (*frame.Frame, error) {
	switch f.Format {
	case frame.FormatGray:
		return f, nil
	case frame.FormatBGR:
		out := make([]byte, f.Width*f.Height)
		for i := range out {
			b, g, r := f.Data[i*3], f.Data[i*3+1], f.Data[i*3+2]
			out[i] = uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
		}
		return frame.New(f.Seq, f.Width, f.Height, frame.FormatGray, out), nil
	case frame.FormatJPEG:
		img, err := jpeg.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		b := img.Bounds()
		return frame.New(f.Seq, b.Dx(), b.Dy(), frame.FormatGray, pigo.RgbToGrayscale(img)), nil
	default:
		return nil, fmt.Errorf("%w: %s", detection.ErrUnsupportedFormat, f.Format)
	}
}

