// Package yunet implements detection.Detector with OpenCV's FaceDetectorYN.
package yunet

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-facebox/pkg/cvmat"
	"github.com/teslashibe/go-facebox/pkg/debug"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"gocv.io/x/gocv"
)

// Detector uses OpenCV's FaceDetectorYN for face detection
type Detector struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	mu       sync.Mutex // Protects inference
}

// New creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func New(cfg detection.Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.ModelPath)
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in the request frame after turning it upright.
func (d *Detector) Detect(ctx context.Context, req detection.Request) ([]detection.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch req.Frame.Format {
	case frame.FormatBGR, frame.FormatGray, frame.FormatJPEG:
	default:
		return nil, fmt.Errorf("%w: %s", detection.ErrUnsupportedFormat, req.Frame.Format)
	}

	raw, err := cvmat.FromFrame(req.Frame)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	img, owned := cvmat.Orient(raw, req.Orientation)
	if owned {
		defer img.Close()
	}

	if img.Empty() {
		return nil, detection.ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())
	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	regions := make([]detection.Region, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		region := detection.Region{
			X:          float64(faces.GetFloatAt(r, 0)) / imgW,
			Y:          float64(faces.GetFloatAt(r, 1)) / imgH,
			W:          float64(faces.GetFloatAt(r, 2)) / imgW,
			H:          float64(faces.GetFloatAt(r, 3)) / imgH,
			Confidence: float64(faces.GetFloatAt(r, 14)),
		}.Clamp()
		if region.Empty() || region.Confidence < d.config.ConfidenceThresh {
			continue
		}
		regions = append(regions, region)
	}

	debug.FrameLog("yunet detection", "seq", req.Frame.Seq, "faces", len(regions))
	return regions, nil
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
