// Package yolo implements detection.Detector with a single-class YOLOv8 face
// model run through OpenCV's DNN module.
package yolo

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

// Detector runs a YOLOv8 face model
type Detector struct {
	net       gocv.Net
	config    detection.Config
	mu        sync.Mutex
	inputSize image.Point
}

// New loads the ONNX model at cfg.YOLOModelPath.
func New(cfg detection.Config) (*Detector, error) {
	if _, err := os.Stat(cfg.YOLOModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.YOLOModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.YOLOModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("yolo: failed to load model from %s", cfg.YOLOModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.YOLOInputSize, cfg.YOLOInputSize),
	}, nil
}

// Detect finds faces in the request frame after turning it upright.
func (d *Detector) Detect(ctx context.Context, req detection.Request) ([]detection.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch req.Frame.Format {
	case frame.FormatBGR, frame.FormatJPEG:
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

	imgW, imgH := img.Cols(), img.Rows()

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	// Output shape: [1, channels, anchors]; channels = 4 box + classes (+ keypoints)
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("yolo: unexpected output shape %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("yolo: read output: %w", err)
	}

	cands := decode(data, sizes[1], sizes[2], d.config.YOLOClass, float32(d.config.ConfidenceThresh),
		float32(imgW)/float32(d.inputSize.X), float32(imgH)/float32(d.inputSize.Y))
	if len(cands.boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(cands.boxes, cands.scores, float32(d.config.ConfidenceThresh), float32(d.config.NMSThresh))

	regions := make([]detection.Region, 0, len(indices))
	for _, idx := range indices {
		box := cands.boxes[idx]
		region := detection.Region{
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(cands.scores[idx]),
		}.Clamp()
		if region.Empty() {
			continue
		}
		regions = append(regions, region)
	}

	debug.FrameLog("yolo detection", "seq", req.Frame.Seq, "candidates", len(cands.boxes), "faces", len(regions))
	return regions, nil
}

// candidates are boxes above threshold in image pixels, before NMS.
type candidates struct {
	boxes  []image.Rectangle
	scores []float32
}

// decode reads a channel-major YOLOv8 output. Box channels are center x,
// center y, width, height in network pixels; class scores follow.
func decode(data []float32, channels, anchors, class int, thresh, scaleX, scaleY float32) candidates {
	var c candidates
	scoreCh := 4 + class
	if scoreCh >= channels || len(data) < channels*anchors {
		return c
	}

	for i := 0; i < anchors; i++ {
		score := data[scoreCh*anchors+i]
		if score < thresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		c.boxes = append(c.boxes, image.Rect(x1, y1, x2, y2))
		c.scores = append(c.scores, score)
	}
	return c
}

// Close releases the network
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
