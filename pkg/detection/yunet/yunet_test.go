package yunet

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

// findModelPath looks for the YuNet model relative to the test directory.
func findModelPath() string {
	candidates := []string{
		"models/face_detection_yunet.onnx",
		"../../../models/face_detection_yunet.onnx",
	}
	if env := os.Getenv("FACEBOX_MODEL"); env != "" {
		candidates = append([]string{env}, candidates...)
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}

func testConfig(t *testing.T) detection.Config {
	t.Helper()
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}
	cfg := detection.DefaultConfig()
	cfg.ModelPath = modelPath
	return cfg
}

func solidJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestNewInvalidPath(t *testing.T) {
	cfg := detection.DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	_, err := New(cfg)
	if !errors.Is(err, detection.ErrModelNotFound) {
		t.Errorf("got %v, want ErrModelNotFound", err)
	}
}

func TestDetect_InvalidJPEG(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	req := detection.Request{Frame: frame.New(1, 0, 0, frame.FormatJPEG, []byte("not a jpeg"))}
	if _, err := d.Detect(context.Background(), req); err == nil {
		t.Error("Expected error for invalid JPEG")
	}
}

func TestDetect_SolidImage(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	for _, o := range []frame.Orientation{frame.Up, frame.LeftMirrored, frame.Right} {
		req := detection.Request{
			Frame:       frame.New(1, 640, 480, frame.FormatJPEG, solidJPEG(t, 640, 480)),
			Orientation: o,
		}
		regions, err := d.Detect(context.Background(), req)
		if err != nil {
			t.Fatalf("%v: Detect failed: %v", o, err)
		}
		if len(regions) != 0 {
			t.Errorf("%v: expected no faces in a solid image, got %d", o, len(regions))
		}
	}
}

func TestDetect_BGRFrame(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	data := make([]byte, 320*240*3)
	req := detection.Request{Frame: frame.New(1, 320, 240, frame.FormatBGR, data), Orientation: frame.Up}
	if _, err := d.Detect(context.Background(), req); err != nil {
		t.Errorf("Detect on BGR frame failed: %v", err)
	}
}

func TestDetect_CancelledContext(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := detection.Request{Frame: frame.New(1, 2, 2, frame.FormatGray, []byte{0, 0, 0, 0})}
	if _, err := d.Detect(ctx, req); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
