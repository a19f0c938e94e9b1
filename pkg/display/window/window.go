// Package window is a native desktop display built on OpenCV's HighGUI.
//
// All window calls happen in Render, which runs on the UI loop. The UI loop
// must own the main OS thread on macOS.
package window

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/cvmat"
	"github.com/teslashibe/go-facebox/pkg/display"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
)

// Keys handled by the window
const (
	keyEsc    = 27
	keyQuit   = 'q'
	keyGrow   = '+'
	keyGrow2  = '='
	keyShrink = '-'
)

// resizeStep is the canvas scale change per key press.
const resizeStep = 1.1

// Config for a window display.
type Config struct {
	Title       string
	PreviewFPS  int
	Orientation frame.Orientation
	Viewport    overlay.Viewport // Canvas size and gravity
}

// Window shows the preview and the overlay in a desktop window.
type Window struct {
	*overlay.Layer

	config  Config
	preview *display.Preview
	onQuit  func()
	logger  *slog.Logger

	mu     sync.Mutex
	window *gocv.Window
	image  gocv.Mat // Latest upright preview, UI loop only
	canvas gocv.Mat
}

// New creates a window display. onQuit is called on the UI loop when the
// user closes the window or presses q/Esc.
func New(cfg Config, onQuit func()) *Window {
	if cfg.Title == "" {
		cfg.Title = "facebox"
	}
	return &Window{
		Layer:   overlay.NewLayer(cfg.Viewport),
		config:  cfg,
		preview: display.NewPreview(cfg.PreviewFPS),
		onQuit:  onQuit,
		logger:  log.Component("window"),
		image:   gocv.NewMat(),
		canvas:  gocv.NewMat(),
	}
}

// Start opens the window. Call from the UI loop goroutine.
func (w *Window) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		w.window = gocv.NewWindow(w.config.Title)
		vp := w.Viewport()
		w.window.ResizeWindow(int(vp.Width), int(vp.Height))
	}
	return nil
}

// ShowFrame stores a copy of f for the next Render.
func (w *Window) ShowFrame(f *frame.Frame) {
	w.preview.Offer(f)
}

// Render composes the preview and shapes and shows them. UI loop only.
func (w *Window) Render() {
	w.mu.Lock()
	win := w.window
	w.mu.Unlock()
	if win == nil {
		return
	}

	if f, fresh := w.preview.Latest(); fresh {
		w.updateImage(f)
	}

	vp := w.Viewport()
	w.compose(vp)
	win.IMShow(w.canvas)
	w.handleKey(win.WaitKey(1), vp)

	if !win.IsOpen() {
		w.quit()
	}
}

func (w *Window) updateImage(f *frame.Frame) {
	raw, err := cvmat.FromFrame(f)
	if err != nil {
		w.logger.Debug("preview conversion failed", "error", err)
		return
	}
	defer raw.Close()

	img, owned := cvmat.Orient(raw, w.config.Orientation)
	if owned {
		defer img.Close()
	}
	img.CopyTo(&w.image)
}

// compose draws the gravity-fitted preview and the shapes onto the canvas.
func (w *Window) compose(vp overlay.Viewport) {
	width, height := int(vp.Width), int(vp.Height)
	if width <= 0 || height <= 0 {
		return
	}
	if w.canvas.Cols() != width || w.canvas.Rows() != height {
		w.canvas.Close()
		w.canvas = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	}
	w.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))

	if !w.image.Empty() {
		w.drawPreview(vp)
	}

	for _, s := range w.Shapes() {
		r := image.Rect(
			int(math.Round(s.Rect.X)),
			int(math.Round(s.Rect.Y)),
			int(math.Round(s.Rect.X+s.Rect.W)),
			int(math.Round(s.Rect.Y+s.Rect.H)),
		)
		thickness := int(math.Max(1, math.Round(s.LineWidth)))
		gocv.Rectangle(&w.canvas, r, s.Stroke, thickness)
	}
}

func (w *Window) drawPreview(vp overlay.Viewport) {
	p := vp.Placement()
	size := image.Pt(int(math.Round(p.W)), int(math.Round(p.H)))
	if size.X <= 0 || size.Y <= 0 {
		return
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(w.image, &scaled, size, 0, 0, gocv.InterpolationLinear)
	if vp.Mirrored {
		gocv.Flip(scaled, &scaled, 1)
	}

	// Visible part of the placed image, in canvas and in image coordinates
	origin := image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	placed := image.Rectangle{Min: origin, Max: origin.Add(size)}
	dst := placed.Intersect(image.Rect(0, 0, w.canvas.Cols(), w.canvas.Rows()))
	if dst.Empty() {
		return
	}
	src := dst.Sub(origin)

	srcROI := scaled.Region(src)
	defer srcROI.Close()
	dstROI := w.canvas.Region(dst)
	defer dstROI.Close()
	srcROI.CopyTo(&dstROI)
}

func (w *Window) handleKey(key int, vp overlay.Viewport) {
	switch key {
	case keyQuit, keyEsc:
		w.quit()
	case keyGrow, keyGrow2:
		w.resize(vp, resizeStep)
	case keyShrink:
		w.resize(vp, 1/resizeStep)
	}
}

// resize changes the canvas size; overlay shapes follow on the next result.
func (w *Window) resize(vp overlay.Viewport, factor float64) {
	vp.Width = math.Round(math.Max(160, vp.Width*factor))
	vp.Height = math.Round(math.Max(120, vp.Height*factor))
	w.SetViewport(vp)
	if w.window != nil {
		w.window.ResizeWindow(int(vp.Width), int(vp.Height))
	}
	w.logger.Debug("canvas resized", "width", vp.Width, "height", vp.Height)
}

func (w *Window) quit() {
	if w.onQuit != nil {
		w.onQuit()
	}
}

// Close destroys the window. Call from the UI loop goroutine.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window != nil {
		w.window.Close()
		w.window = nil
	}
	w.image.Close()
	w.canvas.Close()
	return nil
}

var _ display.Display = (*Window)(nil)
