// Package display implements the surfaces the face overlay is drawn on.
//
// A Display is an overlay.Surface plus a preview of the camera. Shape and
// geometry changes happen on the UI loop; ShowFrame is called from the
// capture goroutine and only stores a copy of the frame.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
)

// Kinds of display
const (
	KindWindow = "window"
	KindWeb    = "web"
	KindNone   = "none"
)

// ParseKind validates a display kind name.
func ParseKind(s string) (string, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case KindWindow, KindWeb, KindNone:
		return k, nil
	case "headless":
		return KindNone, nil
	}
	return "", fmt.Errorf("display: unknown kind %q (want window, web or none)", s)
}

// Display is a surface with a live camera preview.
type Display interface {
	overlay.Surface
	overlay.Flusher

	// ShowFrame offers a raw frame for the preview. The display keeps a copy;
	// the caller still owns f.
	ShowFrame(f *frame.Frame)

	// SetImageSize records the upright camera image size. UI loop only.
	SetImageSize(width, height int)

	// Render redraws the preview. Called periodically on the UI loop.
	Render()

	// Start brings the display up; Close tears it down.
	Start(ctx context.Context) error
	Close() error
}

// Preview holds the most recent frame offered for display, rate limited.
type Preview struct {
	minInterval time.Duration

	mu      sync.Mutex
	latest  *frame.Frame
	fresh   bool
	offered time.Time
}

// NewPreview creates a slot accepting at most fps frames per second (0 = all).
func NewPreview(fps int) *Preview {
	p := &Preview{}
	if fps > 0 {
		p.minInterval = time.Second / time.Duration(fps)
	}
	return p
}

// Offer stores a copy of f unless the previous copy is too recent.
func (p *Preview) Offer(f *frame.Frame) bool {
	if f.Validate() != nil {
		return false
	}
	now := time.Now()
	p.mu.Lock()
	if p.minInterval > 0 && now.Sub(p.offered) < p.minInterval {
		p.mu.Unlock()
		return false
	}
	p.offered = now
	p.mu.Unlock()

	clone := f.Clone()

	p.mu.Lock()
	p.latest = clone
	p.fresh = true
	p.mu.Unlock()
	return true
}

// Latest returns the stored frame and whether it arrived since the last call.
func (p *Preview) Latest() (*frame.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fresh := p.fresh
	p.fresh = false
	return p.latest, fresh
}

// Headless is a display without a preview. It logs overlay changes.
type Headless struct {
	*overlay.Layer
	logger *slog.Logger
	faces  int
}

// NewHeadless creates a headless display with a nominal viewport.
func NewHeadless(vp overlay.Viewport) *Headless {
	h := &Headless{
		Layer:  overlay.NewLayer(vp),
		logger: log.Component("display"),
		faces:  -1,
	}
	h.Layer.OnFlush(h.logChange)
	return h
}

func (h *Headless) logChange(s overlay.Snapshot) {
	if len(s.Shapes) == h.faces {
		return
	}
	h.faces = len(s.Shapes)
	if h.faces == 0 {
		h.logger.Info("no face detected")
		return
	}
	h.logger.Info("faces detected", "count", h.faces)
}

// ShowFrame discards the frame.
func (h *Headless) ShowFrame(f *frame.Frame) {}

// Render does nothing.
func (h *Headless) Render() {}

// Start does nothing.
func (h *Headless) Start(ctx context.Context) error { return nil }

// Close does nothing.
func (h *Headless) Close() error { return nil }

var (
	_ Display = (*Headless)(nil)
	_ Display = (*Web)(nil)
)
