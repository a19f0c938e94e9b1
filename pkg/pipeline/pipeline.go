// Package pipeline connects the frame source to the asynchronous face detector
// and keeps the overlay on the display surface in step with the latest result.
//
// SubmitFrame runs on the capture goroutine and never blocks on detection.
// Completions are posted to the UI dispatcher, which is the only place the
// overlay set and the surface are touched.
package pipeline

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/debug"
	"github.com/teslashibe/go-facebox/pkg/detection"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
	"github.com/teslashibe/go-facebox/pkg/ui"
)

// Config holds pipeline configuration
type Config struct {
	Orientation frame.Orientation // How raw frames map to upright
	MaxInFlight int               // Detections allowed at once (default 1)
	Style       overlay.Style
}

// DefaultConfig returns the configuration for a front camera.
func DefaultConfig() Config {
	return Config{
		Orientation: frame.DefaultFrontCamera,
		MaxInFlight: 1,
		Style:       overlay.DefaultStyle(),
	}
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Submitted   uint64    `json:"submitted"`
	DroppedBusy uint64    `json:"droppedBusy"`
	Completed   uint64    `json:"completed"`
	Failed      uint64    `json:"failed"`
	Stale       uint64    `json:"stale"`
	InFlight    int       `json:"inFlight"`
	LastFaces   int       `json:"lastFaces"`
	LastApplied time.Time `json:"lastApplied"`
}

// Pipeline is the overlay pipeline.
type Pipeline struct {
	config   Config
	detector detection.Async
	ui       ui.Dispatcher
	surface  overlay.Surface
	logger   *slog.Logger

	inFlight atomic.Int32
	seq      atomic.Uint64

	submitted   atomic.Uint64
	droppedBusy atomic.Uint64
	completed   atomic.Uint64
	failed      atomic.Uint64
	stale       atomic.Uint64
	lastFaces   atomic.Int32
	lastApplied atomic.Int64 // unix nanos

	// UI context only
	shapes     []overlay.Shape
	appliedSeq uint64
}

// New creates a pipeline. The surface must only be used from d's context.
func New(cfg Config, detector detection.Async, d ui.Dispatcher, surface overlay.Surface) *Pipeline {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if cfg.Style.LineWidth <= 0 {
		cfg.Style = overlay.DefaultStyle()
	}
	return &Pipeline{
		config:   cfg,
		detector: detector,
		ui:       d,
		surface:  surface,
		logger:   log.Component("pipeline"),
	}
}

// SubmitFrame offers a frame for detection. It returns false when the frame was
// discarded because the in-flight limit is reached. Either way the pipeline
// owns the frame and releases it exactly once.
func (p *Pipeline) SubmitFrame(f *frame.Frame) bool {
	if f == nil {
		return false
	}
	if !p.acquire() {
		p.droppedBusy.Add(1)
		debug.FrameLog("frame dropped, detector busy", "frame", f.Seq)
		f.Release()
		return false
	}

	seq := p.seq.Add(1)
	p.submitted.Add(1)
	debug.FrameLog("frame submitted", "frame", f.Seq, "seq", seq)

	req := detection.Request{Frame: f, Orientation: p.config.Orientation}
	p.detector.Submit(req, func(regions []detection.Region, err error) {
		f.Release()
		p.inFlight.Add(-1)
		if !p.ui.Post(func() { p.onDetectionComplete(seq, regions, err) }) {
			debug.Log("completion dropped, ui stopped", "seq", seq)
		}
	})
	return true
}

// acquire takes an in-flight slot if one is free.
func (p *Pipeline) acquire() bool {
	limit := int32(p.config.MaxInFlight)
	for {
		n := p.inFlight.Load()
		if n >= limit {
			return false
		}
		if p.inFlight.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// onDetectionComplete replaces the overlay with the result of submission seq.
// UI context only.
func (p *Pipeline) onDetectionComplete(seq uint64, regions []detection.Region, err error) {
	if seq < p.appliedSeq {
		p.stale.Add(1)
		debug.FrameLog("stale result discarded", "seq", seq, "applied", p.appliedSeq)
		return
	}
	p.appliedSeq = seq
	p.completed.Add(1)
	p.lastApplied.Store(time.Now().UnixNano())

	if err != nil {
		p.failed.Add(1)
		p.logger.Debug("detection failed", "seq", seq, "error", err)
		regions = nil
	}

	if len(regions) == 0 {
		debug.FrameLog("no face detected", "seq", seq)
	} else {
		debug.FrameLog("faces detected", "seq", seq, "count", len(regions))
	}
	p.replace(regions)
}

// replace removes every current shape and attaches one per region, using the
// surface geometry as it is now.
func (p *Pipeline) replace(regions []detection.Region) {
	var next []overlay.Shape
	if len(regions) > 0 {
		vp := p.surface.Viewport()
		best := -1
		if p.config.Style.HighlightPrimary && len(regions) > 1 {
			best = detection.SelectBest(regions)
		}
		next = make([]overlay.Shape, 0, len(regions))
		for i, r := range regions {
			stroke := p.config.Style.Stroke
			if i == best {
				stroke = p.config.Style.PrimaryStroke
			}
			s := overlay.NewShape(vp.ToScreen(r), stroke, p.config.Style.LineWidth)
			s.Primary = i == best
			next = append(next, s)
		}
	}

	for _, s := range p.shapes {
		p.surface.RemoveShape(s.ID)
	}
	for _, s := range next {
		p.surface.AddShape(s)
	}
	p.shapes = next
	p.lastFaces.Store(int32(len(next)))

	if f, ok := p.surface.(overlay.Flusher); ok {
		f.Flush()
	}
}

// Overlay returns a copy of the current overlay set. UI context only.
func (p *Pipeline) Overlay() []overlay.Shape {
	return append([]overlay.Shape(nil), p.shapes...)
}

// Clear removes the overlay. UI context only.
func (p *Pipeline) Clear() {
	p.replace(nil)
}

// Stats returns the current counters. Safe from any goroutine.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Submitted:   p.submitted.Load(),
		DroppedBusy: p.droppedBusy.Load(),
		Completed:   p.completed.Load(),
		Failed:      p.failed.Load(),
		Stale:       p.stale.Load(),
		InFlight:    int(p.inFlight.Load()),
		LastFaces:   int(p.lastFaces.Load()),
	}
	if ns := p.lastApplied.Load(); ns > 0 {
		s.LastApplied = time.Unix(0, ns)
	}
	return s
}
