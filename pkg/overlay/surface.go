package overlay

import "sync"

// Surface is the preview that overlay shapes are attached to.
// All methods are called on the UI loop.
type Surface interface {
	// Viewport returns the current preview geometry
	Viewport() Viewport
	AddShape(s Shape)
	RemoveShape(id string)
}

// Flusher is implemented by surfaces that batch shape changes.
// Flush is called once after a complete overlay replacement.
type Flusher interface {
	Flush()
}

// Snapshot is a consistent copy of a layer's state.
type Snapshot struct {
	Version  uint64   `json:"version"`
	Viewport Viewport `json:"viewport"`
	Shapes   []Shape  `json:"shapes"`
}

// Layer is an in-memory Surface. Displays embed it and render from Snapshot.
//
// Writes happen on the UI loop. Snapshot may be read from any goroutine and
// only ever sees state published by Flush, so a replacement in progress is
// never visible outside the UI loop.
type Layer struct {
	mu        sync.RWMutex
	viewport  Viewport
	shapes    []Shape
	version   uint64
	published Snapshot
	onFlush   func(Snapshot)
}

// NewLayer creates an empty layer with the given geometry.
func NewLayer(vp Viewport) *Layer {
	l := &Layer{viewport: vp}
	l.published = l.snapshotLocked()
	return l
}

// Viewport returns the current geometry.
func (l *Layer) Viewport() Viewport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.viewport
}

// SetViewport changes the geometry. Shapes already attached keep their rects
// until the next overlay replacement.
func (l *Layer) SetViewport(vp Viewport) {
	l.mu.Lock()
	l.viewport = vp
	l.mu.Unlock()
}

// SetImageSize updates the upright image size without touching the surface size.
func (l *Layer) SetImageSize(w, h int) {
	l.mu.Lock()
	l.viewport.ImageWidth, l.viewport.ImageHeight = w, h
	l.mu.Unlock()
}

// AddShape attaches a shape on top of the existing ones.
func (l *Layer) AddShape(s Shape) {
	l.mu.Lock()
	l.shapes = append(l.shapes, s)
	l.mu.Unlock()
}

// RemoveShape detaches the shape with the given ID, if attached.
func (l *Layer) RemoveShape(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.shapes {
		if s.ID == id {
			l.shapes = append(l.shapes[:i], l.shapes[i+1:]...)
			return
		}
	}
}

// Shapes returns a copy of the attached shapes in drawing order.
func (l *Layer) Shapes() []Shape {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Shape(nil), l.shapes...)
}

// Len returns the number of attached shapes.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.shapes)
}

// OnFlush registers a callback invoked with a snapshot after every Flush.
func (l *Layer) OnFlush(fn func(Snapshot)) {
	l.mu.Lock()
	l.onFlush = fn
	l.mu.Unlock()
}

// Flush bumps the version, publishes the current state and notifies the
// flush callback.
func (l *Layer) Flush() {
	l.mu.Lock()
	l.version++
	fn := l.onFlush
	snap := l.snapshotLocked()
	l.published = snap
	l.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Snapshot returns a copy of the state published by the last Flush.
func (l *Layer) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := l.published
	snap.Shapes = append([]Shape{}, snap.Shapes...)
	return snap
}

func (l *Layer) snapshotLocked() Snapshot {
	return Snapshot{
		Version:  l.version,
		Viewport: l.viewport,
		Shapes:   append([]Shape{}, l.shapes...),
	}
}

var (
	_ Surface = (*Layer)(nil)
	_ Flusher = (*Layer)(nil)
)
