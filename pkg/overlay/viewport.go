// Package overlay holds the display-independent side of the face overlay:
// screen-space shapes, the preview viewport and its coordinate transform,
// and the Surface interface that displays implement.
package overlay

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-facebox/pkg/detection"
)

// Gravity controls how the upright image is fitted into the surface.
type Gravity int

const (
	// ResizeAspectFill scales to cover the surface, cropping the overflow
	ResizeAspectFill Gravity = iota
	// ResizeAspect scales to fit inside the surface, letterboxing the rest
	ResizeAspect
	// Resize stretches the image to the surface, ignoring aspect ratio
	Resize
)

var gravityNames = map[Gravity]string{
	ResizeAspectFill: "fill",
	ResizeAspect:     "fit",
	Resize:           "stretch",
}

func (g Gravity) String() string {
	if s, ok := gravityNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Gravity(%d)", int(g))
}

// MarshalText encodes the gravity by name.
func (g Gravity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText decodes a gravity name.
func (g *Gravity) UnmarshalText(text []byte) error {
	v, err := ParseGravity(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ParseGravity accepts fill/fit/stretch and the aspect-fill/aspect/resize spellings.
func ParseGravity(s string) (Gravity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fill", "aspect-fill", "aspectfill", "resizeaspectfill", "":
		return ResizeAspectFill, nil
	case "fit", "aspect", "resizeaspect":
		return ResizeAspect, nil
	case "stretch", "resize":
		return Resize, nil
	}
	return 0, fmt.Errorf("overlay: unknown gravity %q", s)
}

// Rect is a rectangle in surface coordinates (pixels, origin top-left).
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Viewport is the current geometry of the preview: the surface size, how the
// upright image is placed in it, and whether the preview is mirrored.
type Viewport struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Gravity     Gravity `json:"gravity"`
	ImageWidth  int     `json:"imageWidth"`
	ImageHeight int     `json:"imageHeight"`
	Mirrored    bool    `json:"mirrored"`
}

// Valid reports whether the surface has a usable size.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Placement returns where the whole upright image lands on the surface.
// With ResizeAspectFill the rect extends past the surface edges.
func (v Viewport) Placement() Rect {
	if !v.Valid() {
		return Rect{}
	}
	if v.Gravity == Resize || v.ImageWidth <= 0 || v.ImageHeight <= 0 {
		return Rect{W: v.Width, H: v.Height}
	}

	iw, ih := float64(v.ImageWidth), float64(v.ImageHeight)
	sx, sy := v.Width/iw, v.Height/ih
	scale := sx
	switch v.Gravity {
	case ResizeAspect:
		if sy < scale {
			scale = sy
		}
	default:
		if sy > scale {
			scale = sy
		}
	}

	w, h := iw*scale, ih*scale
	return Rect{X: (v.Width - w) / 2, Y: (v.Height - h) / 2, W: w, H: h}
}

// ToScreen converts a normalized upright-image region into surface coordinates.
func (v Viewport) ToScreen(r detection.Region) Rect {
	p := v.Placement()
	x := r.X
	if v.Mirrored {
		x = 1 - r.X - r.W
	}
	return Rect{
		X: p.X + x*p.W,
		Y: p.Y + r.Y*p.H,
		W: r.W * p.W,
		H: r.H * p.H,
	}
}
