package overlay

import (
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/google/uuid"
)

// Shape is one bounding-box rectangle attached to a surface. Fill is always clear.
type Shape struct {
	ID        string
	Rect      Rect
	Stroke    color.RGBA
	LineWidth float64
	Primary   bool
}

// NewShape creates a shape with a fresh ID.
func NewShape(r Rect, stroke color.RGBA, lineWidth float64) Shape {
	return Shape{
		ID:        uuid.New().String(),
		Rect:      r,
		Stroke:    stroke,
		LineWidth: lineWidth,
	}
}

type shapeJSON struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w"`
	H         float64 `json:"h"`
	Stroke    string  `json:"stroke"`
	LineWidth float64 `json:"lineWidth"`
	Primary   bool    `json:"primary,omitempty"`
}

// MarshalJSON encodes the shape for browser clients, stroke as a CSS hex color.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(shapeJSON{
		ID:        s.ID,
		X:         s.Rect.X,
		Y:         s.Rect.Y,
		W:         s.Rect.W,
		H:         s.Rect.H,
		Stroke:    HexColor(s.Stroke),
		LineWidth: s.LineWidth,
		Primary:   s.Primary,
	})
}

// HexColor formats c as #rrggbb.
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Style is how detected faces are drawn.
type Style struct {
	Stroke           color.RGBA
	PrimaryStroke    color.RGBA
	LineWidth        float64
	HighlightPrimary bool
}

// DefaultStyle draws green boxes, the most prominent face in yellow.
func DefaultStyle() Style {
	return Style{
		Stroke:           color.RGBA{G: 255, A: 255},
		PrimaryStroke:    color.RGBA{R: 255, G: 220, A: 255},
		LineWidth:        2,
		HighlightPrimary: true,
	}
}
