package frame

import (
	"fmt"
	"strings"
)

// Orientation tells a detector how raw frame pixels map to the upright image.
// Values follow the EXIF / CGImagePropertyOrientation numbering.
type Orientation int

const (
	Up            Orientation = 1
	UpMirrored    Orientation = 2
	Down          Orientation = 3
	DownMirrored  Orientation = 4
	LeftMirrored  Orientation = 5
	Right         Orientation = 6
	RightMirrored Orientation = 7
	Left          Orientation = 8
)

var orientationNames = map[Orientation]string{
	Up:            "up",
	UpMirrored:    "up-mirrored",
	Down:          "down",
	DownMirrored:  "down-mirrored",
	LeftMirrored:  "left-mirrored",
	Right:         "right",
	RightMirrored: "right-mirrored",
	Left:          "left",
}

// DefaultFrontCamera is the hint used for a front-facing sensor in portrait.
const DefaultFrontCamera = LeftMirrored

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// Valid reports whether o is one of the eight orientations.
func (o Orientation) Valid() bool {
	_, ok := orientationNames[o]
	return ok
}

// ParseOrientation accepts names like "left-mirrored", "leftMirrored" or "left_mirrored".
func ParseOrientation(s string) (Orientation, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	if strings.HasSuffix(norm, "mirrored") && !strings.HasSuffix(norm, "-mirrored") {
		norm = strings.TrimSuffix(norm, "mirrored") + "-mirrored"
	}
	for o, name := range orientationNames {
		if name == norm {
			return o, nil
		}
	}
	return 0, fmt.Errorf("frame: unknown orientation %q", s)
}

// Mirrored reports whether the raw pixels are flipped horizontally before rotation.
func (o Orientation) Mirrored() bool {
	switch o {
	case UpMirrored, DownMirrored, LeftMirrored, RightMirrored:
		return true
	}
	return false
}

// Rotation returns the clockwise rotation in degrees that, applied after the
// mirror flip, turns raw pixels upright.
func (o Orientation) Rotation() int {
	switch o {
	case Down, DownMirrored:
		return 180
	case Right, RightMirrored:
		return 90
	case Left, LeftMirrored:
		return 270
	default:
		return 0
	}
}

// SwapsAxes reports whether the upright image is transposed relative to the raw one.
func (o Orientation) SwapsAxes() bool {
	r := o.Rotation()
	return r == 90 || r == 270
}

// UprightSize returns the dimensions of the upright image for a raw frame size.
func (o Orientation) UprightSize(width, height int) (int, int) {
	if o.SwapsAxes() {
		return height, width
	}
	return width, height
}

// MapPixel maps a raw pixel coordinate to its upright coordinate.
func (o Orientation) MapPixel(x, y, width, height int) (int, int) {
	if o.Mirrored() {
		x = width - 1 - x
	}
	switch o.Rotation() {
	case 90:
		return height - 1 - y, x
	case 180:
		return width - 1 - x, height - 1 - y
	case 270:
		return y, width - 1 - x
	default:
		return x, y
	}
}

// Orient returns the pixels of a raw format frame rearranged into upright order.
// Compressed frames and Up frames are returned unchanged.
func (o Orientation) Orient(f *Frame) *Frame {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 || o == Up || !o.Valid() {
		return f
	}
	uw, uh := o.UprightSize(f.Width, f.Height)
	out := make([]byte, len(f.Data))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			u, v := o.MapPixel(x, y, f.Width, f.Height)
			src := (y*f.Width + x) * bpp
			dst := (v*uw + u) * bpp
			copy(out[dst:dst+bpp], f.Data[src:src+bpp])
		}
	}
	return &Frame{
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
		Width:      uw,
		Height:     uh,
		Format:     f.Format,
		Data:       out,
	}
}
