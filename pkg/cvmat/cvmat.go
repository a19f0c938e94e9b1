// Package cvmat converts frames to OpenCV matrices.
package cvmat

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facebox/pkg/frame"
)

// FromFrame returns a BGR Mat holding a copy of the frame pixels.
// The caller owns the Mat and the frame may be released afterwards.
func FromFrame(f *frame.Frame) (gocv.Mat, error) {
	switch f.Format {
	case frame.FormatJPEG:
		img, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("decode image: %w", err)
		}
		if img.Empty() {
			img.Close()
			return gocv.NewMat(), fmt.Errorf("decode image: not a valid jpeg")
		}
		return img, nil
	case frame.FormatBGR:
		wrapped, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("wrap bgr frame: %w", err)
		}
		// NewMatFromBytes shares the Go buffer, which goes back to the pool
		defer wrapped.Close()
		return wrapped.Clone(), nil
	case frame.FormatGray:
		gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("wrap gray frame: %w", err)
		}
		defer gray.Close()
		bgr := gocv.NewMat()
		gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
		return bgr, nil
	default:
		return gocv.NewMat(), fmt.Errorf("cvmat: unsupported format %s", f.Format)
	}
}

// Orient returns raw turned upright.
// owned is false when raw itself is returned (Up orientation).
func Orient(raw gocv.Mat, o frame.Orientation) (img gocv.Mat, owned bool) {
	if o == frame.Up || !o.Valid() {
		return raw, false
	}

	src, srcOwned := raw, false
	if o.Mirrored() {
		flipped := gocv.NewMat()
		gocv.Flip(raw, &flipped, 1)
		src, srcOwned = flipped, true
	}

	var code gocv.RotateFlag
	switch o.Rotation() {
	case 90:
		code = gocv.Rotate90Clockwise
	case 180:
		code = gocv.Rotate180Clockwise
	case 270:
		code = gocv.Rotate90CounterClockwise
	default:
		return src, srcOwned
	}

	rotated := gocv.NewMat()
	gocv.Rotate(src, &rotated, code)
	if srcOwned {
		src.Close()
	}
	return rotated, true
}
