package display

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/teslashibe/go-facebox/pkg/frame"
)

// EncodeJPEG encodes the upright version of f.
func EncodeJPEG(f *frame.Frame, o frame.Orientation, quality int) ([]byte, error) {
	if f.Format == frame.FormatJPEG && (o == frame.Up || !o.Valid()) {
		return f.Data, nil
	}
	img, err := UprightImage(f, o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// UprightImage converts f to an image.Image in upright orientation.
func UprightImage(f *frame.Frame, o frame.Orientation) (image.Image, error) {
	src := f
	if f.Format == frame.FormatJPEG {
		decoded, err := jpeg.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("decode preview: %w", err)
		}
		src = bgrFrame(f.Seq, decoded)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	up := o.Orient(src)
	rect := image.Rect(0, 0, up.Width, up.Height)
	switch up.Format {
	case frame.FormatGray:
		return &image.Gray{Pix: up.Data, Stride: up.Width, Rect: rect}, nil
	case frame.FormatBGR:
		rgba := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(up.Data); i, j = i+3, j+4 {
			rgba.Pix[j] = up.Data[i+2]
			rgba.Pix[j+1] = up.Data[i+1]
			rgba.Pix[j+2] = up.Data[i]
			rgba.Pix[j+3] = 0xff
		}
		return rgba, nil
	default:
		return nil, fmt.Errorf("display: unsupported format %s", up.Format)
	}
}

func bgrFrame(seq uint64, img image.Image) *frame.Frame {
	b := img.Bounds()
	data := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			data = append(data, uint8(bl>>8), uint8(g>>8), uint8(r>>8))
		}
	}
	return frame.New(seq, b.Dx(), b.Dy(), frame.FormatBGR, data)
}
