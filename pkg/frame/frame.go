// Package frame defines the captured image handle passed through the overlay pipeline.
package frame

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Format describes how Frame.Data is encoded.
type Format int

const (
	// FormatBGR is packed 8-bit BGR pixels, Width*Height*3 bytes.
	FormatBGR Format = iota
	// FormatGray is 8-bit luminance, Width*Height bytes.
	FormatGray
	// FormatJPEG is a complete JPEG image.
	FormatJPEG
)

func (f Format) String() string {
	switch f {
	case FormatBGR:
		return "bgr"
	case FormatGray:
		return "gray"
	case FormatJPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for compressed formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatBGR:
		return 3
	case FormatGray:
		return 1
	default:
		return 0
	}
}

var (
	// ErrEmpty is returned for frames without pixel data.
	ErrEmpty = errors.New("frame: empty")

	// ErrSizeMismatch is returned when Data does not match Width*Height for raw formats.
	ErrSizeMismatch = errors.New("frame: data size does not match dimensions")
)

// Frame is one captured image buffer.
//
// A Frame is owned by whoever received it last and is valid until Release is
// called. Consumers that need the pixels longer must Clone first.
type Frame struct {
	Seq        uint64    // Capture counter, monotonic per source
	CapturedAt time.Time // When the source read it
	Width      int       // Raw (unoriented) width in pixels
	Height     int       // Raw (unoriented) height in pixels
	Format     Format
	Data       []byte

	release  func([]byte)
	released atomic.Bool
}

// New wraps data in a Frame without a release hook.
func New(seq uint64, width, height int, format Format, data []byte) *Frame {
	return &Frame{
		Seq:        seq,
		CapturedAt: time.Now(),
		Width:      width,
		Height:     height,
		Format:     format,
		Data:       data,
	}
}

// Validate checks that the frame carries usable pixels.
func (f *Frame) Validate() error {
	if f == nil || len(f.Data) == 0 {
		return ErrEmpty
	}
	if bpp := f.Format.BytesPerPixel(); bpp > 0 {
		if f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height*bpp {
			return fmt.Errorf("%w: %dx%d %s, %d bytes", ErrSizeMismatch, f.Width, f.Height, f.Format, len(f.Data))
		}
	}
	return nil
}

// Release hands the buffer back to its pool. Safe to call more than once.
func (f *Frame) Release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	if f.release != nil {
		f.release(f.Data)
	}
	f.Data = nil
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f != nil && f.released.Load()
}

// Clone returns an independent copy that does not share the buffer.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
		Width:      f.Width,
		Height:     f.Height,
		Format:     f.Format,
		Data:       data,
	}
}
