package display

import (
	"bytes"
	"image/jpeg"
	"testing"
	"time"

	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"window", KindWindow, false},
		{"WEB", KindWeb, false},
		{"none", KindNone, false},
		{"headless", KindNone, false},
		{"tty", "", true},
	}
	for _, tc := range tests {
		got, err := ParseKind(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseKind(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestPreview_Offer(t *testing.T) {
	p := NewPreview(10)
	f := frame.New(1, 2, 1, frame.FormatGray, []byte{1, 2})

	if !p.Offer(f) {
		t.Fatal("first offer should be stored")
	}
	if p.Offer(frame.New(2, 2, 1, frame.FormatGray, []byte{3, 4})) {
		t.Error("second offer inside the interval should be skipped")
	}

	got, fresh := p.Latest()
	if !fresh || got.Seq != 1 {
		t.Fatalf("Latest() = %v, %v", got, fresh)
	}
	if _, fresh := p.Latest(); fresh {
		t.Error("Latest should report stale on the second call")
	}

	// The stored copy must survive the caller releasing its frame
	f.Data[0] = 99
	if got.Data[0] != 1 {
		t.Error("preview should hold its own copy")
	}

	time.Sleep(110 * time.Millisecond)
	if !p.Offer(frame.New(3, 2, 1, frame.FormatGray, []byte{5, 6})) {
		t.Error("offer after the interval should be stored")
	}
	if p.Offer(frame.New(4, 0, 0, frame.FormatGray, nil)) {
		t.Error("empty frames should be refused")
	}
}

func TestEncodeJPEG_Upright(t *testing.T) {
	bgr := frame.New(1, 4, 2, frame.FormatBGR, bytes.Repeat([]byte{10, 20, 30}, 8))

	tests := []struct {
		o    frame.Orientation
		w, h int
	}{
		{frame.Up, 4, 2},
		{frame.LeftMirrored, 2, 4},
		{frame.Down, 4, 2},
	}
	for _, tc := range tests {
		t.Run(tc.o.String(), func(t *testing.T) {
			data, err := EncodeJPEG(bgr, tc.o, 80)
			if err != nil {
				t.Fatalf("EncodeJPEG: %v", err)
			}
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tc.w || b.Dy() != tc.h {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.w, tc.h)
			}
		})
	}
}

func TestEncodeJPEG_Passthrough(t *testing.T) {
	src, err := EncodeJPEG(frame.New(1, 4, 2, frame.FormatGray, make([]byte, 8)), frame.Up, 80)
	if err != nil {
		t.Fatal(err)
	}
	jf := frame.New(2, 4, 2, frame.FormatJPEG, src)

	out, err := EncodeJPEG(jf, frame.Up, 80)
	if err != nil || !bytes.Equal(out, src) {
		t.Error("upright jpeg frames should pass through unchanged")
	}

	rotated, err := EncodeJPEG(jf, frame.Right, 80)
	if err != nil {
		t.Fatalf("rotate jpeg: %v", err)
	}
	img, _ := jpeg.Decode(bytes.NewReader(rotated))
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 4 {
		t.Errorf("rotated size = %dx%d, want 2x4", b.Dx(), b.Dy())
	}
}

func TestHeadless(t *testing.T) {
	h := NewHeadless(overlay.Viewport{Width: 640, Height: 480})
	h.SetImageSize(480, 640)
	h.AddShape(overlay.NewShape(overlay.Rect{W: 1, H: 1}, overlay.DefaultStyle().Stroke, 1))
	h.Flush()
	h.Render()

	if h.Len() != 1 || h.faces != 1 {
		t.Errorf("Len() = %d, faces = %d", h.Len(), h.faces)
	}
	if vp := h.Viewport(); vp.ImageWidth != 480 || vp.ImageHeight != 640 {
		t.Errorf("Viewport() = %+v", vp)
	}
}
