package overlay

import (
	"math"
	"testing"

	"github.com/teslashibe/go-facebox/pkg/detection"
)

func approxRect(a, b Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.W-b.W) < eps && math.Abs(a.H-b.H) < eps
}

func TestParseGravity(t *testing.T) {
	tests := []struct {
		in      string
		want    Gravity
		wantErr bool
	}{
		{"", ResizeAspectFill, false},
		{"fill", ResizeAspectFill, false},
		{"ResizeAspectFill", ResizeAspectFill, false},
		{"fit", ResizeAspect, false},
		{"aspect", ResizeAspect, false},
		{"stretch", Resize, false},
		{"resize", Resize, false},
		{"zoom", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseGravity(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestViewport_Placement(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
		want Rect
	}{
		{
			name: "fill crops width",
			vp:   Viewport{Width: 400, Height: 800, ImageWidth: 480, ImageHeight: 640},
			want: Rect{X: -100, Y: 0, W: 600, H: 800},
		},
		{
			name: "fit letterboxes height",
			vp:   Viewport{Width: 400, Height: 800, Gravity: ResizeAspect, ImageWidth: 480, ImageHeight: 640},
			want: Rect{X: 0, Y: (800 - 400.0*640/480) / 2, W: 400, H: 400.0 * 640 / 480},
		},
		{
			name: "stretch",
			vp:   Viewport{Width: 400, Height: 800, Gravity: Resize, ImageWidth: 480, ImageHeight: 640},
			want: Rect{W: 400, H: 800},
		},
		{
			name: "unknown image size stretches",
			vp:   Viewport{Width: 300, Height: 200},
			want: Rect{W: 300, H: 200},
		},
		{
			name: "invalid surface",
			vp:   Viewport{ImageWidth: 10, ImageHeight: 10},
			want: Rect{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.vp.Placement(); !approxRect(got, tc.want) {
				t.Errorf("Placement() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestViewport_ToScreen(t *testing.T) {
	region := detection.Region{X: 0.25, Y: 0.5, W: 0.25, H: 0.25, Confidence: 0.9}

	tests := []struct {
		name string
		vp   Viewport
		want Rect
	}{
		{
			name: "stretch",
			vp:   Viewport{Width: 400, Height: 800, Gravity: Resize},
			want: Rect{X: 100, Y: 400, W: 100, H: 200},
		},
		{
			name: "stretch mirrored",
			vp:   Viewport{Width: 400, Height: 800, Gravity: Resize, Mirrored: true},
			want: Rect{X: 200, Y: 400, W: 100, H: 200},
		},
		{
			name: "fill",
			vp:   Viewport{Width: 400, Height: 800, ImageWidth: 480, ImageHeight: 640},
			want: Rect{X: -100 + 150, Y: 400, W: 150, H: 200},
		},
		{
			name: "fit",
			vp:   Viewport{Width: 800, Height: 400, Gravity: ResizeAspect, ImageWidth: 400, ImageHeight: 400},
			want: Rect{X: 200 + 100, Y: 200, W: 100, H: 100},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.vp.ToScreen(region); !approxRect(got, tc.want) {
				t.Errorf("ToScreen() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGravity_TextRoundTrip(t *testing.T) {
	for _, g := range []Gravity{ResizeAspectFill, ResizeAspect, Resize} {
		text, _ := g.MarshalText()
		var back Gravity
		if err := back.UnmarshalText(text); err != nil || back != g {
			t.Errorf("%v: round trip gave %v, %v", g, back, err)
		}
	}
}
