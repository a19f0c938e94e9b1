// Package mediacam registers the "mediadevices" camera driver, backed by
// pion/mediadevices. A device is a media device ID or label.
package mediacam

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the camera adapter
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"github.com/teslashibe/go-facebox/pkg/camera"
	"github.com/teslashibe/go-facebox/pkg/frame"
)

func init() {
	camera.Register(camera.BackendMediaDevices, driver{})
}

type driver struct{}

// Candidates lists video inputs, the configured one first when it matches
// an ID or label.
func (driver) Candidates(cfg camera.Config) ([]string, error) {
	var ids []string
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind != mediadevices.VideoInput {
			continue
		}
		if cfg.Device != "" && (d.DeviceID == cfg.Device || strings.EqualFold(d.Label, cfg.Device)) {
			ids = append([]string{d.DeviceID}, ids...)
			continue
		}
		ids = append(ids, d.DeviceID)
	}
	return ids, nil
}

func (driver) Open(cfg camera.Config, device string) (camera.Reader, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(device)
			c.Width = prop.Int(cfg.Width)
			c.Height = prop.Int(cfg.Height)
			c.FrameRate = prop.Float(cfg.Framerate)
		},
	})
	if err != nil {
		return nil, err
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, fmt.Errorf("device %s has no video track", device)
	}
	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		tracks[0].Close()
		return nil, fmt.Errorf("device %s: unexpected track type %T", device, tracks[0])
	}

	return &reader{track: track, video: track.NewReader(false)}, nil
}

type reader struct {
	track *mediadevices.VideoTrack
	video video.Reader
}

func (r *reader) Read(pool *frame.Pool) (*frame.Frame, error) {
	img, release, err := r.video.Read()
	if err != nil {
		return nil, err
	}
	defer release()

	b := img.Bounds()
	buf := pool.Get(b.Dx() * b.Dy() * 3)
	ToBGR(img, buf)
	return pool.Wrap(0, b.Dx(), b.Dy(), frame.FormatBGR, buf), nil
}

func (r *reader) Close() error {
	return r.track.Close()
}

// ToBGR writes img as packed BGR24 into dst, which must hold Dx*Dy*3 bytes.
func ToBGR(img image.Image, dst []byte) {
	b := img.Bounds()
	w := b.Dx()

	switch src := img.(type) {
	case *image.YCbCr:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < w; x++ {
				yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := src.COffset(b.Min.X+x, b.Min.Y+y)
				r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				o := (y*w + x) * 3
				dst[o], dst[o+1], dst[o+2] = bl, g, r
			}
		}
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[(y)*src.Stride:]
			for x := 0; x < w; x++ {
				o := (y*w + x) * 3
				dst[o], dst[o+1], dst[o+2] = row[x*4+2], row[x*4+1], row[x*4]
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < w; x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				o := (y*w + x) * 3
				dst[o], dst[o+1], dst[o+2] = c.B, c.G, c.R
			}
		}
	}
}
