package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facebox/internal/config"
	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/app"
	"github.com/teslashibe/go-facebox/pkg/camera"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds flag values that need parsing before they reach app.Config.
type Options struct {
	Resolution  string
	Orientation string
	Gravity     string
	NoLoop      bool
	LogLevel    string
}

var (
	cfg  = app.DefaultConfig()
	opts = Options{
		Orientation: cfg.Orientation.String(),
		Gravity:     cfg.Gravity.String(),
		LogLevel:    "info",
	}
)

var rootCmd = &cobra.Command{
	Use:     "facebox",
	Short:   "Live camera preview with face boxes",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := opts.LogLevel
		if cfg.Debug {
			level = "debug"
		}
		log.Init(config.LogLevel(level))
		return applyOptions(&cfg, opts)
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cfg)
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, camera.ErrNoCamera) {
			fmt.Fprintln(os.Stderr, "❌ No camera available.")
			fmt.Fprintf(os.Stderr, "   %v\n", err)
			fmt.Fprintln(os.Stderr, "   Check that a camera is connected and not in use, or pass --camera with a device index or video file.")
			fmt.Fprintln(os.Stderr, "   Run 'facebox devices' to see what would be tried.")
		} else {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.Camera.Device, "camera", "", "Camera device index, video file or device ID (default: try 0 then 1)")
	f.StringVar(&cfg.Camera.Backend, "camera-backend", cfg.Camera.Backend, "Camera driver: "+strings.Join(camera.Drivers(), ", "))
	f.IntSliceVar(&cfg.Camera.Fallbacks, "fallback", cfg.Camera.Fallbacks, "Device indices tried when --camera is empty or fails")
	f.IntVar(&cfg.Camera.Width, "width", cfg.Camera.Width, "Capture width")
	f.IntVar(&cfg.Camera.Height, "height", cfg.Camera.Height, "Capture height")
	f.StringVar(&opts.Resolution, "resolution", "", "Capture preset: "+strings.Join(camera.PresetNames(), ", "))
	f.IntVar(&cfg.Camera.Framerate, "fps", cfg.Camera.Framerate, "Capture frame rate")
	f.BoolVar(&opts.NoLoop, "no-loop", false, "Stop at the end of a video file instead of looping")

	f.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug, info, warn, error")
	f.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	f.BoolVar(&cfg.DebugFrames, "debug-frames", false, "Log every frame (very verbose)")

	r := rootCmd.Flags()
	r.StringVar(&cfg.Detection.Backend, "detector", cfg.Detection.Backend, "Face detector: yunet, pigo, yolo")
	r.StringVar(&cfg.Detection.ModelPath, "model", cfg.Detection.ModelPath, "YuNet ONNX model path")
	r.StringVar(&cfg.Detection.YOLOModelPath, "yolo-model", cfg.Detection.YOLOModelPath, "YOLOv8 face ONNX model path")
	r.StringVar(&cfg.Detection.CascadePath, "cascade", cfg.Detection.CascadePath, "Pigo facefinder cascade path")
	r.Float64Var(&cfg.Detection.ConfidenceThresh, "confidence", cfg.Detection.ConfidenceThresh, "Minimum detection confidence")
	r.StringVar(&opts.Orientation, "orientation", opts.Orientation, "Raw frame orientation: up, down, left, right, with -mirrored variants")

	r.StringVar(&cfg.Display, "display", cfg.Display, "Display: window, web, none")
	r.StringVar(&cfg.Addr, "addr", cfg.Addr, "Web display listen address (loopback only)")
	r.StringVar(&opts.Gravity, "gravity", opts.Gravity, "Preview gravity: fill, fit, stretch")
	r.BoolVar(&cfg.Mirror, "mirror", cfg.Mirror, "Mirror the preview horizontally")
	r.IntVar(&cfg.DisplayWidth, "display-width", cfg.DisplayWidth, "Initial display width")
	r.IntVar(&cfg.DisplayHeight, "display-height", cfg.DisplayHeight, "Initial display height")
	r.IntVar(&cfg.PreviewFPS, "preview-fps", cfg.PreviewFPS, "Preview refresh rate")
	r.IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "Concurrent detections")
}

// applyOptions parses the string-typed flags into cfg.
func applyOptions(cfg *app.Config, o Options) error {
	cfg.Camera.Loop = !o.NoLoop
	if o.Resolution != "" {
		if err := cfg.Camera.ApplyPreset(o.Resolution); err != nil {
			return err
		}
	}

	orientation, err := frame.ParseOrientation(o.Orientation)
	if err != nil {
		return err
	}
	cfg.Orientation = orientation

	gravity, err := overlay.ParseGravity(o.Gravity)
	if err != nil {
		return err
	}
	cfg.Gravity = gravity
	return nil
}

// run builds the app and blocks until the context ends or the preview closes.
func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := a.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}
