package display

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facebox/internal/log"
	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/hub"
	"github.com/teslashibe/go-facebox/pkg/overlay"
	"github.com/teslashibe/go-facebox/pkg/ui"
)

//go:embed static/index.html
var indexHTML []byte

// WebConfig configures the browser display.
type WebConfig struct {
	Addr        string // Listen address, keep it on loopback
	PreviewFPS  int    // JPEG frames pushed per second
	Quality     int    // JPEG quality 1-100
	Orientation frame.Orientation
	Viewport    overlay.Viewport // Initial geometry until the page reports its size
}

// DefaultWebConfig returns a loopback server on port 8080.
func DefaultWebConfig() WebConfig {
	return WebConfig{
		Addr:        "127.0.0.1:8080",
		PreviewFPS:  15,
		Quality:     75,
		Orientation: frame.DefaultFrontCamera,
		Viewport:    overlay.Viewport{Width: 640, Height: 480},
	}
}

// LayoutMessage is sent by the page when its preview area changes size.
type LayoutMessage struct {
	Type   string  `json:"type"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Web renders the preview and overlay in a local browser page.
type Web struct {
	*overlay.Layer

	config  WebConfig
	app     *fiber.App
	ui      ui.Dispatcher
	preview *Preview
	logger  *slog.Logger

	cameraHub  *hub.Hub
	overlayHub *hub.Hub

	mu       sync.Mutex
	statsFn  func() any
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWeb creates the web display. Layout changes from the page are applied
// through d.
func NewWeb(cfg WebConfig, d ui.Dispatcher) *Web {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultWebConfig().Quality
	}
	if cfg.PreviewFPS <= 0 {
		cfg.PreviewFPS = DefaultWebConfig().PreviewFPS
	}

	w := &Web{
		Layer:      overlay.NewLayer(cfg.Viewport),
		config:     cfg,
		ui:         d,
		preview:    NewPreview(cfg.PreviewFPS),
		logger:     log.Component("web"),
		cameraHub:  hub.New("camera"),
		overlayHub: hub.New("overlay"),
	}
	w.Layer.OnFlush(func(s overlay.Snapshot) {
		if err := w.overlayHub.BroadcastJSON(s); err != nil {
			w.logger.Warn("overlay encode failed", "error", err)
		}
	})
	w.overlayHub.OnMessage(w.handleInbound)

	app := fiber.New(fiber.Config{
		AppName:               "facebox",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", w.handleIndex)

	api := app.Group("/api")
	api.Get("/stats", w.handleStats)
	api.Get("/overlay", w.handleOverlay)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(w.handleCameraWS))
	app.Get("/ws/overlay", websocket.New(w.handleOverlayWS))

	w.app = app
	return w
}

// SetStatsFunc sets the source of /api/stats.
func (w *Web) SetStatsFunc(fn func() any) {
	w.mu.Lock()
	w.statsFn = fn
	w.mu.Unlock()
}

// Start listens on the configured address and starts the hubs and the
// preview encoder.
func (w *Web) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", w.config.Addr)
	if err != nil {
		return fmt.Errorf("web display listen: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.listener = ln
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(3)
	go func() {
		defer w.wg.Done()
		w.cameraHub.Run(ctx)
	}()
	go func() {
		defer w.wg.Done()
		w.overlayHub.Run(ctx)
	}()
	go func() {
		defer w.wg.Done()
		w.encodeLoop(ctx)
	}()
	go func() {
		if err := w.app.Listener(ln); err != nil {
			w.logger.Error("web display stopped", "error", err)
		}
	}()

	w.logger.Info("web display", "url", "http://"+ln.Addr().String())
	return nil
}

// Addr returns the bound address once started.
func (w *Web) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.Addr().String()
}

// ShowFrame stores a copy of f for the preview encoder.
func (w *Web) ShowFrame(f *frame.Frame) {
	w.preview.Offer(f)
}

// Render does nothing; the encoder pushes frames on its own schedule.
func (w *Web) Render() {}

// Close stops the server and its goroutines.
func (w *Web) Close() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	err := w.app.ShutdownWithTimeout(2 * time.Second)
	w.wg.Wait()
	return err
}

func (w *Web) encodeLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(w.config.PreviewFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f, fresh := w.preview.Latest()
		if !fresh || w.cameraHub.ClientCount() == 0 {
			continue
		}
		data, err := EncodeJPEG(f, w.config.Orientation, w.config.Quality)
		if err != nil {
			w.logger.Debug("preview encode failed", "error", err)
			continue
		}
		w.cameraHub.BroadcastBinary(data)
	}
}

// handleInbound applies layout messages from the page on the UI loop.
func (w *Web) handleInbound(_ *hub.Client, data []byte) {
	var msg LayoutMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "layout" {
		return
	}
	if msg.Width <= 0 || msg.Height <= 0 || msg.Width > 16384 || msg.Height > 16384 {
		w.logger.Debug("ignoring layout", "width", msg.Width, "height", msg.Height)
		return
	}

	w.ui.Post(func() {
		vp := w.Viewport()
		vp.Width, vp.Height = msg.Width, msg.Height
		w.SetViewport(vp)
		w.Flush()
	})
}

func (w *Web) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.Send(indexHTML)
}

func (w *Web) handleStats(c *fiber.Ctx) error {
	w.mu.Lock()
	fn := w.statsFn
	w.mu.Unlock()
	if fn == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(fn())
}

func (w *Web) handleOverlay(c *fiber.Ctx) error {
	return c.JSON(w.Snapshot())
}

func (w *Web) handleCameraWS(c *websocket.Conn) {
	if client := hub.NewClient(w.cameraHub, c); client != nil {
		client.Run()
	}
}

func (w *Web) handleOverlayWS(c *websocket.Conn) {
	client := hub.NewClient(w.overlayHub, c)
	if client == nil {
		return
	}
	// New pages need the current state before the next change. Taken after
	// registration, so any later flush also reaches this client.
	if msg, err := hub.Encode(w.Snapshot()); err == nil {
		w.overlayHub.SendTo(client, msg)
	}
	client.Run()
}
