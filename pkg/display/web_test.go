package display

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facebox/pkg/frame"
	"github.com/teslashibe/go-facebox/pkg/overlay"
	"github.com/teslashibe/go-facebox/pkg/ui"
)

func testWeb(t *testing.T) *Web {
	t.Helper()
	cfg := DefaultWebConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.PreviewFPS = 50
	return NewWeb(cfg, ui.Sync{})
}

func TestWeb_API(t *testing.T) {
	w := testWeb(t)
	w.SetStatsFunc(func() any { return map[string]int{"completed": 3} })
	w.AddShape(overlay.NewShape(overlay.Rect{X: 1, Y: 2, W: 3, H: 4}, overlay.DefaultStyle().Stroke, 2))
	w.Flush()

	tests := []struct {
		path string
		want string
	}{
		{"/", "<canvas id=\"overlay\">"},
		{"/api/stats", `"completed":3`},
		{"/api/overlay", `"shapes":[{"id":`},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := w.app.Test(httptest.NewRequest("GET", tc.path, nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != 200 {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tc.want) {
				t.Errorf("body %s missing %s", body, tc.want)
			}
		})
	}

	resp, err := w.app.Test(httptest.NewRequest("GET", "/ws/overlay", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("plain GET on a websocket route = %d, want 426", resp.StatusCode)
	}
}

func dial(t *testing.T, w *Web, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+w.Addr()+path, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWeb_OverlaySocket(t *testing.T) {
	w := testWeb(t)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	conn := dial(t, w, "/ws/overlay")
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first overlay.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}

	layout := LayoutMessage{Type: "layout", Width: 320, Height: 240}
	if err := conn.WriteJSON(layout); err != nil {
		t.Fatalf("write layout: %v", err)
	}

	for {
		var raw map[string]json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			t.Fatalf("waiting for layout snapshot: %v", err)
		}
		var vp struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		}
		json.Unmarshal(raw["viewport"], &vp)
		if vp.Width == 320 && vp.Height == 240 {
			break
		}
	}
	if got := w.Viewport(); got.Width != 320 || got.Height != 240 {
		t.Errorf("Viewport() = %+v after layout", got)
	}
}

func TestWeb_CameraSocket(t *testing.T) {
	w := testWeb(t)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	conn := dial(t, w, "/ws/camera")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		var seq uint64
		for {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
			}
			seq++
			w.ShowFrame(frame.New(seq, 8, 4, frame.FormatBGR, make([]byte, 8*4*3)))
		}
	}()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if mt != websocket.BinaryMessage || len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Errorf("expected a binary JPEG, got type %d len %d", mt, len(data))
	}
}

func TestWeb_IgnoresBadLayout(t *testing.T) {
	w := testWeb(t)
	before := w.Viewport()

	for _, msg := range []string{`not json`, `{"type":"hello"}`, `{"type":"layout","width":-1,"height":10}`} {
		w.handleInbound(nil, []byte(msg))
	}
	if w.Viewport() != before {
		t.Error("invalid layout messages should be ignored")
	}
}

func TestWeb_InitialSnapshotOnlyToNewPage(t *testing.T) {
	w := testWeb(t)
	w.AddShape(overlay.NewShape(overlay.Rect{W: 5, H: 5}, overlay.DefaultStyle().Stroke, 2))
	w.Flush()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	first := dial(t, w, "/ws/overlay")
	first.SetReadDeadline(time.Now().Add(3 * time.Second))
	var snap struct {
		Version uint64            `json:"version"`
		Shapes  []json.RawMessage `json:"shapes"`
	}
	if err := first.ReadJSON(&snap); err != nil {
		t.Fatalf("first page initial snapshot: %v", err)
	}
	if snap.Version != 1 || len(snap.Shapes) != 1 {
		t.Errorf("initial snapshot = version %d, %d shapes", snap.Version, len(snap.Shapes))
	}

	// Not yet flushed, so no page may see it
	w.AddShape(overlay.NewShape(overlay.Rect{W: 9, H: 9}, overlay.DefaultStyle().Stroke, 2))

	second := dial(t, w, "/ws/overlay")
	second.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := second.ReadJSON(&snap); err != nil {
		t.Fatalf("second page initial snapshot: %v", err)
	}
	if snap.Version != 1 || len(snap.Shapes) != 1 {
		t.Errorf("second page snapshot = version %d, %d shapes", snap.Version, len(snap.Shapes))
	}

	first.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := first.ReadJSON(&snap); err == nil {
		t.Errorf("first page got an extra snapshot (version %d) when another page connected", snap.Version)
	}
}
