package config

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("camera"); got != "FACEBOX_CAMERA" {
		t.Errorf("Key(camera) = %q", got)
	}
}

func TestString(t *testing.T) {
	t.Setenv("FACEBOX_MODEL", "  models/yunet.onnx ")
	if got := String("model", "x"); got != "models/yunet.onnx" {
		t.Errorf("String = %q", got)
	}
	if got := String("missing", "fallback"); got != "fallback" {
		t.Errorf("String default = %q", got)
	}
}

func TestNumericParsers(t *testing.T) {
	t.Setenv("FACEBOX_WIDTH", "1280")
	t.Setenv("FACEBOX_BAD", "abc")
	t.Setenv("FACEBOX_CONFIDENCE", "0.75")
	t.Setenv("FACEBOX_LOOP", "true")
	t.Setenv("FACEBOX_TICK", "40ms")

	if got := Int("width", 640); got != 1280 {
		t.Errorf("Int = %d", got)
	}
	if got := Int("bad", 7); got != 7 {
		t.Errorf("Int with bad value = %d, want default", got)
	}
	if got := Float("confidence", 0.5); got != 0.75 {
		t.Errorf("Float = %v", got)
	}
	if got := Float("bad", 0.5); got != 0.5 {
		t.Errorf("Float with bad value = %v", got)
	}
	if got := Bool("loop", false); !got {
		t.Error("Bool = false, want true")
	}
	if got := Bool("bad", true); !got {
		t.Error("Bool with bad value should return default")
	}
	if got := Duration("tick", time.Second); got != 40*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	if got := LogLevel("info"); got != "info" {
		t.Errorf("LogLevel default = %q", got)
	}
	t.Setenv("LOG_LEVEL", "debug")
	if got := LogLevel("info"); got != "debug" {
		t.Errorf("LogLevel = %q", got)
	}
}
