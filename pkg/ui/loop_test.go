package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoop_FIFO(t *testing.T) {
	l := NewLoop(Config{QueueSize: 16})

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		if !l.Post(func() { order = append(order, i) }) {
			t.Fatalf("Post(%d) rejected before start", i)
		}
	}
	l.Post(l.Stop)

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want 0..9", order)
		}
	}
	if len(order) != 10 {
		t.Errorf("ran %d tasks, want 10", len(order))
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	l := NewLoop(DefaultConfig())
	l.Stop()
	l.Stop()

	if l.Post(func() {}) {
		t.Error("Post after Stop should return false")
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done should be closed")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	<-ran
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if l.Post(func() {}) {
		t.Error("Post after cancel should return false")
	}
}

func TestLoop_RunTwice(t *testing.T) {
	l := NewLoop(DefaultConfig())
	l.Stop()
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run = %v, want ErrAlreadyRunning", err)
	}
}

func TestLoop_Tick(t *testing.T) {
	var ticks atomic.Int32
	var l *Loop
	l = NewLoop(Config{
		TickInterval: time.Millisecond,
		OnTick: func() {
			if ticks.Add(1) == 3 {
				l.Stop()
			}
		},
	})

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop from OnTick")
	}
	if ticks.Load() < 3 {
		t.Errorf("ticks = %d, want >= 3", ticks.Load())
	}
}

func TestManual(t *testing.T) {
	var m Manual
	var got []string
	m.Post(func() {
		got = append(got, "a")
		m.Post(func() { got = append(got, "c") })
	})
	m.Post(func() { got = append(got, "b") })

	if m.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", m.Pending())
	}
	if n := m.RunPending(); n != 3 {
		t.Errorf("RunPending() = %d, want 3", n)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("order = %v", got)
	}
}

func TestSync(t *testing.T) {
	ran := false
	if !(Sync{}).Post(func() { ran = true }) || !ran {
		t.Error("Sync should run immediately")
	}
}
