package mixer

import (
	"context"
	"testing"
	"time"

	"ftumix/internal/logging"
	"ftumix/internal/testsupport"
)

func newTestWatcher(t *testing.T, channels int) (*Watcher, *testsupport.Backend, *Hub) {
	t.Helper()
	backend := testsupport.NewBackend(channels)
	matrix := newTestMatrix(t, backend)
	hub := NewHub(16)
	w := NewWatcher(matrix, hub, backend.Events(), logging.NewNop(), 20*time.Millisecond)
	return w, backend, hub
}

func collectChanges(h *Hub) <-chan Change {
	ch := make(chan Change, 8)
	h.Subscribe(func(c Change) { ch <- c })
	return ch
}

func waitChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dispatch")
		return Change{}
	}
}

func TestWatcherBatchesQueuedEvents(t *testing.T) {
	w, backend, hub := newTestWatcher(t, 2)
	ch := collectChanges(hub)

	// Queued before Start so the first cycle sees the whole burst.
	backend.PushEvent("AIn1 - Out2")
	backend.PushEvent("DIn2 - Out1")
	backend.PushEvent("AIn1 - Out2") // duplicate, folded away

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	c := waitChange(t, ch)
	if c.Origin != OriginHardware {
		t.Fatalf("Origin = %q, want %q", c.Origin, OriginHardware)
	}
	if len(c.Routes.Analog) != 1 || len(c.Routes.Digital) != 1 {
		t.Fatalf("Routes = %+v, want one analog and one digital route", c.Routes)
	}
	if got := c.Routes.Analog[0]; got.Output != 1 || got.Input != 0 {
		t.Fatalf("analog route = %+v, want output 1 input 0", got)
	}
	if got := c.Routes.Digital[0]; got.Output != 0 || got.Input != 1 {
		t.Fatalf("digital route = %+v, want output 0 input 1", got)
	}

	w.Stop()
	if extra := len(ch); extra != 0 {
		t.Fatalf("%d extra dispatches for a single burst", extra)
	}
}

func TestWatcherIgnoresNonRouteControls(t *testing.T) {
	w, backend, hub := newTestWatcher(t, 2)
	ch := collectChanges(hub)

	backend.PushEvent("Effect Volume")
	backend.PushEvent("Bogus Control")
	backend.PushEvent("AIn1 - Out1")

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	c := waitChange(t, ch)
	if got := c.Routes.Len(); got != 1 {
		t.Fatalf("dispatched %d routes, want only the matrix route", got)
	}
	if got := c.Routes.Analog[0]; got.Output != 0 || got.Input != 0 {
		t.Fatalf("analog route = %+v, want output 0 input 0", got)
	}
}

func TestWatcherLifecycle(t *testing.T) {
	w, _, hub := newTestWatcher(t, 2)
	ch := collectChanges(hub)

	if w.Running() {
		t.Fatal("watcher reports running before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.Running() {
		t.Fatal("watcher not running after Start")
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}

	// Let a few quiet poll cycles pass; nothing must be dispatched.
	time.Sleep(60 * time.Millisecond)

	w.Stop()
	if w.Running() {
		t.Fatal("watcher reports running after Stop")
	}
	w.Stop() // no-op

	if len(ch) != 0 {
		t.Fatal("quiet cycles produced dispatches")
	}

	// A stopped watcher can be started again.
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	w.Stop()
}

func TestWatcherExitsWhenEventStreamCloses(t *testing.T) {
	w, backend, _ := newTestWatcher(t, 2)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the event stream closed")
	}
}
