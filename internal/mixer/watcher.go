package mixer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ftumix/internal/control"
	"ftumix/internal/logging"
)

const defaultPollTimeout = 700 * time.Millisecond

// Watcher folds hardware-side control changes into the hub. Each poll cycle
// waits up to the poll timeout for a backend event, drains whatever else is
// already queued, and publishes the deduplicated batch once.
type Watcher struct {
	matrix  *Matrix
	hub     *Hub
	events  <-chan control.Event
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher wires a watcher to a matrix and the backend's event stream.
// A non-positive poll timeout falls back to the default cycle length.
func NewWatcher(matrix *Matrix, hub *Hub, events <-chan control.Event, logger *slog.Logger, pollTimeout time.Duration) *Watcher {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Watcher{
		matrix:  matrix,
		hub:     hub,
		events:  events,
		timeout: pollTimeout,
		logger:  logging.NewComponentLogger(logger, "watcher"),
	}
}

// Start launches the poll loop. It fails if the watcher is already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.loop(runCtx)

	w.logger.Info("hardware watcher started", logging.Duration("poll_timeout", w.timeout))
	return nil
}

// Stop cancels the loop and waits for it to exit. Calling Stop on a stopped
// watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("hardware watcher stopped")
}

// Running reports whether the poll loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		timer := time.NewTimer(w.timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			// Quiet cycle, poll again.
		case ev, ok := <-w.events:
			timer.Stop()
			if !ok {
				w.logger.Info("backend event stream closed, watcher exiting")
				return
			}
			batch := w.collect(ev)
			if batch.Empty() {
				continue
			}
			change := w.hub.Publish(OriginHardware, batch)
			w.logger.Debug("hardware changes dispatched",
				logging.Uint64("seq", change.Seq),
				logging.Int("routes", batch.Len()))
		}
	}
}

// collect drains every event already queued behind the first one so a burst
// of hardware writes lands in a single dispatch. Duplicate control names and
// controls that are not routes are dropped.
func (w *Watcher) collect(first control.Event) control.ChangeSet {
	var batch control.ChangeSet
	seen := make(map[string]struct{})
	w.record(&batch, seen, first)

	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return batch
			}
			w.record(&batch, seen, ev)
		default:
			return batch
		}
	}
}

func (w *Watcher) record(batch *control.ChangeSet, seen map[string]struct{}, ev control.Event) {
	if _, dup := seen[ev.Control]; dup {
		return
	}
	seen[ev.Control] = struct{}{}

	domain, route, ok := w.matrix.RouteForControl(ev.Control)
	if !ok {
		w.logger.Debug("ignoring change on non-route control", logging.String(logging.FieldControl, ev.Control))
		return
	}
	batch.Add(domain, route)
}
