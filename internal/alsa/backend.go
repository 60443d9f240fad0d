package alsa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"ftumix/internal/control"
	"ftumix/internal/logging"
)

const (
	eventBufferSize = 64
	listenerBackoff = time.Second
)

// Option configures the backend.
type Option func(*Backend)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(b *Backend) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// Backend drives one card's mixer controls through the amixer binary and
// streams its change notifications. Control operations spawn short-lived
// amixer invocations; the event stream holds a long-running `amixer events`
// process that is restarted with a backoff if it dies.
type Backend struct {
	card   control.Card
	binary string
	exec   Executor
	logger *slog.Logger

	events chan control.Event
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Open binds a backend to card and starts the event listener. The listener
// lives until Close or until ctx is canceled, whichever comes first.
func Open(ctx context.Context, card control.Card, binary string, logger *slog.Logger, opts ...Option) (*Backend, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("amixer binary required")
	}

	b := &Backend{
		card:   card,
		binary: binary,
		exec:   commandExecutor{},
		logger: logging.NewComponentLogger(logger, "alsa"),
		events: make(chan control.Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(b)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go b.listen(listenCtx)

	return b, nil
}

// Card identifies the device the backend is bound to.
func (b *Backend) Card() control.Card {
	return b.card
}

// Controls enumerates the card's simple mixer controls. Route controls are
// classified straight from their names; anything else is probed once for
// its capabilities. Enumerated controls win over volume capability, the way
// the hardware's effect selectors behave.
func (b *Backend) Controls(ctx context.Context) ([]control.Control, error) {
	lines, err := b.capture(ctx, "scontrols")
	if err != nil {
		return nil, fmt.Errorf("amixer scontrols: %w", err)
	}

	names := parseControlNames(lines)
	controls := make([]control.Control, 0, len(names))
	for _, name := range names {
		if desc, ok := routeDesc(name); ok {
			controls = append(controls, &amixerControl{backend: b, desc: desc})
			continue
		}

		dump, err := b.capture(ctx, "sget", name)
		if err != nil {
			return nil, fmt.Errorf("amixer sget %q: %w", name, err)
		}
		caps := parseCapabilities(dump)
		desc := control.Desc{Name: name, Kind: control.KindEffect}
		if len(caps.items) > 0 {
			desc.EnumItems = caps.items
		} else {
			desc.HasVolume = caps.hasVolume
		}
		controls = append(controls, &amixerControl{backend: b, desc: desc})
	}
	return controls, nil
}

// Events yields one event per hardware-side control change.
func (b *Backend) Events() <-chan control.Event {
	return b.events
}

// Close stops the event listener. The event channel closes once the
// listener has exited. Close is safe to call more than once.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return nil
}

// capture runs one amixer invocation against the card and collects its
// output lines.
func (b *Backend) capture(ctx context.Context, args ...string) ([]string, error) {
	full := append([]string{"-c", strconv.Itoa(b.card.Index)}, args...)
	var mu sync.Mutex
	var lines []string
	err := b.exec.Run(ctx, b.binary, full, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	return lines, err
}

// listen owns the event channel: it feeds parsed change notifications into
// it and closes it when the listener shuts down.
func (b *Backend) listen(ctx context.Context) {
	defer b.wg.Done()
	defer close(b.events)

	args := []string{"-c", strconv.Itoa(b.card.Index), "events"}
	for {
		err := b.exec.Run(ctx, b.binary, args, b.handleEventLine)
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("amixer event listener exited, restarting",
			logging.Error(err),
			logging.String(logging.FieldCard, b.card.ID),
			logging.String(logging.FieldImpact, "hardware changes invisible until restart succeeds"))

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenerBackoff):
		}
	}
}

func (b *Backend) handleEventLine(line string) {
	name, ok := parseEventControl(line)
	if !ok {
		return
	}
	select {
	case b.events <- control.Event{Control: name}:
	default:
		b.logger.Debug("event buffer full, dropping change",
			logging.String(logging.FieldControl, name))
	}
}

// amixerControl is one simple mixer control addressed through the backend.
type amixerControl struct {
	backend *Backend
	desc    control.Desc
}

func (c *amixerControl) Desc() control.Desc {
	return c.desc
}

func (c *amixerControl) Volume(ctx context.Context) (int, error) {
	lines, err := c.backend.capture(ctx, "sget", c.desc.Name)
	if err != nil {
		return 0, fmt.Errorf("amixer sget: %w", err)
	}
	return parseVolume(lines)
}

func (c *amixerControl) SetVolume(ctx context.Context, value int) error {
	if _, err := c.backend.capture(ctx, "sset", c.desc.Name, strconv.Itoa(value)+"%"); err != nil {
		return fmt.Errorf("amixer sset: %w", err)
	}
	return nil
}

func (c *amixerControl) EnumValue(ctx context.Context) (string, error) {
	lines, err := c.backend.capture(ctx, "sget", c.desc.Name)
	if err != nil {
		return "", fmt.Errorf("amixer sget: %w", err)
	}
	caps := parseCapabilities(lines)
	if caps.current == "" {
		return "", fmt.Errorf("control %q reports no selection", c.desc.Name)
	}
	return caps.current, nil
}

func (c *amixerControl) SetEnumValue(ctx context.Context, item string) error {
	if _, err := c.backend.capture(ctx, "sset", c.desc.Name, item); err != nil {
		return fmt.Errorf("amixer sset: %w", err)
	}
	return nil
}
