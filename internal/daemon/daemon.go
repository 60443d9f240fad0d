package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ftumix/internal/alsa"
	"ftumix/internal/config"
	"ftumix/internal/control"
	"ftumix/internal/deps"
	"ftumix/internal/logging"
	"ftumix/internal/mixer"
	"ftumix/internal/preset"
)

// BackendOpener constructs the control backend for a resolved card.
type BackendOpener func(ctx context.Context, card control.Card, binary string, logger *slog.Logger) (control.Backend, error)

// CardLookup resolves which sound card the daemon manages.
type CardLookup func(cfg *config.Config) (control.Card, error)

// Option adjusts daemon construction.
type Option func(*Daemon)

// WithBackendOpener overrides how the control backend is opened.
func WithBackendOpener(open BackendOpener) Option {
	return func(d *Daemon) {
		if open != nil {
			d.openBackend = open
		}
	}
}

// WithCardLookup overrides card discovery.
func WithCardLookup(lookup CardLookup) Option {
	return func(d *Daemon) {
		if lookup != nil {
			d.lookupCard = lookup
		}
	}
}

// Daemon owns the mixer runtime and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger

	openBackend BackendOpener
	lookupCard  CardLookup

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	backend   control.Backend
	mixer     *mixer.Mixer
	watcher   *mixer.Watcher
	hotplug   *hotplugMonitor

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Card         control.Card
	Channels     int
	LockPath     string
	SocketPath   string
	PID          int
	StartedAt    time.Time
	Watcher      bool
	Hotplug      bool
	LastSeq      uint64
	Dependencies []deps.Status
}

// New constructs a daemon bound to the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	d := &Daemon{
		cfg:         cfg,
		base:        logger,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		openBackend: openALSABackend,
		lookupCard:  lookupConfiguredCard,
		lockPath:    cfg.Daemon.LockPath,
		lock:        flock.New(cfg.Daemon.LockPath),
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the instance lock, binds the card, and brings the mixer
// runtime up. Failures after the lock release it again.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ftumixd instance is already running")
	}

	if err := d.bringUp(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running = true
	d.startedAt = time.Now()
	d.logger.Info("ftumixd started",
		logging.String(logging.FieldCard, d.mixer.Card().ID),
		logging.Int("channels", d.mixer.Channels()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

func (d *Daemon) bringUp(ctx context.Context) error {
	if status := deps.CheckAmixer(d.cfg.AmixerBinary()); !status.Available {
		return fmt.Errorf("amixer unavailable: %s", status.Detail)
	}

	card, err := d.lookupCard(d.cfg)
	if err != nil {
		if errors.Is(err, alsa.ErrCardNotFound) {
			d.logger.Error("no matching sound card",
				logging.Error(err),
				logging.String("match", strings.Join(d.cfg.Card.Match, ", ")),
				logging.String(logging.FieldErrorHint, "connect the interface or adjust [card] in the config"),
			)
		}
		return err
	}

	if status := deps.CheckControlDevice(card.Index); !status.Available {
		d.logger.Warn("control device not accessible",
			logging.String("path", status.Command),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "add the user to the audio group"),
			logging.String(logging.FieldImpact, "mixer commands will fail"),
		)
	}

	backend, err := d.openBackend(ctx, card, d.cfg.AmixerBinary(), d.base)
	if err != nil {
		return fmt.Errorf("open control backend: %w", err)
	}

	matrix, err := mixer.NewMatrix(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("discover mixer controls: %w", err)
	}

	hub := mixer.NewHub(d.cfg.Watcher.JournalSize)
	mix := mixer.New(matrix, hub, d.base)
	watcher := mixer.NewWatcher(matrix, hub, backend.Events(), d.base, d.pollTimeout())

	if err := d.applyStartup(ctx, mix); err != nil {
		_ = backend.Close()
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		_ = backend.Close()
		return fmt.Errorf("start watcher: %w", err)
	}

	hotplug := newHotplugMonitor(card, d.base)
	_ = hotplug.Start(ctx)

	d.backend = backend
	d.mixer = mix
	d.watcher = watcher
	d.hotplug = hotplug
	return nil
}

// applyStartup runs the configured mutations in a fixed order: effects off,
// digital mute, analog mute, passthrough, then the startup preset.
func (d *Daemon) applyStartup(ctx context.Context, mix *mixer.Mixer) error {
	startup := d.cfg.Startup
	if startup.DisableEffects {
		if err := mix.DisableEffects(ctx); err != nil {
			return fmt.Errorf("disable effects: %w", err)
		}
	}
	if startup.MuteMostDigitalRoutes {
		if err := mix.MuteMostDigitalRoutes(ctx); err != nil {
			return fmt.Errorf("mute digital routes: %w", err)
		}
	}
	if startup.MuteAnalogRoutes {
		if err := mix.MuteAnalogRoutes(ctx); err != nil {
			return fmt.Errorf("mute analog routes: %w", err)
		}
	}
	if startup.PassThroughInputs {
		if err := mix.PassThroughInputs(ctx); err != nil {
			return fmt.Errorf("pass through inputs: %w", err)
		}
	}

	path := strings.TrimSpace(startup.Preset)
	if path == "" {
		return nil
	}
	state, err := preset.Load(path)
	if err != nil {
		return fmt.Errorf("load startup preset: %w", err)
	}
	if err := mix.Apply(ctx, state); err != nil {
		return fmt.Errorf("apply startup preset: %w", err)
	}
	d.logger.Info("startup preset applied", logging.String(logging.FieldPreset, path))
	return nil
}

// Stop tears the runtime down in reverse order: watcher, hotplug monitor,
// backend subprocess, instance lock. Safe to call more than once.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.hotplug != nil {
		d.hotplug.Stop()
	}
	if d.backend != nil {
		if err := d.backend.Close(); err != nil {
			d.logger.Warn("close control backend", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}

	d.watcher = nil
	d.hotplug = nil
	d.backend = nil
	d.mixer = nil
	d.running = false
	d.logger.Info("ftumixd stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Mixer returns the live mixer facade, or nil before Start / after Stop.
func (d *Daemon) Mixer() *mixer.Mixer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixer
}

// RequestShutdown asks the daemon process to exit. The run loop waits on
// ShutdownRequested alongside the signal context.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
	})
}

// ShutdownRequested is closed once an IPC stop request arrives.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdown
}

// SavePreset snapshots the current device state into a preset file and
// returns the resolved path.
func (d *Daemon) SavePreset(ctx context.Context, path string) (string, error) {
	mix := d.Mixer()
	if mix == nil {
		return "", errors.New("mixer not ready")
	}
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	state, err := mix.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if err := preset.Save(resolved, state); err != nil {
		return "", err
	}
	d.logger.Info("preset saved", logging.String(logging.FieldPreset, resolved))
	return resolved, nil
}

// LoadPreset reads a preset file and applies it to the device.
func (d *Daemon) LoadPreset(ctx context.Context, path string) (string, error) {
	mix := d.Mixer()
	if mix == nil {
		return "", errors.New("mixer not ready")
	}
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	state, err := preset.Load(resolved)
	if err != nil {
		return "", err
	}
	if err := mix.Apply(ctx, state); err != nil {
		return resolved, err
	}
	d.logger.Info("preset loaded", logging.String(logging.FieldPreset, resolved))
	return resolved, nil
}

// Status returns the current daemon status including live dependency checks.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		Running:    d.running,
		LockPath:   d.lockPath,
		SocketPath: d.cfg.Daemon.SocketPath,
		PID:        os.Getpid(),
		StartedAt:  d.startedAt,
	}
	cardIndex := -1
	if d.mixer != nil {
		status.Card = d.mixer.Card()
		status.Channels = d.mixer.Channels()
		_, status.LastSeq = d.mixer.ChangesSince(0)
		cardIndex = status.Card.Index
	}
	if d.watcher != nil {
		status.Watcher = d.watcher.Running()
	}
	if d.hotplug != nil {
		status.Hotplug = d.hotplug.Running()
	}
	status.Dependencies = deps.CheckRuntime(d.cfg.AmixerBinary(), cardIndex)
	return status
}

func (d *Daemon) pollTimeout() time.Duration {
	return time.Duration(d.cfg.Watcher.PollTimeoutMS) * time.Millisecond
}

func openALSABackend(ctx context.Context, card control.Card, binary string, logger *slog.Logger) (control.Backend, error) {
	return alsa.Open(ctx, card, binary, logger)
}

func lookupConfiguredCard(cfg *config.Config) (control.Card, error) {
	if cfg.Card.Index >= 0 {
		return alsa.CardByIndex(cfg.Card.Index)
	}
	return alsa.FindCard(cfg.Card.Match)
}
