package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ftumix/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test. The
// watcher poll timeout is shortened so lifecycle tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.SocketPath = filepath.Join(base, "ftumixd.sock")
	cfgVal.Daemon.LockPath = filepath.Join(base, "ftumixd.lock")
	cfgVal.Watcher.PollTimeoutMS = 50
	cfgVal.Watcher.JournalSize = 16

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithCardIndex pins the configured card index.
func WithCardIndex(index int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Card.Index = index
	}
}

// WithStartupPreset points the startup preset at the given path.
func WithStartupPreset(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Startup.Preset = path
	}
}

// WithPollTimeoutMS overrides the watcher poll timeout.
func WithPollTimeoutMS(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watcher.PollTimeoutMS = ms
	}
}

// WithStartup replaces the whole startup section.
func WithStartup(s config.Startup) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Startup = s
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, amixer is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"amixer"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.SocketPath)
}
