package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"log/slog"

	"ftumix/internal/config"
	"ftumix/internal/daemon"
	"ftumix/internal/deps"
	"ftumix/internal/ipc"
	"ftumix/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// Run starts the ftumixd runtime loop: logger, daemon, IPC server. It
// blocks until a SIGINT/SIGTERM arrives or a client requests shutdown over
// IPC, then tears everything down in reverse order.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(filepath.Dir(cfg.Daemon.LockPath), "ftumixd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Daemon.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	select {
	case <-signalCtx.Done():
		logger.Info("signal received, ftumixd shutting down")
	case <-d.ShutdownRequested():
		logger.Info("shutdown requested over IPC, ftumixd shutting down")
	}
	return nil
}

func buildLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		override := *cfg
		override.Logging.Level = level
		return logging.NewFromConfig(&override)
	}
	return logging.NewFromConfig(cfg)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logDependencySnapshot records what the environment looks like before the
// daemon starts gating on it. The card device check is skipped here when
// discovery has not pinned an index yet.
func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	for _, status := range deps.CheckRuntime(cfg.AmixerBinary(), cfg.Card.Index) {
		if status.Available {
			logger.Debug("dependency available",
				logging.String("dependency", status.Name),
				logging.String("command", status.Command))
			continue
		}
		logger.Warn("dependency unavailable",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install alsa-utils and check device permissions"),
			logging.String(logging.FieldImpact, "the daemon may fail to start or to reach the hardware"))
	}
}
