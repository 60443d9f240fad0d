package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ftumix/internal/config"
	"ftumix/internal/control"
	"ftumix/internal/daemon"
	"ftumix/internal/ipc"
	"ftumix/internal/logging"
	"ftumix/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.Backend
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithStartup(config.Startup{
			DisableEffects:        true,
			MuteMostDigitalRoutes: true,
			MuteAnalogRoutes:      true,
			PassThroughInputs:     true,
		}))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	backend := testsupport.NewBackend(4)
	backend.AddEffect("Effect Volume", 64)
	backend.AddEnumEffect("Effect Type", []string{"Room 1", "Hall"}, "Hall")

	d, err := daemon.New(cfg, logging.NewNop(),
		daemon.WithCardLookup(func(*config.Config) (control.Card, error) {
			return backend.Card(), nil
		}),
		daemon.WithBackendOpener(func(context.Context, control.Card, string, *slog.Logger) (control.Backend, error) {
			return backend, nil
		}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logging.NewNop())
	if err != nil {
		cancel()
		d.Stop()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Daemon.SocketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	time.Sleep(50 * time.Millisecond)
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[daemon]\nsocket_path = %q\nlock_path = %q\n\n[watcher]\npoll_timeout_ms = %d\njournal_size = %d\n",
		cfg.Daemon.SocketPath,
		cfg.Daemon.LockPath,
		cfg.Watcher.PollTimeoutMS,
		cfg.Watcher.JournalSize,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestCLIStatusAndDeps(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Running (pid") {
		t.Fatalf("expected running daemon in status output: %q", out)
	}
	if !strings.Contains(out, "F8R") {
		t.Fatalf("expected card id in status output: %q", out)
	}
	if !strings.Contains(out, "4x4 routing matrix per domain") {
		t.Fatalf("expected channel summary in status output: %q", out)
	}
	if !strings.Contains(out, "Dependencies") {
		t.Fatalf("expected dependency section in status output: %q", out)
	}

	out, _, err = runCLI(t, []string{"deps"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	if !strings.Contains(out, "amixer") || !strings.Contains(out, "Card registry") {
		t.Fatalf("expected dependency names in deps output: %q", out)
	}

	missingSocket := filepath.Join(t.TempDir(), "missing.sock")
	out, _, err = runCLI(t, []string{"status"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("status against stopped daemon: %v", err)
	}
	if !strings.Contains(out, "Not running") {
		t.Fatalf("expected not-running status output: %q", out)
	}
}

func TestCLIVolumeRoutesAndLinks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"volume", "set", "analog", "2", "3", "42"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume set: %v", err)
	}
	if !strings.Contains(out, "analog in2>out3 = 42") {
		t.Fatalf("unexpected volume set output: %q", out)
	}
	if got := env.backend.Control("AIn2 - Out3").CurrentVolume(); got != 42 {
		t.Fatalf("expected hardware volume 42, got %d", got)
	}

	out, _, err = runCLI(t, []string{"volume", "get", "analog", "2", "3"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get: %v", err)
	}
	if strings.TrimSpace(out) != "42" {
		t.Fatalf("unexpected volume get output: %q", out)
	}

	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "0", "3", "10"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for channel 0")
	} else if !strings.Contains(err.Error(), "numbered from 1") {
		t.Fatalf("unexpected channel error: %v", err)
	}
	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "1", "1", "200"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for volume 200")
	} else if !strings.Contains(err.Error(), "between 0 and 100") {
		t.Fatalf("unexpected volume error: %v", err)
	}
	if _, _, err := runCLI(t, []string{"volume", "get", "optical", "1", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for unknown domain")
	}
	if _, _, err := runCLI(t, []string{"volume", "get", "analog", "9", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for out-of-range channel")
	}

	out, _, err = runCLI(t, []string{"routes", "analog"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("routes analog: %v", err)
	}
	if !strings.Contains(out, "Analog") || strings.Contains(out, "Digital") {
		t.Fatalf("expected only the analog matrix: %q", out)
	}
	if !strings.Contains(out, "In2") || !strings.Contains(out, "42") {
		t.Fatalf("expected matrix cell in routes output: %q", out)
	}

	out, _, err = runCLI(t, []string{"routes"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	if !strings.Contains(out, "Analog") || !strings.Contains(out, "Digital") {
		t.Fatalf("expected both matrices in routes output: %q", out)
	}

	out, _, err = runCLI(t, []string{"link", "set", "1", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("link set: %v", err)
	}
	if !strings.Contains(out, "out1 linked to out2") {
		t.Fatalf("unexpected link set output: %q", out)
	}

	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "3", "1", "41"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("volume set on linked output: %v", err)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "analog", "3", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get mirrored route: %v", err)
	}
	if strings.TrimSpace(out) != "41" {
		t.Fatalf("expected mirrored volume 41, got %q", out)
	}

	out, _, err = runCLI(t, []string{"link", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("link list: %v", err)
	}
	if !strings.Contains(out, "Out1") || !strings.Contains(out, "Out2") {
		t.Fatalf("expected link pair in list output: %q", out)
	}

	out, _, err = runCLI(t, []string{"link", "clear", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("link clear: %v", err)
	}
	if !strings.Contains(out, "out1 unlinked") {
		t.Fatalf("unexpected link clear output: %q", out)
	}

	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "3", "1", "22"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("volume set after unlink: %v", err)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "analog", "3", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get after unlink: %v", err)
	}
	if strings.TrimSpace(out) != "41" {
		t.Fatalf("expected unlinked route to keep 41, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"link", "set", "1", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error linking an output to itself")
	}
}

func TestCLIEffectsMasterAndMutes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"effects"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("effects: %v", err)
	}
	if !strings.Contains(out, "effect_volume") || !strings.Contains(out, "effect_type") {
		t.Fatalf("expected effect keys in output: %q", out)
	}
	if !strings.Contains(out, "Hall") {
		t.Fatalf("expected enum item in output: %q", out)
	}

	env.backend.Control("Effect Volume").SetDirect(40)
	out, _, err = runCLI(t, []string{"effects", "disable"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("effects disable: %v", err)
	}
	if !strings.Contains(out, "Effects disabled") {
		t.Fatalf("unexpected effects disable output: %q", out)
	}
	if got := env.backend.Control("Effect Volume").CurrentVolume(); got != 0 {
		t.Fatalf("expected effect volume zeroed, got %d", got)
	}

	out, _, err = runCLI(t, []string{"master", "set", "70"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("master set: %v", err)
	}
	if !strings.Contains(out, "master = 70") {
		t.Fatalf("unexpected master set output: %q", out)
	}
	for _, args := range [][]string{{"master"}, {"master", "get"}} {
		out, _, err = runCLI(t, args, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if strings.TrimSpace(out) != "70" {
			t.Fatalf("unexpected %v output: %q", args, out)
		}
	}

	if _, _, err := runCLI(t, []string{"passthrough"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("passthrough: %v", err)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "analog", "1", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get diagonal: %v", err)
	}
	if strings.TrimSpace(out) != "100" {
		t.Fatalf("expected passthrough diagonal at 100, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"analog", "mute"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("analog mute: %v", err)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "analog", "1", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get after mute: %v", err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("expected muted diagonal at 0, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"volume", "set", "digital", "1", "2", "33"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("volume set digital: %v", err)
	}
	if _, _, err := runCLI(t, []string{"digital", "mute"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("digital mute: %v", err)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "digital", "1", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get digital off-diagonal: %v", err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("expected muted off-diagonal at 0, got %q", out)
	}
	out, _, err = runCLI(t, []string{"volume", "get", "digital", "2", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get digital diagonal: %v", err)
	}
	if strings.TrimSpace(out) != "70" {
		t.Fatalf("expected diagonal spared at 70, got %q", out)
	}
}

func TestCLIPresetRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)

	presetPath := filepath.Join(testsupport.BaseDir(env.cfg), "presets", "live.ini")
	out, _, err := runCLI(t, []string{"preset", "save", presetPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("preset save: %v", err)
	}
	if !strings.Contains(out, "Preset saved to") || !strings.Contains(out, presetPath) {
		t.Fatalf("unexpected preset save output: %q", out)
	}
	if _, err := os.Stat(presetPath); err != nil {
		t.Fatalf("preset file missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "1", "1", "55"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("volume set: %v", err)
	}

	out, _, err = runCLI(t, []string{"preset", "load", presetPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("preset load: %v", err)
	}
	if !strings.Contains(out, "Preset loaded from") {
		t.Fatalf("unexpected preset load output: %q", out)
	}

	out, _, err = runCLI(t, []string{"volume", "get", "analog", "1", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume get after load: %v", err)
	}
	if strings.TrimSpace(out) != "100" {
		t.Fatalf("expected preset to restore 100, got %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+target) {
		t.Fatalf("unexpected config init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err = runCLI(t, []string{"config", "show"}, "", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, configPath) {
		t.Fatalf("expected config path in show output: %q", out)
	}
	if !strings.Contains(out, "50 ms") {
		t.Fatalf("expected poll timeout in show output: %q", out)
	}
	if !strings.Contains(out, cfg.Daemon.SocketPath) {
		t.Fatalf("expected socket path in show output: %q", out)
	}
}

func TestCLILogs(t *testing.T) {
	base := t.TempDir()
	logPath := filepath.Join(base, "ftumixd.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[logging]\nfile = %q\n", logPath)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, "", configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "second") || !strings.Contains(out, "third") {
		t.Fatalf("expected trailing lines in logs output: %q", out)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "logs", "--follow", "-n", "1"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("followed\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	time.Sleep(1300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("logs --follow execute: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("logs --follow did not exit")
	}

	if !strings.Contains(stdout.String(), "followed") {
		t.Fatalf("expected follow output to include appended line, got %q", stdout.String())
	}
}

func TestCLIWatchStreamsChanges(t *testing.T) {
	env := setupCLITestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--socket", env.socketPath, "--config", env.configPath, "watch", "--interval", "50ms"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	time.Sleep(150 * time.Millisecond)
	if _, _, err := runCLI(t, []string{"volume", "set", "analog", "2", "3", "77"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("volume set during watch: %v", err)
	}
	time.Sleep(250 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch execute: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not exit")
	}

	out := stdout.String()
	if !strings.Contains(out, "Watching for routing changes") {
		t.Fatalf("expected watch banner, got %q", out)
	}
	if !strings.Contains(out, "analog in2>out3") {
		t.Fatalf("expected change event in watch output, got %q", out)
	}
	if !strings.Contains(out, "command") {
		t.Fatalf("expected command origin in watch output, got %q", out)
	}
}
