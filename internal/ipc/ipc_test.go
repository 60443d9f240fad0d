package ipc_test

import (
	"context"
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

func stubOptions(backend *testsupport.Backend) []daemon.Option {
	return []daemon.Option{
		daemon.WithCardLookup(func(*config.Config) (control.Card, error) {
			return backend.Card(), nil
		}),
		daemon.WithBackendOpener(func(context.Context, control.Card, string, *slog.Logger) (control.Backend, error) {
			return backend, nil
		}),
	}
}

func dialTestServer(t *testing.T, ctx context.Context, cfg *config.Config, d *daemon.Daemon) *ipc.Client {
	t.Helper()

	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Daemon.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithStartup(config.Startup{
			DisableEffects:        true,
			MuteMostDigitalRoutes: true,
			MuteAnalogRoutes:      true,
			PassThroughInputs:     true,
		}))
	backend := testsupport.NewBackend(4)
	backend.AddEffect("Effect Volume", 64)
	backend.AddEnumEffect("Effect Type", []string{"Room 1", "Hall"}, "Hall")

	d, err := daemon.New(cfg, logging.NewNop(), stubOptions(backend)...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	client := dialTestServer(t, ctx, cfg, d)

	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if ping.PID != os.Getpid() {
		t.Fatalf("expected own pid %d, got %d", os.Getpid(), ping.PID)
	}
	if ping.Card.ID != "F8R" {
		t.Fatalf("unexpected card in ping: %#v", ping.Card)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running || status.Channels != 4 {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.Card.Index != 9 || status.Card.Name != "Fast Track Ultra 8R" {
		t.Fatalf("unexpected card in status: %#v", status.Card)
	}
	if !status.Watcher {
		t.Fatal("expected watcher to be running")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}

	if _, err := client.SetVolume("analog", 2, 3, 42); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	vol, err := client.Volume("analog", 2, 3)
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if vol.Volume != 42 {
		t.Fatalf("expected volume 42, got %d", vol.Volume)
	}
	if got := backend.Control("AIn2 - Out3").CurrentVolume(); got != 42 {
		t.Fatalf("wire channels landed on wrong control: got %d", got)
	}

	if _, err := client.SetVolume("optical", 1, 1, 10); err == nil {
		t.Fatal("expected error for unknown domain")
	}
	if _, err := client.SetVolume("analog", 0, 1, 10); err == nil {
		t.Fatal("expected error for out-of-range input")
	}

	routes, err := client.Routes("analog")
	if err != nil {
		t.Fatalf("Routes failed: %v", err)
	}
	if routes.Channels != 4 || len(routes.Routes) != 16 {
		t.Fatalf("unexpected analog routes shape: channels=%d len=%d", routes.Channels, len(routes.Routes))
	}
	seen := make(map[[2]int]int, len(routes.Routes))
	for _, route := range routes.Routes {
		if route.Domain != "analog" {
			t.Fatalf("unexpected domain in filtered routes: %s", route.Domain)
		}
		seen[[2]int{route.Input, route.Output}] = route.Volume
	}
	if seen[[2]int{2, 3}] != 42 {
		t.Fatalf("expected route 2>3 at 42, got %d", seen[[2]int{2, 3}])
	}
	if seen[[2]int{1, 1}] != 100 {
		t.Fatalf("expected passthrough diagonal at 100, got %d", seen[[2]int{1, 1}])
	}

	both, err := client.Routes("")
	if err != nil {
		t.Fatalf("Routes all failed: %v", err)
	}
	if len(both.Routes) != 32 {
		t.Fatalf("expected 32 routes over both domains, got %d", len(both.Routes))
	}

	effects, err := client.Effects()
	if err != nil {
		t.Fatalf("Effects failed: %v", err)
	}
	if len(effects.Effects) != 2 {
		t.Fatalf("expected 2 effects, got %#v", effects.Effects)
	}
	if effects.Effects[0].Key != "effect_type" || effects.Effects[1].Key != "effect_volume" {
		t.Fatalf("expected key-sorted effects, got %#v", effects.Effects)
	}
	if effects.Effects[0].Item != "Hall" || len(effects.Effects[0].EnumItems) != 2 {
		t.Fatalf("unexpected enum effect state: %#v", effects.Effects[0])
	}
	if !effects.Effects[1].HasVolume || effects.Effects[1].Volume != 0 {
		t.Fatalf("expected startup to zero effect volume, got %#v", effects.Effects[1])
	}

	links, err := client.Links()
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}
	if len(links.Links) != 4 {
		t.Fatalf("expected 4 link pairs, got %d", len(links.Links))
	}
	for _, pair := range links.Links {
		if pair.Target != 0 {
			t.Fatalf("expected all outputs unlinked, got %#v", pair)
		}
	}

	if _, err := client.SetLink(1, 2); err != nil {
		t.Fatalf("SetLink failed: %v", err)
	}
	if _, err := client.SetLink(1, 1); err == nil {
		t.Fatal("expected error for self link")
	}
	links, err = client.Links()
	if err != nil {
		t.Fatalf("Links after set failed: %v", err)
	}
	if links.Links[0].Output != 1 || links.Links[0].Target != 2 {
		t.Fatalf("expected output 1 linked to 2, got %#v", links.Links[0])
	}

	if _, err := client.SetVolume("analog", 1, 1, 55); err != nil {
		t.Fatalf("SetVolume on linked output failed: %v", err)
	}
	mirrored, err := client.Volume("analog", 1, 2)
	if err != nil {
		t.Fatalf("Volume on link target failed: %v", err)
	}
	if mirrored.Volume != 55 {
		t.Fatalf("expected link cascade to mirror 55, got %d", mirrored.Volume)
	}

	if _, err := client.ClearLink(1); err != nil {
		t.Fatalf("ClearLink failed: %v", err)
	}
	links, err = client.Links()
	if err != nil {
		t.Fatalf("Links after clear failed: %v", err)
	}
	if links.Links[0].Target != 0 {
		t.Fatalf("expected output 1 unlinked, got %#v", links.Links[0])
	}

	if _, err := client.MuteAnalog(); err != nil {
		t.Fatalf("MuteAnalog failed: %v", err)
	}
	muted, err := client.Volume("analog", 1, 1)
	if err != nil {
		t.Fatalf("Volume after mute failed: %v", err)
	}
	if muted.Volume != 0 {
		t.Fatalf("expected analog diagonal muted, got %d", muted.Volume)
	}
	if _, err := client.PassThrough(); err != nil {
		t.Fatalf("PassThrough failed: %v", err)
	}
	restored, err := client.Volume("analog", 3, 3)
	if err != nil {
		t.Fatalf("Volume after passthrough failed: %v", err)
	}
	if restored.Volume != 100 {
		t.Fatalf("expected passthrough diagonal at 100, got %d", restored.Volume)
	}

	if _, err := client.SetMaster(70); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	master, err := client.Master()
	if err != nil {
		t.Fatalf("Master failed: %v", err)
	}
	if master.Volume != 70 {
		t.Fatalf("expected master 70, got %d", master.Volume)
	}

	if _, err := client.SetVolume("digital", 1, 2, 33); err != nil {
		t.Fatalf("SetVolume digital failed: %v", err)
	}
	if _, err := client.MuteMostDigital(); err != nil {
		t.Fatalf("MuteMostDigital failed: %v", err)
	}
	offDiagonal, err := client.Volume("digital", 1, 2)
	if err != nil {
		t.Fatalf("Volume digital failed: %v", err)
	}
	if offDiagonal.Volume != 0 {
		t.Fatalf("expected off-diagonal digital route muted, got %d", offDiagonal.Volume)
	}
	diagonal, err := client.Volume("digital", 2, 2)
	if err != nil {
		t.Fatalf("Volume digital diagonal failed: %v", err)
	}
	if diagonal.Volume != 70 {
		t.Fatalf("expected digital diagonal spared at 70, got %d", diagonal.Volume)
	}

	backend.Control("Effect Volume").SetDirect(40)
	if _, err := client.DisableEffects(); err != nil {
		t.Fatalf("DisableEffects failed: %v", err)
	}
	effects, err = client.Effects()
	if err != nil {
		t.Fatalf("Effects after disable failed: %v", err)
	}
	if effects.Effects[1].Volume != 0 {
		t.Fatalf("expected effect volume zeroed, got %#v", effects.Effects[1])
	}

	presetPath := filepath.Join(t.TempDir(), "presets", "live.ini")
	saved, err := client.SavePreset(presetPath)
	if err != nil {
		t.Fatalf("SavePreset failed: %v", err)
	}
	if saved.Path != presetPath {
		t.Fatalf("expected resolved path %s, got %s", presetPath, saved.Path)
	}
	if _, err := os.Stat(presetPath); err != nil {
		t.Fatalf("expected preset file on disk: %v", err)
	}

	if _, err := client.SetVolume("analog", 1, 1, 5); err != nil {
		t.Fatalf("SetVolume before load failed: %v", err)
	}
	if _, err := client.LoadPreset(presetPath); err != nil {
		t.Fatalf("LoadPreset failed: %v", err)
	}
	reloaded, err := client.Volume("analog", 1, 1)
	if err != nil {
		t.Fatalf("Volume after load failed: %v", err)
	}
	if reloaded.Volume != 100 {
		t.Fatalf("expected preset to restore 100, got %d", reloaded.Volume)
	}

	events, err := client.Events(0)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if events.LastSeq == 0 || len(events.Events) == 0 {
		t.Fatalf("expected journaled events, got %#v", events)
	}
	last := events.Events[len(events.Events)-1]
	if last.Origin != "command" {
		t.Fatalf("expected command origin, got %q", last.Origin)
	}
	if len(last.Routes) == 0 {
		t.Fatal("expected routes in last event")
	}
	for _, route := range last.Routes {
		if route.Domain != "analog" && route.Domain != "digital" {
			t.Fatalf("unexpected event domain: %q", route.Domain)
		}
		if route.Input < 1 || route.Input > 4 || route.Output < 1 || route.Output > 4 {
			t.Fatalf("expected 1-based event channels, got %#v", route)
		}
	}

	tail, err := client.Events(events.LastSeq)
	if err != nil {
		t.Fatalf("Events tail failed: %v", err)
	}
	if len(tail.Events) != 0 || tail.LastSeq != events.LastSeq {
		t.Fatalf("expected empty tail at %d, got %#v", events.LastSeq, tail)
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stop.Stopping {
		t.Fatal("expected stop acknowledgement")
	}
	select {
	case <-d.ShutdownRequested():
	case <-time.After(2 * time.Second):
		t.Fatal("expected shutdown request after Stop RPC")
	}
}

func TestIPCMixerNotReady(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	backend := testsupport.NewBackend(2)

	d, err := daemon.New(cfg, logging.NewNop(), stubOptions(backend)...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	client := dialTestServer(t, ctx, cfg, d)

	if _, err := client.Ping(); err != nil {
		t.Fatalf("Ping should work before start: %v", err)
	}
	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status should work before start: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped status")
	}

	if _, err := client.Volume("analog", 1, 1); err == nil || !strings.Contains(err.Error(), "mixer not ready") {
		t.Fatalf("expected mixer not ready error, got %v", err)
	}
	if _, err := client.MuteAnalog(); err == nil || !strings.Contains(err.Error(), "mixer not ready") {
		t.Fatalf("expected mixer not ready error, got %v", err)
	}
	if _, err := client.SavePreset(filepath.Join(t.TempDir(), "x.ini")); err == nil || !strings.Contains(err.Error(), "mixer not ready") {
		t.Fatalf("expected mixer not ready error, got %v", err)
	}
}
