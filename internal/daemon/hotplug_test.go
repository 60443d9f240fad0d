package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"ftumix/internal/control"
	"ftumix/internal/logging"
)

func TestHotplugMonitorLifecycle(t *testing.T) {
	t.Run("nil monitor is safe", func(t *testing.T) {
		var m *hotplugMonitor
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start on nil monitor: %v", err)
		}
		m.Stop()
		if m.Running() {
			t.Fatal("expected nil monitor to report not running")
		}
	})

	t.Run("unstarted monitor", func(t *testing.T) {
		m := newHotplugMonitor(control.Card{Index: 3, ID: "F8R"}, logging.NewNop())
		if m.Running() {
			t.Fatal("expected not running before start")
		}
		m.Stop()
		m.Stop()
	})
}

func TestCardIndexFromEvent(t *testing.T) {
	cases := []struct {
		name   string
		uevent netlink.UEvent
		want   int
		ok     bool
	}{
		{
			name: "control node devname",
			uevent: netlink.UEvent{
				Env: map[string]string{"DEVNAME": "/dev/snd/controlC2"},
			},
			want: 2,
			ok:   true,
		},
		{
			name: "card object devpath",
			uevent: netlink.UEvent{
				KObj: "ignored",
				Env:  map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-1/sound/card1"},
			},
			want: 1,
			ok:   true,
		},
		{
			name: "kobj fallback",
			uevent: netlink.UEvent{
				KObj: "/devices/platform/sound/card0",
				Env:  map[string]string{},
			},
			want: 0,
			ok:   true,
		},
		{
			name: "pcm node carries no card suffix",
			uevent: netlink.UEvent{
				Env: map[string]string{
					"DEVNAME": "/dev/snd/pcmC1D0p",
					"DEVPATH": "/devices/pci0000:00/sound/card1/pcmC1D0p",
				},
			},
			ok: false,
		},
		{
			name: "unrelated kobj",
			uevent: netlink.UEvent{
				KObj: "/devices/foo/bar",
				Env:  map[string]string{},
			},
			ok: false,
		},
		{
			name:   "empty event",
			uevent: netlink.UEvent{Env: map[string]string{}},
			ok:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := cardIndexFromEvent(tc.uevent)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("index = %d, want %d", got, tc.want)
			}
		})
	}
}
