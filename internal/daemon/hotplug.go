package daemon

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"ftumix/internal/control"
	"ftumix/internal/logging"
)

// hotplugMonitor listens for udev netlink events on the sound subsystem and
// reports when the managed card detaches or reattaches. The daemon does not
// rebind controls on its own; the monitor exists so operators see why mixer
// commands started failing.
type hotplugMonitor struct {
	card   control.Card
	logger *slog.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newHotplugMonitor(card control.Card, logger *slog.Logger) *hotplugMonitor {
	return &hotplugMonitor{
		card:   card,
		logger: logging.NewComponentLogger(logger, "hotplug"),
	}
}

// Start begins listening for udev netlink events. A connection failure is
// non-fatal; the daemon keeps running without hotplug diagnostics.
func (m *hotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; card removal will go unnoticed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "hotplug diagnostics unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Hand the quit channel to the goroutine so it never reads m.quit
	// without the lock.
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldCard, m.card.ID),
		logging.Int("card_index", m.card.Index),
	)
	return nil
}

// Stop shuts down the hotplug monitor.
func (m *hotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("hotplug monitor stopped")
}

// Running reports whether the hotplug monitor is active.
func (m *hotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *hotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("hotplug monitor error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "card removal may go unnoticed"),
			)
		}
	}
}

// buildMatcher selects sound subsystem attach/detach events.
func (m *hotplugMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

func (m *hotplugMonitor) handleEvent(uevent netlink.UEvent) {
	index, ok := cardIndexFromEvent(uevent)
	if !ok {
		m.logger.Debug("ignoring event without card index",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if index != m.card.Index {
		m.logger.Debug("ignoring event for other card",
			logging.Int("event_card", index),
			logging.Int("card_index", m.card.Index),
		)
		return
	}

	switch string(uevent.Action) {
	case "remove":
		m.logger.Warn("sound card removed",
			logging.Int("card_index", index),
			logging.String(logging.FieldErrorHint, "reconnect the interface and restart ftumixd"),
			logging.String(logging.FieldImpact, "mixer commands will fail until the card returns"),
		)
	case "add":
		m.logger.Info("sound card attached",
			logging.Int("card_index", index),
			logging.String(logging.FieldErrorHint, "restart ftumixd to rebind controls"),
		)
	default:
		m.logger.Debug("sound card event",
			logging.Int("card_index", index),
			logging.String("action", string(uevent.Action)),
		)
	}
}

// cardIndexFromEvent extracts the ALSA card index from a sound uevent.
// Control node events carry DEVNAME=/dev/snd/controlC<n>; card object
// events end their DEVPATH with /card<n>.
func cardIndexFromEvent(uevent netlink.UEvent) (int, bool) {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if rest, ok := strings.CutPrefix(devname, "/dev/snd/controlC"); ok {
			if index, err := strconv.Atoi(rest); err == nil {
				return index, true
			}
		}
	}

	path := uevent.KObj
	if devpath := uevent.Env["DEVPATH"]; devpath != "" {
		path = devpath
	}
	if path == "" {
		return 0, false
	}
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	rest, ok := strings.CutPrefix(last, "card")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return index, true
}
