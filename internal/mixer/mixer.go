package mixer

import (
	"context"
	"log/slog"
	"sync"

	"ftumix/internal/control"
	"ftumix/internal/logging"
)

// Mixer is the serialized command surface over the matrix, the link table,
// and the hub. Every mutation runs under one lock, so explicit commands and
// preset loads never interleave on the hardware. The watcher publishes to
// the same hub but never enters the facade, so hardware echoes cannot
// trigger a second cascade.
type Mixer struct {
	mu     sync.Mutex
	matrix *Matrix
	links  *LinkTable
	hub    *Hub
	logger *slog.Logger
}

// New builds the facade around an assembled matrix. The hub is shared with
// the watcher so both change sources feed one subscriber stream.
func New(matrix *Matrix, hub *Hub, logger *slog.Logger) *Mixer {
	return &Mixer{
		matrix: matrix,
		links:  NewLinkTable(matrix.Channels()),
		hub:    hub,
		logger: logging.NewComponentLogger(logger, "mixer"),
	}
}

// Channels returns the number of input/output pairs per domain.
func (m *Mixer) Channels() int {
	return m.matrix.Channels()
}

// Card identifies the backing device.
func (m *Mixer) Card() control.Card {
	return m.matrix.Card()
}

// EffectDescs lists the discovered effect controls.
func (m *Mixer) EffectDescs() []control.Desc {
	return m.matrix.EffectDescs()
}

// Volume reads one route volume.
func (m *Mixer) Volume(ctx context.Context, domain control.Domain, route control.RouteID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrix.Volume(ctx, domain, route)
}

// SetVolume writes one route volume and dispatches the result. Analog
// writes replicate down the output's link chain, each output visited at
// most once, and the whole cascade lands in a single batch. Digital writes
// never cascade. When a write fails mid-cascade the routes already written
// are still dispatched and the error is returned.
func (m *Mixer) SetVolume(ctx context.Context, domain control.Domain, route control.RouteID, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if domain != control.Analog {
		if err := m.matrix.SetVolume(ctx, domain, route, value); err != nil {
			return err
		}
		m.publish(routeChange(domain, route))
		return nil
	}

	var changed control.ChangeSet
	var failed error
	visited := make(map[int]struct{})
	output := route.Output
	for {
		if _, done := visited[output]; done {
			break
		}
		visited[output] = struct{}{}

		id := control.RouteID{Output: output, Input: route.Input}
		if err := m.matrix.SetVolume(ctx, control.Analog, id, value); err != nil {
			failed = err
			break
		}
		changed.Add(control.Analog, id)

		target, ok := m.links.Target(output)
		if !ok {
			break
		}
		output = target
	}
	m.publish(changed)
	return failed
}

// SetLink points output's analog volume changes at target. Link edits touch
// no hardware and dispatch nothing.
func (m *Mixer) SetLink(output, target int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.links.SetLink(output, target); err != nil {
		return err
	}
	m.logger.Info("output linked",
		logging.Int("output", output+1),
		logging.Int("target", target+1))
	return nil
}

// ClearLink removes output's link target.
func (m *Mixer) ClearLink(output int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.links.ClearLink(output); err != nil {
		return err
	}
	m.logger.Info("output unlinked", logging.Int("output", output+1))
	return nil
}

// Links returns the linked outputs only, 0-based.
func (m *Mixer) Links() map[int]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links.Links()
}

// Effects reads every effect control's current value.
func (m *Mixer) Effects(ctx context.Context) (map[string]control.EffectValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrix.Effects(ctx)
}

// DisableEffects zeroes every volume-capable effect control. Effect writes
// are not routes and dispatch nothing.
func (m *Mixer) DisableEffects(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.matrix.DisableEffects(ctx); err != nil {
		return err
	}
	m.logger.Info("effects disabled")
	return nil
}

// MuteMostDigitalRoutes zeroes every off-diagonal digital route and
// dispatches the batch. The diagonal stays untouched for external routing.
func (m *Mixer) MuteMostDigitalRoutes(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed, err := m.matrix.MuteMostDigitalRoutes(ctx)
	m.publish(changed)
	if err == nil {
		m.logger.Info("digital routes muted", logging.Int("routes", changed.Len()))
	}
	return err
}

// MuteAnalogRoutes zeroes the full analog matrix and dispatches the batch.
func (m *Mixer) MuteAnalogRoutes(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed, err := m.matrix.MuteAnalogRoutes(ctx)
	m.publish(changed)
	if err == nil {
		m.logger.Info("analog routes muted", logging.Int("routes", changed.Len()))
	}
	return err
}

// PassThroughInputs raises the analog diagonal to full volume and dispatches
// the batch.
func (m *Mixer) PassThroughInputs(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed, err := m.matrix.PassThroughInputs(ctx)
	m.publish(changed)
	if err == nil {
		m.logger.Info("inputs passed through", logging.Int("routes", changed.Len()))
	}
	return err
}

// MasterVolume reports the rounded mean of the digital passthrough diagonal.
func (m *Mixer) MasterVolume(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrix.MasterVolume(ctx)
}

// SetMasterVolume sets the digital passthrough diagonal to value and
// dispatches the batch.
func (m *Mixer) SetMasterVolume(ctx context.Context, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed, err := m.matrix.SetMasterVolume(ctx, value)
	m.publish(changed)
	return err
}

// Snapshot dumps the complete mixer state, link table included.
func (m *Mixer) Snapshot(ctx context.Context) (control.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := m.matrix.Snapshot(ctx)
	if err != nil {
		return control.State{}, err
	}
	state.Links = m.links.Snapshot()
	return state, nil
}

// Apply writes a decoded state to the hardware and the link table, then
// dispatches the routes that were written. Keys the matrix does not know and
// values outside their ranges are skipped; on a hardware failure the routes
// already written are still dispatched and the link table is left alone.
func (m *Mixer) Apply(ctx context.Context, state control.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed, err := m.matrix.Apply(ctx, state)
	if err != nil {
		m.publish(changed)
		return err
	}
	m.links.apply(state.Links)
	m.publish(changed)
	m.logger.Info("state applied",
		logging.Int("routes", changed.Len()),
		logging.Int("effects", len(state.Effects)))
	return nil
}

// Subscribe registers fn with the hub and returns its subscription id. fn
// runs on the publishing goroutine and must return quickly.
func (m *Mixer) Subscribe(fn func(Change)) string {
	return m.hub.Subscribe(fn)
}

// Unsubscribe removes a hub subscription.
func (m *Mixer) Unsubscribe(id string) {
	m.hub.Unsubscribe(id)
}

// ChangesSince returns the journaled change batches newer than seq and the
// latest sequence number, for pull-based consumers.
func (m *Mixer) ChangesSince(seq uint64) ([]Change, uint64) {
	return m.hub.Since(seq)
}

func (m *Mixer) publish(changed control.ChangeSet) {
	m.hub.Publish(OriginCommand, changed)
}

func routeChange(domain control.Domain, route control.RouteID) control.ChangeSet {
	var c control.ChangeSet
	c.Add(domain, route)
	return c
}
