package mixer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"ftumix/internal/control"
)

// Matrix owns the per-domain route tables and the effect control list for
// one card. It is assembled once from the controls the backend discovered
// and lives for the process lifetime. Matrix performs no locking of its
// own; the Mixer facade serializes access.
type Matrix struct {
	backend  control.Backend
	channels int
	analog   [][]control.Control
	digital  [][]control.Control
	effects  []control.Control
	routes   map[string]routeKey
	byKey    map[string]control.Control
}

type routeKey struct {
	domain control.Domain
	route  control.RouteID
}

// NewMatrix enumerates the backend's controls and assembles the route
// matrices. Both domains must form complete squares of the same channel
// count. Effect controls reporting neither a volume nor an enumeration are
// ignored.
func NewMatrix(ctx context.Context, backend control.Backend) (*Matrix, error) {
	controls, err := backend.Controls(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate controls: %w", err)
	}

	m := &Matrix{
		backend: backend,
		routes:  make(map[string]routeKey),
		byKey:   make(map[string]control.Control),
	}

	analog := make(map[control.RouteID]control.Control)
	digital := make(map[control.RouteID]control.Control)
	channels := 0
	for _, c := range controls {
		desc := c.Desc()
		switch desc.Kind {
		case control.KindRoute:
			if desc.Route.Output < 0 || desc.Route.Input < 0 {
				return nil, fmt.Errorf("control %q: negative route index", desc.Name)
			}
			table := analog
			if desc.Domain == control.Digital {
				table = digital
			}
			if _, dup := table[desc.Route]; dup {
				return nil, fmt.Errorf("control %q: duplicate %s route %s", desc.Name, desc.Domain, desc.Route)
			}
			table[desc.Route] = c
			m.routes[desc.Name] = routeKey{domain: desc.Domain, route: desc.Route}
			if desc.Route.Output+1 > channels {
				channels = desc.Route.Output + 1
			}
			if desc.Route.Input+1 > channels {
				channels = desc.Route.Input + 1
			}
		case control.KindEffect:
			if !desc.HasVolume && len(desc.EnumItems) == 0 {
				continue
			}
			m.effects = append(m.effects, c)
			m.byKey[control.EffectKey(desc.Name)] = c
		}
	}

	if channels == 0 {
		return nil, errors.New("backend reports no route controls")
	}
	m.channels = channels

	if m.analog, err = square(analog, channels, control.Analog); err != nil {
		return nil, err
	}
	if m.digital, err = square(digital, channels, control.Digital); err != nil {
		return nil, err
	}
	return m, nil
}

func square(cells map[control.RouteID]control.Control, channels int, domain control.Domain) ([][]control.Control, error) {
	if len(cells) != channels*channels {
		return nil, fmt.Errorf("%s route matrix not square: %d controls for %d channels", domain, len(cells), channels)
	}
	grid := make([][]control.Control, channels)
	for out := 0; out < channels; out++ {
		grid[out] = make([]control.Control, channels)
		for in := 0; in < channels; in++ {
			c, ok := cells[control.RouteID{Output: out, Input: in}]
			if !ok {
				return nil, fmt.Errorf("%s route matrix incomplete: missing %s", domain, control.RouteID{Output: out, Input: in})
			}
			grid[out][in] = c
		}
	}
	return grid, nil
}

// Channels returns the number of input/output pairs per domain.
func (m *Matrix) Channels() int {
	return m.channels
}

// Card identifies the backing device.
func (m *Matrix) Card() control.Card {
	return m.backend.Card()
}

// RouteForControl maps a hardware control name to its route identity.
func (m *Matrix) RouteForControl(name string) (control.Domain, control.RouteID, bool) {
	key, ok := m.routes[name]
	if !ok {
		return 0, control.RouteID{}, false
	}
	return key.domain, key.route, true
}

// EffectDescs lists the effect controls in discovery order.
func (m *Matrix) EffectDescs() []control.Desc {
	descs := make([]control.Desc, 0, len(m.effects))
	for _, c := range m.effects {
		descs = append(descs, c.Desc())
	}
	return descs
}

func (m *Matrix) route(domain control.Domain, route control.RouteID) (control.Control, error) {
	if route.Output < 0 || route.Output >= m.channels || route.Input < 0 || route.Input >= m.channels {
		return nil, fmt.Errorf("%s %s: %w", domain, route, ErrIndexOutOfRange)
	}
	if domain == control.Digital {
		return m.digital[route.Output][route.Input], nil
	}
	return m.analog[route.Output][route.Input], nil
}

// Volume reads one route volume straight from the hardware.
func (m *Matrix) Volume(ctx context.Context, domain control.Domain, route control.RouteID) (int, error) {
	c, err := m.route(domain, route)
	if err != nil {
		return 0, err
	}
	value, err := c.Volume(ctx)
	if err != nil {
		return 0, backendErr("read", c.Desc().Name, err)
	}
	return value, nil
}

// SetVolume validates and writes one route volume. The prior value is
// untouched when validation fails.
func (m *Matrix) SetVolume(ctx context.Context, domain control.Domain, route control.RouteID, value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("volume %d: %w", value, ErrInvalidValue)
	}
	c, err := m.route(domain, route)
	if err != nil {
		return err
	}
	if err := c.SetVolume(ctx, value); err != nil {
		return backendErr("write", c.Desc().Name, err)
	}
	return nil
}

// DisableEffects zeroes every effect control that carries a linear volume.
// Enum-only controls are left untouched.
func (m *Matrix) DisableEffects(ctx context.Context) error {
	for _, c := range m.effects {
		desc := c.Desc()
		if !desc.HasVolume {
			continue
		}
		if err := c.SetVolume(ctx, 0); err != nil {
			return backendErr("write", desc.Name, err)
		}
	}
	return nil
}

// MuteMostDigitalRoutes zeroes every digital route except the passthrough
// diagonal, which stays available for external routing tools.
func (m *Matrix) MuteMostDigitalRoutes(ctx context.Context) (control.ChangeSet, error) {
	var changed control.ChangeSet
	for out := 0; out < m.channels; out++ {
		for in := 0; in < m.channels; in++ {
			if out == in {
				continue
			}
			c := m.digital[out][in]
			if err := c.SetVolume(ctx, 0); err != nil {
				return changed, backendErr("write", c.Desc().Name, err)
			}
			changed.Add(control.Digital, control.RouteID{Output: out, Input: in})
		}
	}
	return changed, nil
}

// MuteAnalogRoutes zeroes every analog route.
func (m *Matrix) MuteAnalogRoutes(ctx context.Context) (control.ChangeSet, error) {
	var changed control.ChangeSet
	for out := 0; out < m.channels; out++ {
		for in := 0; in < m.channels; in++ {
			c := m.analog[out][in]
			if err := c.SetVolume(ctx, 0); err != nil {
				return changed, backendErr("write", c.Desc().Name, err)
			}
			changed.Add(control.Analog, control.RouteID{Output: out, Input: in})
		}
	}
	return changed, nil
}

// PassThroughInputs sets the analog diagonal to full volume so each input
// feeds its same-numbered output.
func (m *Matrix) PassThroughInputs(ctx context.Context) (control.ChangeSet, error) {
	var changed control.ChangeSet
	for i := 0; i < m.channels; i++ {
		c := m.analog[i][i]
		if err := c.SetVolume(ctx, 100); err != nil {
			return changed, backendErr("write", c.Desc().Name, err)
		}
		changed.Add(control.Analog, control.RouteID{Output: i, Input: i})
	}
	return changed, nil
}

// MasterVolume reports the rounded mean of the digital passthrough diagonal.
func (m *Matrix) MasterVolume(ctx context.Context) (int, error) {
	sum := 0
	for i := 0; i < m.channels; i++ {
		c := m.digital[i][i]
		value, err := c.Volume(ctx)
		if err != nil {
			return 0, backendErr("read", c.Desc().Name, err)
		}
		sum += value
	}
	return int(math.Round(float64(sum) / float64(m.channels))), nil
}

// SetMasterVolume sets every digital diagonal route to value.
func (m *Matrix) SetMasterVolume(ctx context.Context, value int) (control.ChangeSet, error) {
	var changed control.ChangeSet
	if value < 0 || value > 100 {
		return changed, fmt.Errorf("volume %d: %w", value, ErrInvalidValue)
	}
	for i := 0; i < m.channels; i++ {
		c := m.digital[i][i]
		if err := c.SetVolume(ctx, value); err != nil {
			return changed, backendErr("write", c.Desc().Name, err)
		}
		changed.Add(control.Digital, control.RouteID{Output: i, Input: i})
	}
	return changed, nil
}

// Snapshot dumps every route volume and effect value. The link table is
// merged in by the facade.
func (m *Matrix) Snapshot(ctx context.Context) (control.State, error) {
	state := control.NewState(m.channels)
	for out := 0; out < m.channels; out++ {
		for in := 0; in < m.channels; in++ {
			id := control.RouteID{Output: out, Input: in}
			av, err := m.Volume(ctx, control.Analog, id)
			if err != nil {
				return control.State{}, err
			}
			state.Analog[id] = av
			dv, err := m.Volume(ctx, control.Digital, id)
			if err != nil {
				return control.State{}, err
			}
			state.Digital[id] = dv
		}
	}
	effects, err := m.Effects(ctx)
	if err != nil {
		return control.State{}, err
	}
	state.Effects = effects
	return state, nil
}

// Effects reads the current value of every effect control, keyed by
// control.EffectKey.
func (m *Matrix) Effects(ctx context.Context) (map[string]control.EffectValue, error) {
	values := make(map[string]control.EffectValue, len(m.effects))
	for _, c := range m.effects {
		desc := c.Desc()
		key := control.EffectKey(desc.Name)
		if desc.HasVolume {
			value, err := c.Volume(ctx)
			if err != nil {
				return nil, backendErr("read", desc.Name, err)
			}
			values[key] = control.LinearEffect(value)
			continue
		}
		item, err := c.EnumValue(ctx)
		if err != nil {
			return nil, backendErr("read", desc.Name, err)
		}
		values[key] = control.EnumEffect(item)
	}
	return values, nil
}

// Apply writes every known key present in state and reports the routes it
// touched. Unknown keys, out-of-range addresses, out-of-range volumes, and
// enum items the control does not offer are skipped so hand-edited presets
// stay loadable.
func (m *Matrix) Apply(ctx context.Context, state control.State) (control.ChangeSet, error) {
	var changed control.ChangeSet
	if err := m.applyRoutes(ctx, control.Analog, state.Analog, &changed); err != nil {
		return changed, err
	}
	if err := m.applyRoutes(ctx, control.Digital, state.Digital, &changed); err != nil {
		return changed, err
	}
	if err := m.applyEffects(ctx, state.Effects); err != nil {
		return changed, err
	}
	return changed, nil
}

func (m *Matrix) applyRoutes(ctx context.Context, domain control.Domain, values map[control.RouteID]int, changed *control.ChangeSet) error {
	if len(values) == 0 {
		return nil
	}
	// Row-major application keeps dispatch order stable regardless of map
	// iteration; addresses outside the grid simply never match.
	for out := 0; out < m.channels; out++ {
		for in := 0; in < m.channels; in++ {
			id := control.RouteID{Output: out, Input: in}
			value, ok := values[id]
			if !ok {
				continue
			}
			if value < 0 || value > 100 {
				continue
			}
			if err := m.SetVolume(ctx, domain, id, value); err != nil {
				return err
			}
			changed.Add(domain, id)
		}
	}
	return nil
}

func (m *Matrix) applyEffects(ctx context.Context, values map[string]control.EffectValue) error {
	if len(values) == 0 {
		return nil
	}
	for _, c := range m.effects {
		desc := c.Desc()
		value, ok := values[control.EffectKey(desc.Name)]
		if !ok {
			continue
		}
		switch value.Kind {
		case control.EffectVolume:
			if !desc.HasVolume || value.Volume < 0 || value.Volume > 100 {
				continue
			}
			if err := c.SetVolume(ctx, value.Volume); err != nil {
				return backendErr("write", desc.Name, err)
			}
		case control.EffectEnum:
			if !slices.Contains(desc.EnumItems, value.Item) {
				continue
			}
			if err := c.SetEnumValue(ctx, value.Item); err != nil {
				return backendErr("write", desc.Name, err)
			}
		}
	}
	return nil
}
