package testsupport

import (
	"context"
	"fmt"
	"sync"

	"ftumix/internal/control"
)

// Backend is an in-memory control.Backend with scripted controls and a
// pushable event stream. It stands in for the ALSA layer in tests.
type Backend struct {
	mu       sync.Mutex
	card     control.Card
	order    []string
	controls map[string]*StubControl
	events   chan control.Event
	listErr  error
	closed   bool
}

// NewBackend builds a backend exposing complete analog and digital route
// squares for the given channel count. Route volumes start at zero.
func NewBackend(channels int) *Backend {
	b := &Backend{
		card:     control.Card{Index: 9, ID: "F8R", Name: "Fast Track Ultra 8R"},
		controls: make(map[string]*StubControl),
		events:   make(chan control.Event, 32),
	}
	for out := 1; out <= channels; out++ {
		for in := 1; in <= channels; in++ {
			route := control.RouteID{Output: out - 1, Input: in - 1}
			b.add(&StubControl{desc: control.Desc{
				Name:      fmt.Sprintf("AIn%d - Out%d", in, out),
				Kind:      control.KindRoute,
				Domain:    control.Analog,
				Route:     route,
				HasVolume: true,
			}})
			b.add(&StubControl{desc: control.Desc{
				Name:      fmt.Sprintf("DIn%d - Out%d", in, out),
				Kind:      control.KindRoute,
				Domain:    control.Digital,
				Route:     route,
				HasVolume: true,
			}})
		}
	}
	return b
}

func (b *Backend) add(c *StubControl) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = append(b.order, c.desc.Name)
	b.controls[c.desc.Name] = c
}

// AddControl registers a control with an arbitrary descriptor, for tests
// that need irregular matrix shapes.
func (b *Backend) AddControl(desc control.Desc) *StubControl {
	c := &StubControl{desc: desc}
	b.add(c)
	return c
}

// Remove drops a control from the backend, or does nothing when absent.
func (b *Backend) Remove(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.controls[name]; !ok {
		return
	}
	delete(b.controls, name)
	for i, candidate := range b.order {
		if candidate == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// AddEffect registers a linear-volume effect control.
func (b *Backend) AddEffect(name string, volume int) *StubControl {
	c := &StubControl{
		desc:   control.Desc{Name: name, Kind: control.KindEffect, HasVolume: true},
		volume: volume,
	}
	b.add(c)
	return c
}

// AddEnumEffect registers an enumerated effect control.
func (b *Backend) AddEnumEffect(name string, items []string, current string) *StubControl {
	c := &StubControl{
		desc: control.Desc{Name: name, Kind: control.KindEffect, EnumItems: append([]string(nil), items...)},
		item: current,
	}
	b.add(c)
	return c
}

// Control returns the named stub, or nil when absent.
func (b *Backend) Control(name string) *StubControl {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.controls[name]
}

// FailControls makes the next Controls call return err.
func (b *Backend) FailControls(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listErr = err
}

// PushEvent injects a hardware-side change notification.
func (b *Backend) PushEvent(name string) {
	b.events <- control.Event{Control: name}
}

func (b *Backend) Card() control.Card {
	return b.card
}

func (b *Backend) Controls(ctx context.Context) ([]control.Control, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]control.Control, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.controls[name])
	}
	return out, nil
}

func (b *Backend) Events() <-chan control.Event {
	return b.events
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	return nil
}

// StubControl is a scripted control with inspectable state.
type StubControl struct {
	mu       sync.Mutex
	desc     control.Desc
	volume   int
	item     string
	err      error
	setCalls int
}

func (c *StubControl) Desc() control.Desc {
	return c.desc
}

func (c *StubControl) Volume(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.volume, nil
}

func (c *StubControl) SetVolume(ctx context.Context, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.volume = value
	c.setCalls++
	return nil
}

func (c *StubControl) EnumValue(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	if len(c.desc.EnumItems) == 0 {
		return "", fmt.Errorf("control %s has no enumeration", c.desc.Name)
	}
	return c.item, nil
}

func (c *StubControl) SetEnumValue(ctx context.Context, item string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, candidate := range c.desc.EnumItems {
		if candidate == item {
			c.item = item
			return nil
		}
	}
	return fmt.Errorf("control %s has no item %q", c.desc.Name, item)
}

// Fail makes every subsequent operation on the control return err.
func (c *StubControl) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// SetDirect mutates the volume as external software would, bypassing the
// failure script and call counting.
func (c *StubControl) SetDirect(value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = value
}

// CurrentVolume reports the stored volume.
func (c *StubControl) CurrentVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// CurrentItem reports the stored enum selection.
func (c *StubControl) CurrentItem() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.item
}

// SetCalls reports how many times SetVolume succeeded.
func (c *StubControl) SetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setCalls
}
