package control

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Domain identifies which signal path category a route belongs to.
type Domain int

const (
	Analog Domain = iota
	Digital
)

func (d Domain) String() string {
	switch d {
	case Analog:
		return "analog"
	case Digital:
		return "digital"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// RouteID addresses one gain path inside a domain. Indices are 0-based;
// hardware control names and preset keys are 1-based and converted at the
// edges that speak them.
type RouteID struct {
	Output int
	Input  int
}

func (r RouteID) String() string {
	return fmt.Sprintf("in%d>out%d", r.Input+1, r.Output+1)
}

// Kind separates matrix routes from effect controls.
type Kind int

const (
	KindRoute Kind = iota
	KindEffect
)

// Desc describes one mixer control as reported by the backend. Domain and
// Route are meaningful only for KindRoute. Effect controls carry either a
// linear volume (HasVolume) or an enumerated selection (EnumItems), never
// both.
type Desc struct {
	Name      string
	Kind      Kind
	Domain    Domain
	Route     RouteID
	HasVolume bool
	EnumItems []string
}

// Control is one addressable hardware control.
type Control interface {
	Desc() Desc
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, value int) error
	EnumValue(ctx context.Context) (string, error)
	SetEnumValue(ctx context.Context, item string) error
}

// Event reports a hardware-side change to a single named control.
type Event struct {
	Control string
}

// Backend exposes one card's controls and its change-notification stream.
type Backend interface {
	// Card identifies the device the backend is bound to.
	Card() Card
	// Controls enumerates every mixer control the hardware reports.
	Controls(ctx context.Context) ([]Control, error)
	// Events yields one event per hardware-side control change. The channel
	// is closed when the backend shuts down.
	Events() <-chan Event
	// Close stops the event stream and releases helper processes.
	Close() error
}

// Card identifies a sound card on the host.
type Card struct {
	Index int
	ID    string
	Name  string
}

func (c Card) String() string {
	return fmt.Sprintf("card %d [%s] %s", c.Index, c.ID, c.Name)
}

var lower = cases.Lower(language.Und)

// EffectKey normalizes an effect control name into its snapshot/preset key:
// lower-cased with spaces replaced by underscores.
func EffectKey(name string) string {
	return strings.ReplaceAll(lower.String(name), " ", "_")
}
