package control

// EffectKind distinguishes the two effect control value shapes.
type EffectKind int

const (
	EffectVolume EffectKind = iota
	EffectEnum
)

// EffectValue holds one effect control's state: a linear volume or an
// enumerated selection.
type EffectValue struct {
	Kind   EffectKind
	Volume int
	Item   string
}

// LinearEffect wraps a volume as an effect value.
func LinearEffect(volume int) EffectValue {
	return EffectValue{Kind: EffectVolume, Volume: volume}
}

// EnumEffect wraps an enumerated selection as an effect value.
func EnumEffect(item string) EffectValue {
	return EffectValue{Kind: EffectEnum, Item: item}
}

// NoLink marks an output with no link target in State.Links.
const NoLink = -1

// State is a complete dump of the mixer: route volumes per domain, effect
// values keyed by EffectKey, and the output link table. Links maps 0-based
// outputs to their 0-based targets, with NoLink for outputs that are
// explicitly unlinked. Partial states are legal everywhere a State is
// applied: absent keys mean "leave unchanged".
type State struct {
	Channels int
	Analog   map[RouteID]int
	Digital  map[RouteID]int
	Effects  map[string]EffectValue
	Links    map[int]int
}

// NewState returns an empty state for a matrix with the given channel count.
func NewState(channels int) State {
	return State{
		Channels: channels,
		Analog:   make(map[RouteID]int),
		Digital:  make(map[RouteID]int),
		Effects:  make(map[string]EffectValue),
		Links:    make(map[int]int),
	}
}

// ChangeSet lists the routes touched by one mutation or one watcher cycle,
// partitioned by domain. Order follows first touch.
type ChangeSet struct {
	Analog  []RouteID
	Digital []RouteID
}

// Add records a touched route under its domain.
func (c *ChangeSet) Add(d Domain, r RouteID) {
	switch d {
	case Analog:
		c.Analog = append(c.Analog, r)
	case Digital:
		c.Digital = append(c.Digital, r)
	}
}

// Empty reports whether the set contains no routes.
func (c ChangeSet) Empty() bool {
	return len(c.Analog) == 0 && len(c.Digital) == 0
}

// Len returns the total number of routes in the set.
func (c ChangeSet) Len() int {
	return len(c.Analog) + len(c.Digital)
}
