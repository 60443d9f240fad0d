package mixer

import (
	"fmt"

	"ftumix/internal/control"
)

// LinkTable maps output channels to the output whose analog routes mirror
// their volume changes. Entries are in-memory only and start empty. The
// table tolerates cycles; the cascade in Mixer guards against revisiting an
// output. LinkTable performs no locking; the Mixer facade serializes access.
type LinkTable struct {
	channels int
	targets  map[int]int
}

// NewLinkTable returns an empty table for the given channel count.
func NewLinkTable(channels int) *LinkTable {
	return &LinkTable{
		channels: channels,
		targets:  make(map[int]int),
	}
}

// SetLink points output at target. Linking an output to itself fails with
// ErrInvalidLink; anything else replaces the mapping unconditionally, cycles
// included.
func (l *LinkTable) SetLink(output, target int) error {
	if err := l.check(output); err != nil {
		return err
	}
	if err := l.check(target); err != nil {
		return err
	}
	if output == target {
		return fmt.Errorf("output %d: %w", output+1, ErrInvalidLink)
	}
	l.targets[output] = target
	return nil
}

// ClearLink removes output's mapping. Clearing an unlinked output is a no-op.
func (l *LinkTable) ClearLink(output int) error {
	if err := l.check(output); err != nil {
		return err
	}
	delete(l.targets, output)
	return nil
}

// Target reports where output's changes replicate to.
func (l *LinkTable) Target(output int) (int, bool) {
	target, ok := l.targets[output]
	return target, ok
}

// Links returns the linked outputs only.
func (l *LinkTable) Links() map[int]int {
	out := make(map[int]int, len(l.targets))
	for output, target := range l.targets {
		out[output] = target
	}
	return out
}

// Snapshot covers every output, using control.NoLink for unlinked ones, so
// encoded presets are total.
func (l *LinkTable) Snapshot() map[int]int {
	out := make(map[int]int, l.channels)
	for output := 0; output < l.channels; output++ {
		if target, ok := l.targets[output]; ok {
			out[output] = target
		} else {
			out[output] = control.NoLink
		}
	}
	return out
}

// apply folds decoded link state into the table. Outputs absent from links
// keep their current mapping; control.NoLink clears; invalid entries are
// skipped.
func (l *LinkTable) apply(links map[int]int) {
	for output, target := range links {
		if output < 0 || output >= l.channels {
			continue
		}
		if target == control.NoLink {
			delete(l.targets, output)
			continue
		}
		if target < 0 || target >= l.channels || target == output {
			continue
		}
		l.targets[output] = target
	}
}

func (l *LinkTable) check(index int) error {
	if index < 0 || index >= l.channels {
		return fmt.Errorf("output %d: %w", index+1, ErrIndexOutOfRange)
	}
	return nil
}
