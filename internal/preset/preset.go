// Package preset serializes mixer state to flat INI presets and back:
// [Analog] and [Digital] sections with ain{I}_to_out{O} / din{I}_to_out{O}
// keys (1-based), an [Effects] section keyed by normalized control name,
// and a [Links] section with link{O}to keys where 0 means unlinked. The
// layout predates this daemon, so decoding is deliberately permissive and
// hand-edited or legacy files stay loadable: unknown sections, unknown
// keys, and values that do not parse are skipped, never fatal.
package preset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"ftumix/internal/control"
)

const (
	sectionAnalog  = "Analog"
	sectionDigital = "Digital"
	sectionEffects = "Effects"
	sectionLinks   = "Links"
	// Older preset files carry link state in a [GUI] section; accepted on
	// decode so they keep loading.
	sectionLinksLegacy = "GUI"
)

var (
	analogKeyPattern  = regexp.MustCompile(`^ain(\d+)_to_out(\d+)$`)
	digitalKeyPattern = regexp.MustCompile(`^din(\d+)_to_out(\d+)$`)
	linkKeyPattern    = regexp.MustCompile(`^link(\d+)to$`)
)

// Encode renders a state snapshot as preset text. Route keys are written
// output-major, effects sorted by key, links by output, so identical states
// produce identical bytes.
func Encode(state control.State) ([]byte, error) {
	f := ini.Empty()

	analog, err := f.NewSection(sectionAnalog)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	if err := encodeRoutes(analog, "ain", state.Channels, state.Analog); err != nil {
		return nil, err
	}

	digital, err := f.NewSection(sectionDigital)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	if err := encodeRoutes(digital, "din", state.Channels, state.Digital); err != nil {
		return nil, err
	}

	effects, err := f.NewSection(sectionEffects)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	for _, key := range sortedKeys(state.Effects) {
		value := state.Effects[key]
		rendered := value.Item
		if value.Kind == control.EffectVolume {
			rendered = strconv.Itoa(value.Volume)
		}
		if _, err := effects.NewKey(key, rendered); err != nil {
			return nil, fmt.Errorf("encode preset: %w", err)
		}
	}

	links, err := f.NewSection(sectionLinks)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	outputs := make([]int, 0, len(state.Links))
	for output := range state.Links {
		outputs = append(outputs, output)
	}
	sort.Ints(outputs)
	for _, output := range outputs {
		target := state.Links[output]
		rendered := "0"
		if target != control.NoLink {
			rendered = strconv.Itoa(target + 1)
		}
		if _, err := links.NewKey(fmt.Sprintf("link%dto", output+1), rendered); err != nil {
			return nil, fmt.Errorf("encode preset: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeRoutes(sec *ini.Section, prefix string, channels int, values map[control.RouteID]int) error {
	for out := 0; out < channels; out++ {
		for in := 0; in < channels; in++ {
			value, ok := values[control.RouteID{Output: out, Input: in}]
			if !ok {
				continue
			}
			name := fmt.Sprintf("%s%d_to_out%d", prefix, in+1, out+1)
			if _, err := sec.NewKey(name, strconv.Itoa(value)); err != nil {
				return fmt.Errorf("encode preset: %w", err)
			}
		}
	}
	return nil
}

func sortedKeys(values map[string]control.EffectValue) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Decode parses preset text into a partial state. Missing sections mean "no
// change to that category". Key names are lower-cased before matching
// because legacy files were written with case-insensitive keys. The channel
// count is inferred from the largest index seen.
func Decode(data []byte) (control.State, error) {
	f, err := ini.Load(data)
	if err != nil {
		return control.State{}, fmt.Errorf("parse preset: %w", err)
	}

	state := control.NewState(0)
	channels := 0
	track := func(index int) {
		if index > channels {
			channels = index
		}
	}

	if sec, err := f.GetSection(sectionAnalog); err == nil {
		decodeRoutes(sec, analogKeyPattern, state.Analog, track)
	}
	if sec, err := f.GetSection(sectionDigital); err == nil {
		decodeRoutes(sec, digitalKeyPattern, state.Digital, track)
	}
	if sec, err := f.GetSection(sectionEffects); err == nil {
		for _, key := range sec.Keys() {
			state.Effects[control.EffectKey(key.Name())] = effectValue(key.String())
		}
	}
	if sec := linkSection(f); sec != nil {
		for _, key := range sec.Keys() {
			m := linkKeyPattern.FindStringSubmatch(strings.ToLower(key.Name()))
			if m == nil {
				continue
			}
			output, err := strconv.Atoi(m[1])
			if err != nil || output < 1 {
				continue
			}
			target, err := key.Int()
			if err != nil || target < 0 {
				continue
			}
			track(output)
			if target == 0 {
				state.Links[output-1] = control.NoLink
				continue
			}
			track(target)
			state.Links[output-1] = target - 1
		}
	}

	state.Channels = channels
	return state, nil
}

func decodeRoutes(sec *ini.Section, pattern *regexp.Regexp, dst map[control.RouteID]int, track func(int)) {
	for _, key := range sec.Keys() {
		m := pattern.FindStringSubmatch(strings.ToLower(key.Name()))
		if m == nil {
			continue
		}
		in, inErr := strconv.Atoi(m[1])
		out, outErr := strconv.Atoi(m[2])
		value, valueErr := key.Int()
		if inErr != nil || outErr != nil || valueErr != nil {
			continue
		}
		if in < 1 || out < 1 {
			continue
		}
		track(in)
		track(out)
		dst[control.RouteID{Output: out - 1, Input: in - 1}] = value
	}
}

func linkSection(f *ini.File) *ini.Section {
	for _, name := range []string{sectionLinks, sectionLinksLegacy} {
		if sec, err := f.GetSection(name); err == nil {
			return sec
		}
	}
	return nil
}

// effectValue infers the value shape from its rendering: integers are
// linear volumes, anything else is an enumerated label.
func effectValue(raw string) control.EffectValue {
	if volume, err := strconv.Atoi(raw); err == nil {
		return control.LinearEffect(volume)
	}
	return control.EnumEffect(raw)
}

// Save encodes state and writes it to path, creating parent directories as
// needed.
func Save(path string, state control.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preset directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}

// Load reads and decodes the preset at path.
func Load(path string) (control.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return control.State{}, fmt.Errorf("read preset: %w", err)
	}
	return Decode(data)
}
