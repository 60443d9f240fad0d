package alsa

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"ftumix/internal/control"
)

var (
	routeNamePattern     = regexp.MustCompile(`^([AD])In(\d+) - Out(\d+)$`)
	simpleControlPattern = regexp.MustCompile(`Simple mixer control '([^']+)'`)
	percentPattern       = regexp.MustCompile(`\[(\d+)%\]`)
	quotedItemPattern    = regexp.MustCompile(`'([^']*)'`)
	eventNamePattern     = regexp.MustCompile(`name='([^']+)'`)
)

// routeDesc classifies a control name as a routing-matrix cell. Route
// controls carry the input number at position 3 of the name and the output
// after "Out", both 1-based.
func routeDesc(name string) (control.Desc, bool) {
	m := routeNamePattern.FindStringSubmatch(name)
	if m == nil {
		return control.Desc{}, false
	}
	in, _ := strconv.Atoi(m[2])
	out, _ := strconv.Atoi(m[3])
	if in < 1 || out < 1 {
		return control.Desc{}, false
	}
	domain := control.Analog
	if m[1] == "D" {
		domain = control.Digital
	}
	return control.Desc{
		Name:      name,
		Kind:      control.KindRoute,
		Domain:    domain,
		Route:     control.RouteID{Output: out - 1, Input: in - 1},
		HasVolume: true,
	}, true
}

// parseControlNames extracts simple control names from scontrols output.
func parseControlNames(lines []string) []string {
	var names []string
	for _, line := range lines {
		if m := simpleControlPattern.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// parseVolume returns the first percentage in an sget dump.
func parseVolume(lines []string) (int, error) {
	for _, line := range lines {
		if m := percentPattern.FindStringSubmatch(line); m != nil {
			return strconv.Atoi(m[1])
		}
	}
	return 0, errors.New("no volume in amixer output")
}

// capabilities summarizes what an sget dump says a control can do.
type capabilities struct {
	hasVolume bool
	items     []string
	current   string
}

func parseCapabilities(lines []string) capabilities {
	var caps capabilities
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Capabilities:"):
			for _, token := range strings.Fields(strings.TrimPrefix(trimmed, "Capabilities:")) {
				if strings.Contains(token, "volume") {
					caps.hasVolume = true
				}
			}
		case strings.HasPrefix(trimmed, "Items:"):
			for _, m := range quotedItemPattern.FindAllStringSubmatch(trimmed, -1) {
				caps.items = append(caps.items, m[1])
			}
		case strings.HasPrefix(trimmed, "Item0:"):
			if m := quotedItemPattern.FindStringSubmatch(trimmed); m != nil {
				caps.current = m[1]
			}
		}
	}
	return caps
}

// Element names sometimes carry suffixes the simple mixer hides; strip them
// so event names line up with scontrols names.
var elementSuffixes = []string{
	" Playback Volume",
	" Capture Volume",
	" Playback Switch",
	" Capture Switch",
	" Playback Enum",
	" Capture Enum",
}

// parseEventControl extracts the control name from one `amixer events`
// value-change line.
func parseEventControl(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "event value:") {
		return "", false
	}
	m := eventNamePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	name := m[1]
	for _, suffix := range elementSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return name, name != ""
}
