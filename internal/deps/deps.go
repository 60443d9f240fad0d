package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports the availability of a single runtime dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// CheckAmixer reports whether the configured amixer binary resolves on PATH.
// On success Command carries the resolved path rather than the configured
// name, so status output shows which binary the daemon will actually run.
func CheckAmixer(binary string) Status {
	status := Status{
		Name:        "amixer",
		Command:     strings.TrimSpace(binary),
		Description: "Reads and writes mixer controls",
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

// Missing filters statuses down to dependencies that are not available.
// An empty result means the daemon may start.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}
