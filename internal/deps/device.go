package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const cardRegistryPath = "/proc/asound/cards"

// ControlDevicePath returns the ALSA control node for a card index.
func ControlDevicePath(index int) string {
	return fmt.Sprintf("/dev/snd/controlC%d", index)
}

// CheckControlDevice verifies the control node for the card exists and is
// readable and writable by the current process. amixer needs both to read
// state and to apply changes.
func CheckControlDevice(index int) Status {
	return checkNodeAccess(Status{
		Name:        "Control device",
		Description: "ALSA control node for the selected card",
	}, ControlDevicePath(index), unix.R_OK|unix.W_OK)
}

// CheckCardRegistry verifies the kernel's sound card registry is readable.
// Card discovery parses it to resolve the configured match fragments.
func CheckCardRegistry() Status {
	return checkNodeAccess(Status{
		Name:        "Card registry",
		Description: "Kernel list of installed sound cards",
	}, cardRegistryPath, unix.R_OK)
}

// CheckRuntime evaluates everything ftumixd needs before opening the card.
// Pass a negative card index when no card has been resolved yet; the control
// device check is skipped in that case.
func CheckRuntime(amixerBinary string, cardIndex int) []Status {
	statuses := []Status{
		CheckAmixer(amixerBinary),
		CheckCardRegistry(),
	}
	if cardIndex >= 0 {
		statuses = append(statuses, CheckControlDevice(cardIndex))
	}
	return statuses
}

func checkNodeAccess(status Status, path string, mode uint32) Status {
	status.Command = path
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			status.Detail = "does not exist"
			return status
		}
		status.Detail = fmt.Sprintf("stat: %v", err)
		return status
	}
	if info.IsDir() {
		status.Detail = "is a directory"
		return status
	}
	if err := unix.Access(path, mode); err != nil {
		status.Detail = fmt.Sprintf("insufficient permissions: %v", err)
		return status
	}
	status.Available = true
	return status
}
