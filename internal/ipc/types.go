package ipc

import "time"

// Channel numbers cross the wire 1-based to match the hardware labels and
// the preset key format; the server converts at the boundary.

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse identifies the answering daemon.
type PingResponse struct {
	PID  int      `json:"pid"`
	Card CardInfo `json:"card"`
}

// CardInfo mirrors the bound sound card.
type CardInfo struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	Card         CardInfo           `json:"card"`
	Channels     int                `json:"channels"`
	LockPath     string             `json:"lock_path"`
	SocketPath   string             `json:"socket_path"`
	PID          int                `json:"pid"`
	StartedAt    time.Time          `json:"started_at"`
	Watcher      bool               `json:"watcher"`
	Hotplug      bool               `json:"hotplug"`
	LastSeq      uint64             `json:"last_seq"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}

// VolumeRequest addresses one route.
type VolumeRequest struct {
	Domain string `json:"domain"`
	Input  int    `json:"input"`
	Output int    `json:"output"`
}

// VolumeResponse carries the current route volume.
type VolumeResponse struct {
	Volume int `json:"volume"`
}

// SetVolumeRequest writes one route volume. Linked analog outputs receive
// the same value server-side.
type SetVolumeRequest struct {
	Domain string `json:"domain"`
	Input  int    `json:"input"`
	Output int    `json:"output"`
	Volume int    `json:"volume"`
}

// SetVolumeResponse acknowledges a volume write.
type SetVolumeResponse struct{}

// RoutesRequest dumps route volumes, optionally for one domain.
type RoutesRequest struct {
	Domain string `json:"domain"`
}

// RouteVolume is one route cell of the matrix.
type RouteVolume struct {
	Domain string `json:"domain"`
	Input  int    `json:"input"`
	Output int    `json:"output"`
	Volume int    `json:"volume"`
}

// RoutesResponse lists route volumes in input-major order.
type RoutesResponse struct {
	Channels int           `json:"channels"`
	Routes   []RouteVolume `json:"routes"`
}

// EffectsRequest lists effect controls and their values.
type EffectsRequest struct{}

// EffectState is one effect control with its current value.
type EffectState struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	HasVolume bool     `json:"has_volume"`
	Volume    int      `json:"volume,omitempty"`
	Item      string   `json:"item,omitempty"`
	EnumItems []string `json:"enum_items,omitempty"`
}

// EffectsResponse lists effects sorted by key.
type EffectsResponse struct {
	Effects []EffectState `json:"effects"`
}

// DisableEffectsRequest zeroes all volume-capable effects.
type DisableEffectsRequest struct{}

// DisableEffectsResponse acknowledges the mutation.
type DisableEffectsResponse struct{}

// MuteMostDigitalRequest zeroes all digital routes except the diagonal.
type MuteMostDigitalRequest struct{}

// MuteMostDigitalResponse acknowledges the mutation.
type MuteMostDigitalResponse struct{}

// MuteAnalogRequest zeroes every analog route.
type MuteAnalogRequest struct{}

// MuteAnalogResponse acknowledges the mutation.
type MuteAnalogResponse struct{}

// PassThroughRequest raises the analog diagonal to full volume.
type PassThroughRequest struct{}

// PassThroughResponse acknowledges the mutation.
type PassThroughResponse struct{}

// MasterRequest reads the master volume.
type MasterRequest struct{}

// MasterResponse carries the rounded mean of the digital diagonal.
type MasterResponse struct {
	Volume int `json:"volume"`
}

// SetMasterRequest writes every digital diagonal route.
type SetMasterRequest struct {
	Volume int `json:"volume"`
}

// SetMasterResponse acknowledges the mutation.
type SetMasterResponse struct{}

// LinksRequest lists the link table.
type LinksRequest struct{}

// LinkPair maps an output to the output mirroring it. Target 0 means
// unlinked, matching the preset file convention.
type LinkPair struct {
	Output int `json:"output"`
	Target int `json:"target"`
}

// LinksResponse lists every output in ascending order.
type LinksResponse struct {
	Links []LinkPair `json:"links"`
}

// SetLinkRequest links an output to a target output.
type SetLinkRequest struct {
	Output int `json:"output"`
	Target int `json:"target"`
}

// SetLinkResponse acknowledges the link edit.
type SetLinkResponse struct{}

// ClearLinkRequest unlinks an output.
type ClearLinkRequest struct {
	Output int `json:"output"`
}

// ClearLinkResponse acknowledges the link edit.
type ClearLinkResponse struct{}

// SavePresetRequest snapshots device state into a preset file.
type SavePresetRequest struct {
	Path string `json:"path"`
}

// SavePresetResponse reports the resolved file path.
type SavePresetResponse struct {
	Path string `json:"path"`
}

// LoadPresetRequest applies a preset file to the device.
type LoadPresetRequest struct {
	Path string `json:"path"`
}

// LoadPresetResponse reports the resolved file path.
type LoadPresetResponse struct {
	Path string `json:"path"`
}

// EventsRequest polls the change journal for entries after Since.
type EventsRequest struct {
	Since uint64 `json:"since"`
}

// RouteRef names one changed route.
type RouteRef struct {
	Domain string `json:"domain"`
	Input  int    `json:"input"`
	Output int    `json:"output"`
}

// ChangeEvent is one journal entry.
type ChangeEvent struct {
	Seq    uint64     `json:"seq"`
	Origin string     `json:"origin"`
	At     time.Time  `json:"at"`
	Routes []RouteRef `json:"routes"`
}

// EventsResponse returns journal entries and the newest sequence number.
type EventsResponse struct {
	Events  []ChangeEvent `json:"events"`
	LastSeq uint64        `json:"last_seq"`
}
