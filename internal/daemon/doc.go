// Package daemon coordinates the long-running ftumixd process and system
// integration points.
//
// It wires card discovery, the control backend, the mixer facade, and the
// hardware watcher into a single lifecycle with flock-based locking to
// prevent multiple instances racing on the same hardware. The daemon applies
// the configured startup mutations, owns the udev hotplug monitor, and emits
// dependency health summaries for status output.
//
// Keep orchestration logic here: routing and link semantics live in
// internal/mixer while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
