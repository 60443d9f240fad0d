// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between mixer models and lightweight wire representations. The server embeds
// the daemon; the client dials with a short timeout so CLI commands fail fast
// when the daemon is offline.
//
// Channel numbers cross the wire 1-based to match the hardware labels and the
// preset key format; the server converts to 0-based indices at the boundary.
package ipc
