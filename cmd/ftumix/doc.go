// Package main hosts the ftumix CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against ftumixd: route and master volumes, effect controls, link
// table edits, preset save/load, change watching, and daemon lifecycle
// management. It centralizes configuration resolution and socket discovery
// so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
