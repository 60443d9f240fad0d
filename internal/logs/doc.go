// Package logs tails the daemon log file for the CLI.
//
// LastLines reads a bounded trailing window, Follow polls for appended
// lines, and both tolerate a log file that does not exist yet. ftumixd
// appends to a single file without rotating, so an offset cursor is all
// the state a follower needs.
package logs
