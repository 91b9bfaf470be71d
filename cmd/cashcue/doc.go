// Package main implements the cashcue command line.
//
// The CLI runs the detection daemon, talks to a running daemon over its
// HTTP API, and offers in-process commands (detect, live, history) that
// build the detection stack directly when no daemon is needed.
package main
