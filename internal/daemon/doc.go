// Package daemon coordinates the long-running cashcue process and its system
// integration points.
//
// It wires configuration, the session manager, history storage, the HTTP API,
// the inbox watcher, and the udev camera monitor into a single lifecycle with
// flock-based locking to prevent multiple instances.
//
// Keep orchestration logic here: detection and confirmation live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
