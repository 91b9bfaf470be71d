// Package events buffers pipeline events for the presentation layer.
//
// The Hub keeps a bounded ring of sequenced events and lets readers poll or
// block for anything newer than the last sequence they saw. The WebSocket
// endpoint, status command, and notification sink all read from it.
package events
