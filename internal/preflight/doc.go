// Package preflight validates the runtime environment before detection
// starts: writable data directories, a readable camera device, a reachable
// inference backend, and the external binaries the camera and speech paths
// shell out to. Both the daemon and "cashcue status" render these results.
package preflight
