// Package session drives detection rounds and owns the confirmation state.
//
// A Session is one live feed or one burst over a single image, identified by
// a UUID. Starting a new session, clearing, or stopping supersedes the current
// one, and any round that completes for a superseded session is discarded
// without touching the confirmer, the announcer, or the event hub.
//
// Manager is the single entry point for the API, the CLI, the inbox watcher,
// and the camera monitor. It serializes their calls with a mutex while the
// slow parts of a round (frame capture and inference) run unlocked. Live
// sessions use a Loop that waits out the round interval between rounds and
// stops as soon as its context is cancelled.
package session
