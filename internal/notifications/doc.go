// Package notifications pushes confirmations and source failures to ntfy.
//
// The ntfy implementation posts to the topic URL configured in config.toml
// and degrades to a no-op when no topic is set. Per-category switches let
// users keep only error alerts. EventSink adapts the service to the events
// hub so the session layer never talks to ntfy directly.
package notifications
