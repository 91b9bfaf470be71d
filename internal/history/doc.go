// Package history persists confirmed denominations in SQLite.
//
// Only decisions are stored, never individual rounds. The store applies the
// embedded migrations on open and is safe for concurrent use through
// database/sql.
package history
