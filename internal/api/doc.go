// Package api exposes the detection manager over HTTP and WebSocket, and
// provides the client used by the cashcue CLI to talk to a running daemon.
//
// # Routes
//
//	GET  /api/status       manager snapshot
//	POST /api/detect       burst over an uploaded image (multipart "file")
//	POST /api/capture      burst over fresh camera frames
//	POST /api/live/start   begin continuous camera detection
//	POST /api/live/stop    end continuous detection
//	POST /api/clear        reset the window and the announcer
//	GET  /api/history      recent confirmations
//	GET  /api/events       WebSocket stream of hub events
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers and are built from
// internal types by the From* converters. Timestamps use RFC3339 with
// milliseconds. When a token is configured every route requires a bearer
// header; the WebSocket route also accepts it as the token query parameter
// because browsers cannot set headers on upgrade requests.
package api
