package events

import "time"

// Type classifies a pipeline event.
type Type string

const (
	// TypeSessionStarted marks a new live or burst session.
	TypeSessionStarted Type = "session_started"
	// TypeSessionStopped marks a session that ended or was superseded.
	TypeSessionStopped Type = "session_stopped"
	// TypeRound reports one completed detection round.
	TypeRound Type = "round"
	// TypeConfirmed reports a confirmed denomination.
	TypeConfirmed Type = "confirmed"
	// TypeNoResult reports a burst that ended without a decision.
	TypeNoResult Type = "no_result"
	// TypeAnnounced reports that a confirmation was spoken.
	TypeAnnounced Type = "announced"
	// TypeCleared reports a user reset.
	TypeCleared Type = "cleared"
	// TypeSourceUnavailable reports a camera or file failure.
	TypeSourceUnavailable Type = "source_unavailable"
	// TypeSourceRestored reports a camera coming back.
	TypeSourceRestored Type = "source_restored"
)

// Event is one entry in the hub.
type Event struct {
	Sequence     uint64    `json:"seq"`
	Timestamp    time.Time `json:"ts"`
	Type         Type      `json:"type"`
	SessionID    string    `json:"session_id,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	Source       string    `json:"source,omitempty"`
	Round        int       `json:"round,omitempty"`
	Denomination string    `json:"denomination,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	Label        string    `json:"label,omitempty"`
	Support      int       `json:"support,omitempty"`
	Window       int       `json:"window,omitempty"`
	Unanimous    bool      `json:"unanimous,omitempty"`
	Rounds       []string  `json:"rounds,omitempty"`
	Message      string    `json:"message,omitempty"`
}
