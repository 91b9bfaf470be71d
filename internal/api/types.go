package api

import (
	"time"

	"cashcue/internal/confirm"
	"cashcue/internal/events"
	"cashcue/internal/history"
	"cashcue/internal/session"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionView describes the active session.
type SessionView struct {
	ID        string   `json:"id"`
	Mode      string   `json:"mode"`
	Source    string   `json:"source,omitempty"`
	StartedAt string   `json:"startedAt"`
	Rounds    int      `json:"rounds"`
	Window    []string `json:"window"`
}

// ResultView describes a confirmed denomination.
type ResultView struct {
	Denomination string `json:"denomination"`
	Label        string `json:"label"`
	Support      int    `json:"support"`
	Window       int    `json:"window"`
	Unanimous    bool   `json:"unanimous"`
}

// LastView describes the most recent confirmation.
type LastView struct {
	SessionID   string     `json:"sessionId"`
	Mode        string     `json:"mode"`
	Source      string     `json:"source,omitempty"`
	Result      ResultView `json:"result"`
	ConfirmedAt string     `json:"confirmedAt"`
}

// AnnouncementView describes the announcer's dedup state.
type AnnouncementView struct {
	Active   string `json:"active,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Speaking bool   `json:"speaking"`
}

// CameraView describes the camera condition.
type CameraView struct {
	Available bool   `json:"available"`
	LastError string `json:"lastError,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Live         bool             `json:"live"`
	WindowSize   int              `json:"windowSize"`
	Session      *SessionView     `json:"session,omitempty"`
	Last         *LastView        `json:"last,omitempty"`
	Announcement AnnouncementView `json:"announcement"`
	Camera       CameraView       `json:"camera"`
}

// DetectResponse is returned by the burst routes.
type DetectResponse struct {
	SessionID string      `json:"sessionId"`
	Source    string      `json:"source"`
	Rounds    []string    `json:"rounds"`
	Confirmed bool        `json:"confirmed"`
	Result    *ResultView `json:"result,omitempty"`
	Announced bool        `json:"announced"`
}

// LiveResponse is returned by the live routes.
type LiveResponse struct {
	Live    bool         `json:"live"`
	Session *SessionView `json:"session,omitempty"`
}

// HistoryEntry is one persisted confirmation.
type HistoryEntry struct {
	ID           int64  `json:"id"`
	SessionID    string `json:"sessionId"`
	Mode         string `json:"mode"`
	Source       string `json:"source,omitempty"`
	Denomination string `json:"denomination"`
	Label        string `json:"label"`
	Support      int    `json:"support"`
	Window       int    `json:"window"`
	Unanimous    bool   `json:"unanimous"`
	Announced    bool   `json:"announced"`
	ConfirmedAt  string `json:"confirmedAt"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Counts  map[string]int `json:"counts,omitempty"`
}

// EventView is one hub event as streamed over the WebSocket.
type EventView struct {
	Sequence     uint64   `json:"seq"`
	Timestamp    string   `json:"ts"`
	Type         string   `json:"type"`
	SessionID    string   `json:"sessionId,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	Source       string   `json:"source,omitempty"`
	Round        int      `json:"round,omitempty"`
	Denomination string   `json:"denomination,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
	Label        string   `json:"label,omitempty"`
	Support      int      `json:"support,omitempty"`
	Window       int      `json:"window,omitempty"`
	Unanimous    bool     `json:"unanimous,omitempty"`
	Rounds       []string `json:"rounds,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromInfo converts a session snapshot.
func FromInfo(info session.Info) SessionView {
	window := info.Window
	if window == nil {
		window = []string{}
	}
	return SessionView{
		ID:        info.ID,
		Mode:      string(info.Mode),
		Source:    info.Source,
		StartedAt: formatTime(info.StartedAt),
		Rounds:    info.Rounds,
		Window:    window,
	}
}

// FromResult converts a confirmation result.
func FromResult(r confirm.Result) ResultView {
	return ResultView{
		Denomination: r.Denomination,
		Label:        r.Label(),
		Support:      r.Support,
		Window:       r.Window,
		Unanimous:    r.Unanimous,
	}
}

// FromStatus converts a manager snapshot.
func FromStatus(st session.Status) StatusResponse {
	out := StatusResponse{
		Live:       st.Live,
		WindowSize: st.Window,
		Announcement: AnnouncementView{
			Active:   st.Announcement.Active,
			Deadline: formatTime(st.Announcement.Deadline),
			Speaking: st.Announcement.Speaking,
		},
		Camera: CameraView{Available: st.Camera.Available, LastError: st.Camera.LastError},
	}
	if st.Session != nil {
		view := FromInfo(*st.Session)
		out.Session = &view
	}
	if st.Last != nil {
		out.Last = &LastView{
			SessionID:   st.Last.SessionID,
			Mode:        string(st.Last.Mode),
			Source:      st.Last.Source,
			Result:      FromResult(st.Last.Result),
			ConfirmedAt: formatTime(st.Last.ConfirmedAt),
		}
	}
	return out
}

// FromBurst converts a burst outcome.
func FromBurst(res session.BurstResult) DetectResponse {
	rounds := res.Rounds
	if rounds == nil {
		rounds = []string{}
	}
	out := DetectResponse{
		SessionID: res.SessionID,
		Source:    res.Source,
		Rounds:    rounds,
		Confirmed: res.Confirmed,
		Announced: res.Announced,
	}
	if res.Result != nil {
		view := FromResult(*res.Result)
		out.Result = &view
	}
	return out
}

// FromEntry converts a history row.
func FromEntry(e history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:           e.ID,
		SessionID:    e.SessionID,
		Mode:         e.Mode,
		Source:       e.Source,
		Denomination: e.Denomination,
		Label:        e.Label(),
		Support:      e.Support,
		Window:       e.Window,
		Unanimous:    e.Unanimous,
		Announced:    e.Announced,
		ConfirmedAt:  formatTime(e.ConfirmedAt),
	}
}

// FromEvent converts a hub event.
func FromEvent(evt events.Event) EventView {
	return EventView{
		Sequence:     evt.Sequence,
		Timestamp:    formatTime(evt.Timestamp),
		Type:         string(evt.Type),
		SessionID:    evt.SessionID,
		Mode:         evt.Mode,
		Source:       evt.Source,
		Round:        evt.Round,
		Denomination: evt.Denomination,
		Confidence:   evt.Confidence,
		Label:        evt.Label,
		Support:      evt.Support,
		Window:       evt.Window,
		Unanimous:    evt.Unanimous,
		Rounds:       evt.Rounds,
		Message:      evt.Message,
	}
}
