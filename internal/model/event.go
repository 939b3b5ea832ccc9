package model

import "time"

// EventType names a UI event.
type EventType string

const (
	EventSession    EventType = "session"
	EventAlertState EventType = "alert_state"
	EventAlertCount EventType = "alert_count"
	EventFrame      EventType = "frame"
	EventStatus     EventType = "status"
	EventFPS        EventType = "fps"
	EventDuration   EventType = "duration"
	EventAlert      EventType = "alert"
	// EventSnapshot carries the full state, sent once to a new UI connection.
	EventSnapshot EventType = "snapshot"
)

// Event is a state change pushed to the UI.
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Time      time.Time   `json:"time"`
	Data      interface{} `json:"data"`
}

// StatusData is the payload of EventStatus.
type StatusData struct {
	Text      string `json:"text"`
	Transient bool   `json:"transient"`
}

// AlertData is the payload of EventAlert.
type AlertData struct {
	Sound  bool    `json:"sound"`
	Visual bool    `json:"visual"`
	Volume float64 `json:"volume"`
}
