package model

import "time"

// SessionRecord is a journal entry for one monitoring session.
type SessionRecord struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"deviceId"`
	StartedAt  time.Time  `json:"startedAt"`
	StoppedAt  *time.Time `json:"stoppedAt"`
	AlertCount int        `json:"alertCount"`
}

// AlertRecord is a journal entry for one alert raised during a session.
type AlertRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// AlertFilter narrows alert queries.
type AlertFilter struct {
	SessionID string
	After     time.Time
	Before    time.Time
	Limit     int
	Offset    int
}

// JournalStats summarizes the journal.
type JournalStats struct {
	TotalSessions int            `json:"total_sessions"`
	TotalAlerts   int            `json:"total_alerts"`
	TotalBytes    int64          `json:"total_size_bytes"`
	PerDevice     map[string]int `json:"per_device"`
}
