package model

import (
	"fmt"
	"time"
)

type SessionState string

const (
	SessionIdle   SessionState = "idle"
	SessionActive SessionState = "active"
)

// AlertState is the Normal/Alert sub-state of an active session.
type AlertState string

const (
	AlertNormal AlertState = "normal"
	AlertRaised AlertState = "alert"
)

// Session is the state of a monitoring session.
type Session struct {
	ID         string       `json:"id"`
	State      SessionState `json:"state"`
	StartedAt  *time.Time   `json:"startedAt"`
	AlertCount int          `json:"alertCount"`
	Alert      AlertState   `json:"alert"`
}

// FormatDuration renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
