package dto

import (
	"time"

	"github.com/bytedance/sonic"
)

// AlertInfo is one journal alert as shown in the alert list.
type AlertInfo struct {
	Name      string    `json:"name"`
	SessionID string    `json:"sessionId"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	HasImage  bool      `json:"hasImage"`
}

// MarshalJSON formats date and time-of-day for display.
func (a AlertInfo) MarshalJSON() ([]byte, error) {
	type Alias AlertInfo
	return sonic.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      a.Date.Format("02-01-2006"),
		TimeOfDay: a.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(a),
	})
}
