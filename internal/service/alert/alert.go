// Package alert announces drowsiness alerts.
package alert

import (
	"io"
	"time"

	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
)

// Publisher receives alert events.
type Publisher interface {
	Publish(event model.Event)
}

// Service turns a raised alert into an alert event carrying the sound and
// visual flags of the session's alert mode.
type Service struct {
	publisher Publisher
	bell      io.Writer
	logger    *logger.Logger
}

// NewService creates the alert service. When bell is not nil, sound alerts
// also write the terminal bell to it.
func NewService(publisher Publisher, bell io.Writer, logger *logger.Logger) *Service {
	return &Service{publisher: publisher, bell: bell, logger: logger}
}

// Alert publishes the alert event for sessionID.
func (s *Service) Alert(sessionID string, settings model.Settings) {
	data := model.AlertData{
		Sound:  settings.AlertMode.PlaysSound(),
		Visual: settings.AlertMode.ShowsVisual(),
		Volume: settings.Volume(),
	}
	s.publisher.Publish(model.Event{Type: model.EventAlert, SessionID: sessionID, Time: time.Now(), Data: data})

	if data.Sound && data.Volume > 0 && s.bell != nil {
		if _, err := s.bell.Write([]byte{'\a'}); err != nil {
			s.logger.Warning("Alert bell failed: %v", err)
		}
	}
}
