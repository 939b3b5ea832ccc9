package session

import (
	"context"
	"time"

	"drowsyguard/internal/model"
)

// Encoder turns a raw sample into a detection payload.
type Encoder interface {
	Encode(sample model.Sample) (model.Payload, bool)
}

// Detector performs one bounded detection round trip.
type Detector interface {
	Detect(ctx context.Context, payload model.Payload, timeout time.Duration) (model.DetectionResult, error)
}

// Notifier receives UI events. Publish is called with the controller lock held
// and must not block or call back into the controller.
type Notifier interface {
	Publish(event model.Event)
}

// Alerter announces a raised alert according to the session settings. Same
// constraints as Notifier.
type Alerter interface {
	Alert(sessionID string, settings model.Settings)
}

// Recorder keeps the session journal.
type Recorder interface {
	SessionStarted(session model.Session, deviceID string)
	AlertRaised(sessionID string, at time.Time, image string)
	SessionStopped(sessionID string, at time.Time, alertCount int)
}

type nopNotifier struct{}

func (nopNotifier) Publish(model.Event) {}

type nopAlerter struct{}

func (nopAlerter) Alert(string, model.Settings) {}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(model.Session, string)  {}
func (nopRecorder) AlertRaised(string, time.Time, string) {}
func (nopRecorder) SessionStopped(string, time.Time, int) {}
