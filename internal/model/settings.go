package model

import (
	"fmt"
	"math"
	"time"
)

// AlertMode selects how an alert is announced.
type AlertMode string

const (
	AlertModeSound  AlertMode = "sound"
	AlertModeVisual AlertMode = "visual"
	AlertModeBoth   AlertMode = "both"
)

// PlaysSound reports whether the mode includes the audible alert.
func (m AlertMode) PlaysSound() bool {
	return m == AlertModeSound || m == AlertModeBoth
}

// ShowsVisual reports whether the mode includes the visual alert.
func (m AlertMode) ShowsVisual() bool {
	return m == AlertModeVisual || m == AlertModeBoth
}

// Valid reports whether m is one of the known modes.
func (m AlertMode) Valid() bool {
	switch m {
	case AlertModeSound, AlertModeVisual, AlertModeBoth:
		return true
	}
	return false
}

// Settings is the user configuration of a monitoring session.
type Settings struct {
	Sensitivity      int       `json:"sensitivity"`
	AlertVolume      int       `json:"alertVolume"`
	AlertMode        AlertMode `json:"alertMode"`
	CadenceHz        float64   `json:"cadenceHz"`
	SelectedDeviceID string    `json:"selectedDeviceId"`
}

// DefaultSettings returns the settings used before anything has been applied.
func DefaultSettings() Settings {
	return Settings{
		Sensitivity: 5,
		AlertVolume: 7,
		AlertMode:   AlertModeBoth,
		CadenceHz:   10,
	}
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	if s.Sensitivity < 1 || s.Sensitivity > 10 {
		return fmt.Errorf("%w: sensitivity %d out of range 1..10", ErrInvalidSettings, s.Sensitivity)
	}
	if s.AlertVolume < 0 || s.AlertVolume > 10 {
		return fmt.Errorf("%w: alert volume %d out of range 0..10", ErrInvalidSettings, s.AlertVolume)
	}
	if !s.AlertMode.Valid() {
		return fmt.Errorf("%w: unknown alert mode %q", ErrInvalidSettings, s.AlertMode)
	}
	if !(s.CadenceHz > 0) {
		return fmt.Errorf("%w: cadence must be positive, got %v", ErrInvalidSettings, s.CadenceHz)
	}
	return nil
}

// MaxPeriod is the longest tick interval a cadence can produce.
const MaxPeriod = time.Duration(math.MaxInt64)

// Period is the cadence tick interval, 1000/CadenceHz milliseconds, clamped
// to [1ms, MaxPeriod].
func (s Settings) Period() time.Duration {
	p := float64(time.Second) / s.CadenceHz
	switch {
	case math.IsNaN(p) || p < float64(time.Millisecond):
		return time.Millisecond
	case p >= float64(MaxPeriod):
		return MaxPeriod
	}
	return time.Duration(p)
}

// Volume is the alert volume scaled to 0..1.
func (s Settings) Volume() float64 {
	return float64(s.AlertVolume) / 10
}
