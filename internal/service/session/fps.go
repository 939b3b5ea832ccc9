package session

import (
	"math"
	"time"
)

// fpsMeter measures completed captures over windows of at least one second.
type fpsMeter struct {
	windowStart time.Time
	count       int
	value       int
}

func (m *fpsMeter) reset(now time.Time) {
	m.windowStart = now
	m.count = 0
}

// record counts one capture. It returns the new reading when a window closes.
func (m *fpsMeter) record(now time.Time) (int, bool) {
	m.count++
	elapsed := now.Sub(m.windowStart)
	if elapsed < time.Second {
		return 0, false
	}
	m.value = int(math.Round(float64(m.count) * float64(time.Second) / float64(elapsed)))
	m.reset(now)
	return m.value, true
}
