package model

import "time"

// Sample is a still image taken from the camera feed, as raw pixels.
type Sample struct {
	Data       []byte
	Width      int
	Height     int
	Type       int // OpenCV matrix type of Data
	CapturedAt time.Time
}

// Empty reports whether the sample carries no pixels.
func (s Sample) Empty() bool {
	return len(s.Data) == 0 || s.Width <= 0 || s.Height <= 0
}

// Payload is an encoded frame ready to be sent to the detection service.
type Payload struct {
	Image      string // data URL, e.g. data:image/jpeg;base64,...
	CapturedAt time.Time
}

// DetectionResult is the outcome of one detection round trip.
type DetectionResult struct {
	AlertTriggered bool
	AnnotatedImage string // empty when the service returned no processed image
}

// Device describes a camera that can be selected for capture.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
