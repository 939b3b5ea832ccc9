package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidSettings = errors.New("invalid settings")

	ErrTimeout   = errors.New("detection timed out")
	ErrTransport = errors.New("detection transport failure")
	ErrServer    = errors.New("detection server error")
)

// CameraErrorKind classifies camera acquisition failures.
type CameraErrorKind string

const (
	CameraPermissionDenied CameraErrorKind = "permission_denied"
	CameraNotFound         CameraErrorKind = "not_found"
	CameraBusy             CameraErrorKind = "busy"
)

// CameraError is returned when a camera cannot be acquired.
type CameraError struct {
	Kind     CameraErrorKind
	DeviceID string
	Err      error
}

func (e *CameraError) Error() string {
	msg := fmt.Sprintf("camera %q: %s", e.DeviceID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CameraError) Unwrap() error { return e.Err }

// DetectionErrorKind classifies failed detection round trips.
type DetectionErrorKind string

const (
	DetectionTimeout     DetectionErrorKind = "timeout"
	DetectionTransport   DetectionErrorKind = "transport"
	DetectionServerError DetectionErrorKind = "server_error"
)

// DetectionError is returned by the detection client.
// Status is set only for DetectionServerError.
type DetectionError struct {
	Kind   DetectionErrorKind
	Status int
	Err    error
}

func (e *DetectionError) Error() string {
	switch e.Kind {
	case DetectionServerError:
		return fmt.Sprintf("detection server error: status %d", e.Status)
	case DetectionTimeout:
		return "detection timed out"
	}
	if e.Err != nil {
		return "detection transport failure: " + e.Err.Error()
	}
	return "detection transport failure"
}

func (e *DetectionError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *DetectionError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == DetectionTimeout
	case ErrTransport:
		return e.Kind == DetectionTransport
	case ErrServer:
		return e.Kind == DetectionServerError
	}
	return false
}
