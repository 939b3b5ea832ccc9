// Package capture defines the camera contract used by the session controller.
package capture

import "drowsyguard/internal/model"

// Camera is an opened capture device.
type Camera interface {
	// CaptureSample returns the latest frame, or false when the feed has not
	// produced one yet.
	CaptureSample() (model.Sample, bool)
	// Close releases the device. Calling it more than once is safe.
	Close() error
}

// Source opens cameras and enumerates the devices it can open.
type Source interface {
	// Open acquires the camera with the given ID, or the default device when
	// deviceID is empty. Failures are *model.CameraError.
	Open(deviceID string) (Camera, error)
	// ListDevices returns the candidate cameras. An empty list is not an error.
	ListDevices() ([]model.Device, error)
}
