package dto

// StartRequest optionally overrides the camera for one session.
type StartRequest struct {
	DeviceID *string `json:"deviceId,omitempty"`
}

// DevicesData lists selectable cameras.
type DevicesData struct {
	Devices  []DeviceInfo `json:"devices"`
	Selected string       `json:"selected"`
}

// DeviceInfo is a camera entry; IsDefault marks the device used when none is selected.
type DeviceInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsDefault bool   `json:"isDefault"`
}

// ErrorResponse is returned by API endpoints on failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
