package dto

import "time"

// BufferedSnapshot holds an alert frame before it is flushed to disk.
// Data is nil when the frame could not be decoded or the buffer was full.
type BufferedSnapshot struct {
	Timestamp time.Time
	SessionID string
	Data      []byte
}
