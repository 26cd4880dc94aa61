package recorder

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned by Start when a recording is already
	// in progress.
	ErrSessionActive = errors.New("recording session already active")

	// ErrNotRecording is returned by Finish on an inactive session.
	ErrNotRecording = errors.New("no recording in progress")
)

// CapabilityError means the capture device could not be acquired or
// started. The user has to retry manually.
type CapabilityError struct {
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// ValidationError means the finished recording was too short to upload.
type ValidationError struct {
	Bytes int
	Min   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recording too short (%d bytes, need %d)", e.Bytes, e.Min)
}
