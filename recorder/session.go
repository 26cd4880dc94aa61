package recorder

import (
	"encoding/binary"
	"math"
	"sync"

	"voxpad/audio"
	"voxpad/encoder"
)

// MinRecordingBytes is the smallest recording worth uploading. Anything
// shorter is treated as an accidental tap and discarded locally.
const MinRecordingBytes = 4096

type State int

const (
	StateInactive State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "inactive"
	}
}

// LevelFunc receives the RMS level of each incoming chunk, normalized
// to [0,1]. It is called from the capture thread and must not block.
type LevelFunc func(rms float64)

// Session owns one recording: the capture device callback, the ordered
// chunk list, and the inactive/recording/paused transitions. Chunks are
// appended in callback-arrival order and never mutated afterwards.
// Finish stops the device before reading the chunk list, so no chunk
// can arrive after finalize.
type Session struct {
	capture audio.CaptureDevice
	onLevel LevelFunc

	mu         sync.Mutex
	state      State
	chunks     [][]byte
	totalBytes int
}

func NewSession(capture audio.CaptureDevice, onLevel LevelFunc) *Session {
	return &Session{capture: capture, onLevel: onLevel}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) TotalBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBytes
}

// Duration reports the recorded audio length based on collected bytes.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.totalBytes/2) / float64(encoder.SampleRate)
}

// Start moves Inactive -> Recording: clears the chunk list, installs
// the data callback and starts the capture device. Starting an already
// active session is rejected. A device failure surfaces as a
// CapabilityError and leaves the session Inactive.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateInactive {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.chunks = nil
	s.totalBytes = 0
	s.mu.Unlock()

	s.capture.SetCallback(s.onData)
	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		return &CapabilityError{Err: err}
	}

	s.mu.Lock()
	s.state = StateRecording
	s.mu.Unlock()
	return nil
}

// Pause suspends chunk collection without losing buffered chunks. The
// capture device stays reserved. No-op unless Recording.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return false
	}
	s.state = StatePaused
	return true
}

// Resume continues chunk collection. No-op unless Paused.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return false
	}
	s.state = StateRecording
	return true
}

// Finish stops the capture device, releases the callback and returns
// the in-order concatenation of every chunk collected while Recording.
// A recording below MinRecordingBytes is discarded with a
// ValidationError. Either way the session ends Inactive.
func (s *Session) Finish() ([]byte, error) {
	s.mu.Lock()
	if s.state == StateInactive {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.state = StateInactive
	s.mu.Unlock()

	// Stop before reading chunks: the device delivers no further data
	// once Stop returns, so the slice below is final.
	s.capture.Stop()
	s.capture.ClearCallback()

	s.mu.Lock()
	chunks := s.chunks
	total := s.totalBytes
	s.chunks = nil
	s.totalBytes = 0
	s.mu.Unlock()

	if total < MinRecordingBytes {
		return nil, &ValidationError{Bytes: total, Min: MinRecordingBytes}
	}

	pcm := make([]byte, 0, total)
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}
	return pcm, nil
}

// Abort discards the session without producing audio.
func (s *Session) Abort() {
	s.mu.Lock()
	active := s.state != StateInactive
	s.state = StateInactive
	s.chunks = nil
	s.totalBytes = 0
	s.mu.Unlock()

	if active {
		s.capture.Stop()
		s.capture.ClearCallback()
	}
}

func (s *Session) onData(data []byte, _ uint32) {
	if len(data) == 0 {
		return
	}

	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	s.chunks = append(s.chunks, chunk)
	s.totalBytes += len(chunk)
	s.mu.Unlock()

	if s.onLevel != nil && len(data) > 1 {
		s.onLevel(rmsLevel(data))
	}
}

func rmsLevel(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
