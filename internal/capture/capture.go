// Package capture records and replays the raw J1939 frame stream of a
// runtime session, independent of any decoded signal state.
package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// Frame is one captured CAN frame, timestamped at the moment it was
// observed on the bus.
type Frame struct {
	Timestamp   time.Time `json:"timestamp"`
	PGN         uint32    `json:"pgn"`
	Priority    uint8     `json:"priority"`
	Source      uint8     `json:"source"`
	Destination uint8     `json:"destination"`
	Payload     [8]byte   `json:"payload"`
}

func frameOf(f j1939.Frame, at time.Time) Frame {
	var payload [8]byte
	copy(payload[:], f.Payload)
	return Frame{
		Timestamp:   at,
		PGN:         f.Id.PGN,
		Priority:    f.Id.Priority,
		Source:      f.Id.Source,
		Destination: f.Id.Destination,
		Payload:     payload,
	}
}

// Wire reconstructs the j1939.Frame this capture record represents.
func (f Frame) Wire() j1939.Frame {
	return j1939.Frame{
		Id: j1939.Id{
			Priority:    f.Priority,
			PGN:         f.PGN,
			Source:      f.Source,
			Destination: f.Destination,
		},
		Payload: append([]byte(nil), f.Payload[:]...),
	}
}

// Header is written once at the start of a capture file, before any
// frame records.
type Header struct {
	StartedAt time.Time `json:"started_at"`
	Interface string    `json:"interface"`
	SessionID string    `json:"session_id"`
}

// Recorder streams captured frames to a newline-delimited JSON file as
// they arrive, so a long-running session never needs to hold its
// entire frame history in memory.
type Recorder struct {
	file    *os.File
	encoder *json.Encoder
	count   int
}

// NewRecorder creates filename (and any missing parent directory) and
// writes the session header as the file's first line.
func NewRecorder(filename string, header Header) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("capture: create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("capture: create %s: %w", filename, err)
	}

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("capture: write header: %w", err)
	}

	return &Recorder{file: file, encoder: encoder}, nil
}

// Record appends one frame, stamped with the current time.
func (r *Recorder) Record(f j1939.Frame) error {
	if err := r.encoder.Encode(frameOf(f, time.Now())); err != nil {
		return fmt.Errorf("capture: write frame: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of frames recorded so far.
func (r *Recorder) Count() int {
	return r.count
}

// Close flushes and closes the underlying file.
func (r *Recorder) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("capture: close: %w", err)
	}
	return nil
}
