package datastore

import "time"

// Store is the persistence surface for session metadata and historical
// signal snapshots. None of it is required for core correctness — the
// runtime operates entirely from internal/state when no datastore is
// configured.
type Store interface {
	// Session metadata.
	SaveSession(session *SessionMeta) error
	GetSession(id string) (*SessionMeta, error)
	ListSessions() ([]*SessionMeta, error)

	// Snapshot history.
	SaveSnapshot(sessionID string, snap *Snapshot) error
	GetSnapshots(sessionID string, start, end time.Time) ([]*Snapshot, error)
	GetLatestSnapshot(sessionID string) (*Snapshot, error)

	Close() error
}

// SessionMeta describes one runtime session: when it started, which
// network interface it bound, and where its capture file (if any)
// lives on disk.
type SessionMeta struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Interface     string    `json:"interface"`
	CaptureFile   string    `json:"capture_file,omitempty"`
	SoftwareBuild string    `json:"software_build"`
}

// Snapshot is a point-in-time view of the machine state: engine speed,
// governor state, hydraulic lock and, when known, location.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	EngineRPM uint16    `json:"engine_rpm"`
	Governor  string    `json:"governor_state"`
	Locked    bool      `json:"locked"`
	Location  *Location `json:"location,omitempty"`
}

// Location mirrors one decoded GNSS fix.
type Location struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
}
