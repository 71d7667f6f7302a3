package datastore

import (
	"fmt"
	"time"
)

// Config describes how to reach the two backing stores. Either half
// may be left zero-valued; NewStore substitutes a no-op for whichever
// backend isn't configured, since persisted state is never required
// for core correctness.
type Config struct {
	SQLitePath     string
	InfluxDBURL    string
	InfluxDBOrg    string
	InfluxDBToken  string
	InfluxDBBucket string
}

// CombinedStore fronts a relational store for session metadata and a
// time-series store for snapshot history, presenting both as a single
// Store.
type CombinedStore struct {
	sqlite *SQLiteStore
	influx *InfluxDBStore
}

// NewStore builds a CombinedStore from config.
func NewStore(config *Config) (Store, error) {
	store := &CombinedStore{}

	if config.SQLitePath != "" {
		sqlite, err := NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("datastore: new store: %w", err)
		}
		store.sqlite = sqlite
	}

	if config.InfluxDBURL != "" {
		influx, err := NewInfluxDBStore(config.InfluxDBURL, config.InfluxDBToken, config.InfluxDBOrg, config.InfluxDBBucket)
		if err != nil {
			if store.sqlite != nil {
				store.sqlite.Close()
			}
			return nil, fmt.Errorf("datastore: new store: %w", err)
		}
		store.influx = influx
	}

	return store, nil
}

// Session metadata methods delegate to the relational store.

func (s *CombinedStore) SaveSession(session *SessionMeta) error {
	if s.sqlite == nil {
		return nil
	}
	return s.sqlite.SaveSession(session)
}

func (s *CombinedStore) GetSession(id string) (*SessionMeta, error) {
	if s.sqlite == nil {
		return nil, fmt.Errorf("datastore: no session store configured")
	}
	return s.sqlite.GetSession(id)
}

func (s *CombinedStore) ListSessions() ([]*SessionMeta, error) {
	if s.sqlite == nil {
		return nil, nil
	}
	return s.sqlite.ListSessions()
}

// Snapshot history methods delegate to the time-series store.

func (s *CombinedStore) SaveSnapshot(sessionID string, snap *Snapshot) error {
	if s.influx == nil {
		return nil
	}
	return s.influx.SaveSnapshot(sessionID, snap)
}

func (s *CombinedStore) GetSnapshots(sessionID string, start, end time.Time) ([]*Snapshot, error) {
	if s.influx == nil {
		return nil, nil
	}
	return s.influx.GetSnapshots(sessionID, start, end)
}

func (s *CombinedStore) GetLatestSnapshot(sessionID string) (*Snapshot, error) {
	if s.influx == nil {
		return nil, fmt.Errorf("datastore: no snapshot store configured")
	}
	return s.influx.GetLatestSnapshot(sessionID)
}

// Close releases both backends, returning the first error encountered.
func (s *CombinedStore) Close() error {
	var sqliteErr, influxErr error
	if s.sqlite != nil {
		sqliteErr = s.sqlite.Close()
	}
	if s.influx != nil {
		influxErr = s.influx.Close()
	}
	if sqliteErr != nil {
		return sqliteErr
	}
	return influxErr
}
