package datastore

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreSaveAndGetSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	session := &SessionMeta{
		ID:            "session-1",
		StartedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Interface:     "can0",
		CaptureFile:   "session-1.cap",
		SoftwareBuild: "v1.2.3",
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.GetSession("session-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Interface != "can0" || got.CaptureFile != "session-1.cap" || got.SoftwareBuild != "v1.2.3" {
		t.Errorf("GetSession returned unexpected session: %+v", got)
	}
}

func TestSQLiteStoreGetSessionNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if _, err := store.GetSession("missing"); err == nil {
		t.Fatal("expected an error for an unknown session id")
	}
}

func TestSQLiteStoreListSessionsOrdersByStartedAtDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	older := &SessionMeta{ID: "older", StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Interface: "can0", SoftwareBuild: "v1"}
	newer := &SessionMeta{ID: "newer", StartedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Interface: "can0", SoftwareBuild: "v1"}
	if err := store.SaveSession(older); err != nil {
		t.Fatalf("SaveSession(older): %v", err)
	}
	if err := store.SaveSession(newer); err != nil {
		t.Fatalf("SaveSession(newer): %v", err)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "newer" || sessions[1].ID != "older" {
		t.Errorf("ListSessions order = [%s, %s], want [newer, older]", sessions[0].ID, sessions[1].ID)
	}
}
