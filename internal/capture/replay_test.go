package capture

import (
	"testing"
	"time"
)

func TestReplayerDeliversFramesInOrder(t *testing.T) {
	base := time.Now()
	frames := []Frame{
		{Timestamp: base, PGN: 1},
		{Timestamp: base.Add(5 * time.Millisecond), PGN: 2},
		{Timestamp: base.Add(10 * time.Millisecond), PGN: 3},
	}

	replayer := NewReplayer(frames)
	replayer.SetSpeed(100) // fast-forward so the test stays quick

	var got []uint32
	if err := replayer.Play(func(f Frame) { got = append(got, f.PGN) }); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("Play delivered %v, want [1 2 3]", got)
	}
	if replayer.Progress() != 1.0 {
		t.Errorf("Progress() = %v, want 1.0 after full playback", replayer.Progress())
	}
}

func TestReplayerRejectsEmptySession(t *testing.T) {
	replayer := NewReplayer(nil)
	if err := replayer.Play(func(Frame) {}); err == nil {
		t.Fatal("expected an error replaying an empty session")
	}
}

func TestReplayerSetSpeedRejectsNonPositive(t *testing.T) {
	replayer := NewReplayer([]Frame{{Timestamp: time.Now()}})
	replayer.SetSpeed(-1)
	if replayer.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0 after rejecting a non-positive value", replayer.Speed)
	}
}
