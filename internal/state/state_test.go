package state

import "testing"

func TestDrainTargetsEmptiesQueue(t *testing.T) {
	s := New()
	s.PushTarget(Target{X: 1, Y: 0, Z: 0.4})
	s.PushTarget(Target{X: 1, Y: 0, Z: -0.2})

	n := s.DrainTargets()
	if n != 2 {
		t.Fatalf("drained %d targets, want 2", n)
	}
	if _, ok := s.PopTarget(); ok {
		t.Fatal("expected empty queue after drain")
	}
}

func TestPopTargetFIFOOrder(t *testing.T) {
	s := New()
	s.PushTarget(Target{X: 1, Y: 0, Z: 0.1})
	s.PushTarget(Target{X: 2, Y: 0, Z: 0.2})

	first, ok := s.PopTarget()
	if !ok || first.Z != 0.1 {
		t.Fatalf("first = %+v, want Z=0.1", first)
	}
	second, ok := s.PopTarget()
	if !ok || second.Z != 0.2 {
		t.Fatalf("second = %+v, want Z=0.2", second)
	}
	if _, ok := s.PopTarget(); ok {
		t.Fatal("expected queue empty after draining both targets")
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	s := New()
	if _, ok := s.Encoder("boom"); ok {
		t.Fatal("expected no encoder sample before any write")
	}

	s.SetEncoder("boom", EncoderSample{Position: 1500, Speed: 3})
	got, ok := s.Encoder("boom")
	if !ok {
		t.Fatal("expected encoder sample after write")
	}
	if got.Position != 1500 || got.Speed != 3 {
		t.Errorf("got %+v", got)
	}
}
