package director

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fenwick-robotics/vcu/internal/state"
)

func TestLinearProfileSignAndClamp(t *testing.T) {
	p := LinearProfile{Scale: 10, Offset: 5, PowerMax: 100}

	if got := p.Command(0); got != 0 {
		t.Errorf("zero error = %d, want 0", got)
	}
	if got := p.Command(1.0); got != 15 {
		t.Errorf("positive error = %d, want 15", got)
	}
	if got := p.Command(-1.0); got != -15 {
		t.Errorf("negative error = %d, want -15", got)
	}
	if got := p.Command(20.0); got != 100 {
		t.Errorf("saturating error = %d, want 100 (clamped)", got)
	}
}

func TestSetModeDrainsTargetsOnExitFromAutonomous(t *testing.T) {
	st := state.New()
	st.PushTarget(state.Target{X: 1, Y: 0, Z: 1})

	d := New(st, nil, 1, 1)
	d.SetMode(Autonomous)
	d.SetMode(Supervised)

	if _, ok := st.PopTarget(); ok {
		t.Fatal("expected target queue drained on leaving Autonomous")
	}
}

func TestSetModeDoesNotDrainWithinAutonomous(t *testing.T) {
	st := state.New()
	st.PushTarget(state.Target{X: 1, Y: 0, Z: 1})

	d := New(st, nil, 1, 1)
	d.SetMode(Autonomous)
	d.SetMode(Autonomous)

	if _, ok := st.PopTarget(); !ok {
		t.Fatal("expected target to survive re-entering the same mode")
	}
}

func TestStepOnlyActsInAutonomous(t *testing.T) {
	st := state.New()
	bindings := []ActuatorBinding{{Joint: "boom", Channel: 1, Profile: LinearProfile{Scale: 1, PowerMax: 100}}}
	d := New(st, bindings, 1, 1)

	// boomLen=armLen=1, target (1,0,1) solves to boom=pi/2 via the law
	// of cosines, well clear of the current 0.0 rad reading.
	target := state.Target{X: 1, Y: 0, Z: 1}
	current := map[string]JointAngle{"boom": {Angle: 0.0, UpdatedAt: time.Now()}}

	if changes := d.Step(current, &target); changes != nil {
		t.Fatal("Disabled mode should not emit actuator changes")
	}

	d.SetMode(Autonomous)
	changes := d.Step(current, &target)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].Channel != 1 || changes[0].Value <= 0 {
		t.Errorf("changes[0] = %+v, want positive value on channel 1", changes[0])
	}
}

func TestStepReturnsStopOnceSettled(t *testing.T) {
	st := state.New()
	bindings := []ActuatorBinding{{Joint: "boom", Channel: 1, Profile: LinearProfile{Scale: 1, PowerMax: 100}}}
	d := New(st, bindings, 1, 1)
	d.SetMode(Autonomous)

	target := state.Target{X: 1, Y: 0, Z: 1}
	current := map[string]JointAngle{"boom": {Angle: math.Pi / 2, UpdatedAt: time.Now()}}

	changes := d.Step(current, &target)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].Value != 0 {
		t.Errorf("changes[0].Value = %d, want 0 once within the deadband", changes[0].Value)
	}
}

func TestCheckEncoderStalenessTriggersEmergencyStop(t *testing.T) {
	st := state.New()
	bindings := []ActuatorBinding{{Joint: "boom", Channel: 1, Profile: LinearProfile{Scale: 1, PowerMax: 100}}}
	d := New(st, bindings, 1, 1)
	d.SetMode(Autonomous)

	var stopped bool
	actions := EStopActions{
		HydraulicLock:  func(bool) error { return nil },
		MotionStopAll:  func() error { stopped = true; return nil },
		HydraulicBoost: func(bool) error { return nil },
		TravelAlarm:    func(bool) error { return nil },
		StrobeLight:    func(bool) error { return nil },
		EngineShutdown: func() error { return nil },
	}

	stale := map[string]JointAngle{"boom": {Angle: 0, UpdatedAt: time.Now().Add(-time.Second)}}
	if err := d.CheckEncoderStaleness(stale, actions); err == nil {
		t.Fatal("expected staleness error")
	}
	if !stopped {
		t.Fatal("expected emergency stop sequence to run")
	}
	if d.Mode() != Disabled {
		t.Error("expected director forced into Disabled after staleness-triggered stop")
	}
}

func TestCommandEmergencyStopOrdering(t *testing.T) {
	st := state.New()
	d := New(st, nil, 1, 1)
	d.SetMode(Autonomous)

	var order []string
	actions := EStopActions{
		HydraulicLock:  func(bool) error { order = append(order, "lock"); return nil },
		MotionStopAll:  func() error { order = append(order, "stop"); return nil },
		HydraulicBoost: func(bool) error { order = append(order, "boost"); return nil },
		TravelAlarm:    func(bool) error { order = append(order, "alarm"); return nil },
		StrobeLight:    func(bool) error { order = append(order, "strobe"); return nil },
		EngineShutdown: func() error { order = append(order, "shutdown"); return nil },
	}

	if err := d.CommandEmergencyStop(actions); err != nil {
		t.Fatalf("CommandEmergencyStop: %v", err)
	}

	want := []string{"lock", "stop", "boost", "alarm", "strobe", "shutdown"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, order[i], want[i])
		}
	}
	if d.Mode() != Disabled {
		t.Error("expected director forced into Disabled after emergency stop")
	}
}

func TestCommandEmergencyStopStopsAtFirstError(t *testing.T) {
	st := state.New()
	d := New(st, nil, 1, 1)

	var calledStop bool
	actions := EStopActions{
		HydraulicLock:  func(bool) error { return errors.New("bus down") },
		MotionStopAll:  func() error { calledStop = true; return nil },
		HydraulicBoost: func(bool) error { return nil },
		TravelAlarm:    func(bool) error { return nil },
		StrobeLight:    func(bool) error { return nil },
		EngineShutdown: func() error { return nil },
	}

	if err := d.CommandEmergencyStop(actions); err == nil {
		t.Fatal("expected error to propagate")
	}
	if calledStop {
		t.Fatal("expected sequence to halt before MotionStopAll")
	}
}
