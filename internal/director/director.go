// Package director implements the excavator's top-level motion
// authority: mode switching (Disabled/Supervised/Autonomous), the
// per-actuator linear profile that turns a joint-angle error into a
// commanded actuator value, and the strictly-ordered emergency stop
// sequence.
package director

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fenwick-robotics/vcu/internal/kinematics"
	"github.com/fenwick-robotics/vcu/internal/state"
)

// Mode is the closed set of director operating modes.
type Mode int

const (
	// Disabled: no actuator commands are issued regardless of targets.
	Disabled Mode = iota
	// Supervised: an operator directly issues Change commands; the
	// director only relays them.
	Supervised
	// Autonomous: the director drains the target queue and drives
	// actuators itself via the linear profile.
	Autonomous
)

func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case Supervised:
		return "supervised"
	case Autonomous:
		return "autonomous"
	default:
		return "unknown"
	}
}

// LinearProfile maps a joint-angle error (radians) to a signed
// actuator power command, via
//
//	P(error) = sign(error) * clamp(|error|*scale + offset, 0, powerMax)
//
// Scale and Offset are tuned per actuator; PowerMax bounds the command
// to the actuator's safe range.
type LinearProfile struct {
	Scale    float64
	Offset   float64
	PowerMax float64
}

// Command computes the actuator power for the given angle error.
func (p LinearProfile) Command(errorRad float64) int16 {
	if errorRad == 0 {
		return 0
	}
	magnitude := math.Abs(errorRad)*p.Scale + p.Offset
	if magnitude < 0 {
		magnitude = 0
	}
	if magnitude > p.PowerMax {
		magnitude = p.PowerMax
	}
	if errorRad < 0 {
		magnitude = -magnitude
	}
	return int16(magnitude)
}

// ActuatorBinding pairs a named joint with the actuator channel and
// linear profile that drives it.
type ActuatorBinding struct {
	Joint   string
	Channel int
	Profile LinearProfile
}

// Director owns the current mode, the actuator bindings for
// frame/boom/arm/attachment, and the link lengths the inverse
// kinematics solver needs to turn a Cartesian target into joint angles.
type Director struct {
	mode     Mode
	bindings []ActuatorBinding
	state    *state.State
	boomLen  float64
	armLen   float64
}

// New constructs a director in Disabled mode. boomLen and armLen are
// the fixed link lengths kinematics.Solve needs to resolve a Cartesian
// target into slew/boom/arm angles.
func New(st *state.State, bindings []ActuatorBinding, boomLen, armLen float64) *Director {
	return &Director{mode: Disabled, bindings: bindings, state: st, boomLen: boomLen, armLen: armLen}
}

// JointAngle is one joint's last-known angle together with when it was
// observed, so the safety policy can detect a stalled encoder feed.
type JointAngle struct {
	Angle     float64
	UpdatedAt time.Time
}

// EncoderStaleness is the maximum quiet period an encoder reading may
// go without updating while the director is Autonomous before the
// safety policy treats it as failed and forces an emergency stop.
const EncoderStaleness = 200 * time.Millisecond

// CheckEncoderStaleness reports an error, and drives the emergency stop
// sequence, if any joint bound to this director has gone more than
// EncoderStaleness without a fresh reading while in Autonomous mode. It
// is a no-op outside Autonomous, since Supervised/Disabled operation
// does not depend on closed-loop encoder feedback.
func (d *Director) CheckEncoderStaleness(current map[string]JointAngle, actions EStopActions) error {
	if d.mode != Autonomous {
		return nil
	}
	now := time.Now()
	for _, b := range d.bindings {
		reading, ok := current[b.Joint]
		if !ok || now.Sub(reading.UpdatedAt) > EncoderStaleness {
			err := fmt.Errorf("director: joint %q encoder stale beyond %s", b.Joint, EncoderStaleness)
			if stopErr := d.CommandEmergencyStop(actions); stopErr != nil {
				return stopErr
			}
			return err
		}
	}
	return nil
}

// Mode returns the current operating mode.
func (d *Director) Mode() Mode { return d.mode }

// SetMode transitions to a new mode. Leaving Autonomous drains any
// queued targets so a later re-entry into Autonomous starts from an
// empty queue rather than resuming stale waypoints.
func (d *Director) SetMode(m Mode) {
	if d.mode == Autonomous && m != Autonomous {
		d.state.DrainTargets()
	}
	d.mode = m
}

// ActuatorChange is one channel→value command the director hands to
// the hydraulic driver.
type ActuatorChange struct {
	Channel int
	Value   int16
}

// jointAngleDeadband is how close every bound joint must be to its IK
// solution before the director considers the target settled and stops
// driving actuators, rather than hunting around the setpoint forever.
const jointAngleDeadband = 0.01 // radians

// Step advances the director by one tick: in Autonomous mode it solves
// the active Cartesian target via the inverse kinematics package and
// emits actuator commands closing each bound joint's angle error. Once
// every bound joint is within jointAngleDeadband of its solved angle,
// Step reports the target settled by returning an explicit stop
// (zero-value) command for every binding rather than continuing to
// hunt around the setpoint. An unreachable target is logged and
// skipped rather than treated as fatal — the caller is expected to
// pop the next queued target on the following tick. In Disabled mode
// Step emits nothing; in Supervised mode the caller issues commands
// directly and Step is a no-op.
func (d *Director) Step(current map[string]JointAngle, active *state.Target) []ActuatorChange {
	if d.mode != Autonomous || active == nil {
		return nil
	}

	target := kinematics.Vec3{X: active.X, Y: active.Y, Z: active.Z}
	sol, err := kinematics.Solve(target, d.boomLen, d.armLen)
	if err != nil {
		log.Printf("director: skipping unreachable target %+v: %v", active, err)
		return nil
	}
	desired := map[string]float64{"frame": sol.Slew, "boom": sol.Boom, "arm": sol.Arm}

	settled := true
	var changes []ActuatorChange
	for _, b := range d.bindings {
		want, ok := desired[b.Joint]
		if !ok {
			continue
		}
		reading, ok := current[b.Joint]
		if !ok {
			continue
		}
		errorRad := kinematics.WrapToPi(want - reading.Angle)
		if math.Abs(errorRad) > jointAngleDeadband {
			settled = false
		}
		changes = append(changes, ActuatorChange{Channel: b.Channel, Value: b.Profile.Command(errorRad)})
	}

	if settled {
		stops := make([]ActuatorChange, len(changes))
		for i, c := range changes {
			stops[i] = ActuatorChange{Channel: c.Channel, Value: 0}
		}
		return stops
	}
	return changes
}
