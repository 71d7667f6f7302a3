package kinematics

import (
	"fmt"
	"math"
)

// EncoderScale converts a raw absolute encoder reading into a joint
// angle in radians: (raw/rangeRaw)*rangeRad - offsetRad, then wrapped
// to (-pi, +pi].
func EncoderScale(raw, rangeRaw uint32, rangeRad, offsetRad float64) float64 {
	if rangeRaw == 0 {
		return WrapToPi(-offsetRad)
	}
	fraction := float64(raw) / float64(rangeRaw)
	angle := fraction*rangeRad - offsetRad
	return WrapToPi(angle)
}

// PositionTolerance and PitchTolerance bound how close an IK solution
// must land to its target to be accepted by the director.
const (
	PositionTolerance = 0.06 // meters
	PitchTolerance    = 0.02 // radians
)

// Solution is the 3-DOF analytic IK result: slew (yaw about Z), boom
// pitch, and arm pitch, all in radians.
type Solution struct {
	Slew float64
	Boom float64
	Arm  float64
}

// Solve computes the slew/boom/arm angles placing the arm-tip at
// target, given fixed boom and arm link lengths. It returns an error
// if the target lies outside the reachable annulus (d > boomLen +
// armLen, or d < |boomLen - armLen|).
//
// The slew angle is the frame-plane heading to the target (atan2). The
// boom and arm angles are solved in the vertical plane containing the
// target via the law of cosines, with an elbow-down tie-break: of the
// two valid elbow configurations, the one bending the arm downward
// relative to the boom is chosen, matching the excavator's natural
// digging posture.
func Solve(target Vec3, boomLen, armLen float64) (Solution, error) {
	slew := math.Atan2(target.Y, target.X)

	horizontal := math.Hypot(target.X, target.Y)
	vertical := target.Z
	d := math.Hypot(horizontal, vertical)

	if d > boomLen+armLen {
		return Solution{}, fmt.Errorf("kinematics: target at %.3fm exceeds reach %.3fm", d, boomLen+armLen)
	}
	if d < math.Abs(boomLen-armLen) {
		return Solution{}, fmt.Errorf("kinematics: target at %.3fm is inside minimum reach %.3fm", d, math.Abs(boomLen-armLen))
	}

	pitch := math.Atan2(vertical, horizontal)

	// Law of cosines for the angle at the boom/arm joint (elbow) and the
	// angle between the boom and the line to the target.
	cosElbow := (boomLen*boomLen + armLen*armLen - d*d) / (2 * boomLen * armLen)
	cosElbow = clamp(cosElbow, -1, 1)
	elbow := math.Acos(cosElbow)

	cosShoulder := (boomLen*boomLen + d*d - armLen*armLen) / (2 * boomLen * d)
	cosShoulder = clamp(cosShoulder, -1, 1)
	shoulder := math.Acos(cosShoulder)

	// Elbow-down: the arm bends below the boom, so the boom pitches up
	// by `shoulder` from the line-of-sight and the arm angle is the
	// supplement of the elbow angle.
	boom := pitch + shoulder
	arm := elbow - math.Pi

	return Solution{
		Slew: WrapToPi(slew),
		Boom: WrapToPi(boom),
		Arm:  WrapToPi(arm),
	}, nil
}

// WithinTolerance reports whether an end-effector position lies within
// PositionTolerance of target. It checks position only; orientation is
// checked separately by PitchWithinTolerance.
func WithinTolerance(actual, target Vec3) bool {
	return actual.Sub(target).Norm() <= PositionTolerance
}

// PitchWithinTolerance reports whether two orientations are within the
// pitch-match tolerance used for attachment alignment.
func PitchWithinTolerance(actual, target Quaternion) bool {
	return actual.AngleTo(target) <= PitchTolerance
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
