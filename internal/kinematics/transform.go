package kinematics

import "math"

// Vec3 is a 3-space vector/point in the machine's world frame.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns the component-wise difference.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Quaternion is a unit quaternion (w, x, y, z) representing a rotation.
type Quaternion struct {
	W, X, Y, Z float64
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quaternion{W: 1}

// FromAxisAngle builds a quaternion rotating by angle radians about the
// given axis.
func FromAxisAngle(axis Axis, angle float64) Quaternion {
	half := angle / 2
	s := math.Sin(half)
	c := math.Cos(half)
	switch axis {
	case AxisZ:
		return Quaternion{W: c, Z: s}
	default: // AxisY
		return Quaternion{W: c, Y: s}
	}
}

// Mul returns the Hamilton product q*o: the rotation that applies o
// first and then q, which is the order Compose uses (parent.Mul(local)).
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Rotate applies the quaternion's rotation to v.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	// v' = q * v * q^-1, using the standard quaternion-vector sandwich.
	qv := Quaternion{X: v.X, Y: v.Y, Z: v.Z}
	inv := Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	r := q.Mul(qv).Mul(inv)
	return Vec3{r.X, r.Y, r.Z}
}

// AngleTo returns the shortest rotation angle (radians) between two
// quaternions, used by the attachment pitch-match tolerance check.
func (q Quaternion) AngleTo(o Quaternion) float64 {
	dot := q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return 2 * math.Acos(math.Abs(dot))
}

// RotationAbout is a convenience wrapper over FromAxisAngle, kept
// separate so actor.go can stay agnostic of the quaternion math.
func RotationAbout(axis Axis, angle float64) Quaternion {
	return FromAxisAngle(axis, angle)
}

// Transform is a rigid pose: a world-space translation and rotation.
type Transform struct {
	Translation Vec3
	Rotation    Quaternion
}

// Identity returns the pose with no translation or rotation.
func Identity() Transform {
	return Transform{Rotation: IdentityQuat}
}

// Compose returns the pose of `local` expressed in world space, given
// that `t` is the world-space pose of local's parent frame.
func (t Transform) Compose(local Transform) Transform {
	worldTranslation := t.Translation.Add(t.Rotation.Rotate(local.Translation))
	worldRotation := t.Rotation.Mul(local.Rotation)
	return Transform{Translation: worldTranslation, Rotation: worldRotation}
}

// WrapToPi normalizes an angle into (-pi, +pi].
func WrapToPi(radians float64) float64 {
	for radians > math.Pi {
		radians -= 2 * math.Pi
	}
	for radians <= -math.Pi {
		radians += 2 * math.Pi
	}
	return radians
}
