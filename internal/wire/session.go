package wire

import (
	"encoding/binary"
	"math"
)

// maxSessionName is the truncation limit for a session's UTF-8 name.
const maxSessionName = 64

// SessionFlags is the set of capabilities a connecting client declares.
type SessionFlags struct {
	Stream   bool
	Control  bool
	Command  bool
	Failsafe bool
}

func (f SessionFlags) encode() byte {
	var b byte
	if f.Stream {
		b |= 1 << 0
	}
	if f.Control {
		b |= 1 << 1
	}
	if f.Command {
		b |= 1 << 2
	}
	if f.Failsafe {
		b |= 1 << 3
	}
	return b
}

func decodeSessionFlags(b byte) SessionFlags {
	return SessionFlags{
		Stream:   b&(1<<0) != 0,
		Control:  b&(1<<1) != 0,
		Command:  b&(1<<2) != 0,
		Failsafe: b&(1<<3) != 0,
	}
}

// Session is the negotiated state of one connected client: its
// declared capabilities and display name.
type Session struct {
	Flags SessionFlags
	Name  string
}

// EncodeSession builds the MessageSession payload: one flags byte
// followed by the UTF-8 name, truncated to maxSessionName bytes.
func EncodeSession(s Session) []byte {
	name := []byte(s.Name)
	if len(name) > maxSessionName {
		name = name[:maxSessionName]
	}
	payload := make([]byte, 0, 1+len(name))
	payload = append(payload, s.Flags.encode())
	payload = append(payload, name...)
	return payload
}

// DecodeSession parses a MessageSession payload.
func DecodeSession(payload []byte) Session {
	if len(payload) == 0 {
		return Session{}
	}
	flags := decodeSessionFlags(payload[0])
	name := payload[1:]
	if len(name) > maxSessionName {
		name = name[:maxSessionName]
	}
	return Session{Flags: flags, Name: string(name)}
}

// CanSubmitControl reports whether this session may submit motion
// objects (MessageMotion); callers return UnauthorizedControl otherwise.
func (s Session) CanSubmitControl() bool { return s.Flags.Control }

// CanSubmitCommand reports whether this session may submit command
// objects (MessageControl); callers return UnauthorizedCommand otherwise.
func (s Session) CanSubmitCommand() bool { return s.Flags.Command }

// Instance identifies the running unit to a newly connected session.
type Instance struct {
	ID      string
	Version string
	Serial  string
}

// EncodeInstance builds the MessageInstance payload: three '*'-
// delimited UTF-8 fields, matching the J1939 identification string
// convention this codebase otherwise follows.
func EncodeInstance(inst Instance) []byte {
	return []byte(inst.ID + "*" + inst.Version + "*" + inst.Serial + "*")
}

// DecodeInstance parses a MessageInstance payload built by EncodeInstance.
func DecodeInstance(payload []byte) Instance {
	fields := splitStar(string(payload))
	inst := Instance{}
	if len(fields) > 0 {
		inst.ID = fields[0]
	}
	if len(fields) > 1 {
		inst.Version = fields[1]
	}
	if len(fields) > 2 {
		inst.Serial = fields[2]
	}
	return inst
}

func splitStar(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '*' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

// EncodeEcho builds a 4-byte MessageEcho payload.
func EncodeEcho(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeEcho parses a 4-byte MessageEcho payload.
func DecodeEcho(payload []byte) (uint32, bool) {
	if len(payload) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(payload), true
}

// MotionKind tags one case of the Motion sum type: StopAll, ResumeAll,
// ResetAll, StraightDrive(value), or Change(updates).
type MotionKind uint8

const (
	MotionStopAll MotionKind = iota
	MotionResumeAll
	MotionResetAll
	MotionStraightDrive
	MotionChange
)

// ActuatorUpdate is one {actuator, value} pair of a MotionChange.
type ActuatorUpdate struct {
	Actuator uint8
	Value    int16
}

// Motion is the wire encoding of the Motion sum type: StopAll
// supersedes all concurrent Change updates until a ResumeAll is
// observed, per the director's safety contract.
type Motion struct {
	Kind            MotionKind
	StraightDrive   int16
	ActuatorUpdates []ActuatorUpdate
}

// EncodeMotion builds a MessageMotion payload: one kind byte, then
// kind-specific data (2 bytes for StraightDrive, or a count byte
// followed by 3-byte actuator/value pairs for Change).
func EncodeMotion(m Motion) []byte {
	switch m.Kind {
	case MotionStraightDrive:
		buf := make([]byte, 3)
		buf[0] = byte(m.Kind)
		binary.BigEndian.PutUint16(buf[1:], uint16(m.StraightDrive))
		return buf
	case MotionChange:
		buf := make([]byte, 2, 2+3*len(m.ActuatorUpdates))
		buf[0] = byte(m.Kind)
		buf[1] = byte(len(m.ActuatorUpdates))
		for _, u := range m.ActuatorUpdates {
			var v [2]byte
			binary.BigEndian.PutUint16(v[:], uint16(u.Value))
			buf = append(buf, u.Actuator, v[0], v[1])
		}
		return buf
	default:
		return []byte{byte(m.Kind)}
	}
}

// DecodeMotion parses a MessageMotion payload built by EncodeMotion.
func DecodeMotion(payload []byte) (Motion, bool) {
	if len(payload) == 0 {
		return Motion{}, false
	}
	kind := MotionKind(payload[0])
	switch kind {
	case MotionStopAll, MotionResumeAll, MotionResetAll:
		return Motion{Kind: kind}, true
	case MotionStraightDrive:
		if len(payload) != 3 {
			return Motion{}, false
		}
		return Motion{Kind: kind, StraightDrive: int16(binary.BigEndian.Uint16(payload[1:3]))}, true
	case MotionChange:
		if len(payload) < 2 {
			return Motion{}, false
		}
		count := int(payload[1])
		body := payload[2:]
		if len(body) != count*3 {
			return Motion{}, false
		}
		updates := make([]ActuatorUpdate, count)
		for i := 0; i < count; i++ {
			off := i * 3
			updates[i] = ActuatorUpdate{
				Actuator: body[off],
				Value:    int16(binary.BigEndian.Uint16(body[off+1 : off+3])),
			}
		}
		return Motion{Kind: kind, ActuatorUpdates: updates}, true
	default:
		return Motion{}, false
	}
}

// ControlKind tags one case of the Control message: a director mode
// switch, a queued IK target, or an operator-initiated emergency stop.
type ControlKind uint8

const (
	ControlSetMode ControlKind = iota
	ControlPushTarget
	ControlEmergencyStop
)

// Control carries an operator directive to the director: a mode
// transition, an IK arm-tip target to enqueue, or an emergency stop.
type Control struct {
	Kind    ControlKind
	Mode    uint8
	X, Y, Z float64
}

// EncodeControl builds a MessageControl payload. ControlPushTarget is
// fixed-width: one kind byte followed by three big-endian float64s
// (X, Y, Z).
func EncodeControl(c Control) []byte {
	switch c.Kind {
	case ControlSetMode:
		return []byte{byte(c.Kind), c.Mode}
	case ControlPushTarget:
		buf := make([]byte, 25)
		buf[0] = byte(c.Kind)
		binary.BigEndian.PutUint64(buf[1:9], math.Float64bits(c.X))
		binary.BigEndian.PutUint64(buf[9:17], math.Float64bits(c.Y))
		binary.BigEndian.PutUint64(buf[17:25], math.Float64bits(c.Z))
		return buf
	default:
		return []byte{byte(c.Kind)}
	}
}

// DecodeControl parses a MessageControl payload built by EncodeControl.
func DecodeControl(payload []byte) (Control, bool) {
	if len(payload) == 0 {
		return Control{}, false
	}
	kind := ControlKind(payload[0])
	switch kind {
	case ControlSetMode:
		if len(payload) != 2 {
			return Control{}, false
		}
		return Control{Kind: kind, Mode: payload[1]}, true
	case ControlPushTarget:
		if len(payload) != 25 {
			return Control{}, false
		}
		x := math.Float64frombits(binary.BigEndian.Uint64(payload[1:9]))
		y := math.Float64frombits(binary.BigEndian.Uint64(payload[9:17]))
		z := math.Float64frombits(binary.BigEndian.Uint64(payload[17:25]))
		return Control{Kind: kind, X: x, Y: y, Z: z}, true
	case ControlEmergencyStop:
		return Control{Kind: kind}, true
	default:
		return Control{}, false
	}
}

// EncodeRequest builds a one-byte MessageRequest payload naming the
// snapshot type being requested.
func EncodeRequest(want MessageType) []byte {
	return []byte{byte(want)}
}

// DecodeRequest parses a MessageRequest payload.
func DecodeRequest(payload []byte) (MessageType, bool) {
	if len(payload) != 1 {
		return 0, false
	}
	return MessageType(payload[0]), true
}
