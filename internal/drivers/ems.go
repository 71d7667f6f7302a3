package drivers

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// GovernorState is the closed set of requests the governor can hand to
// an EMS driver for the next speed-control frame.
type GovernorState int

const (
	GovernorNoRequest GovernorState = iota
	GovernorStarting
	GovernorRequesting
	GovernorStopping
)

// GovernorRequest pairs a state with the RPM to request, if any.
type GovernorRequest struct {
	State GovernorState
	RPM   uint16
}

// Governor derives the next engine request from the last observed RPM
// and the caller's desired RPM, per the fixed thresholds: a stalled
// engine (0 rpm) reports NoRequest, a cranking engine (0 < rpm < 500)
// reports Starting, and anything at or above 500 rpm reports Requesting.
// This is a pure function with no driver state.
func Governor(observedRPM uint16, desiredRPM uint16) GovernorRequest {
	switch {
	case observedRPM == 0:
		return GovernorRequest{State: GovernorNoRequest, RPM: desiredRPM}
	case observedRPM < 500:
		return GovernorRequest{State: GovernorStarting, RPM: desiredRPM}
	default:
		return GovernorRequest{State: GovernorRequesting, RPM: desiredRPM}
	}
}

// StarterMode is the SPN 1675 closed enumeration carried in byte 7 of
// Electronic Engine Controller 1.
type StarterMode uint8

const (
	StarterNotRequested StarterMode = iota
	StarterActiveGearNotEngaged
	StarterActiveGearEngaged
	StarterFinished
	StarterInhibited
	StarterUnavailable StarterMode = 0xFF
)

func starterModeFromNibble(n uint8) StarterMode {
	switch n & 0x0F {
	case 0:
		return StarterNotRequested
	case 1:
		return StarterActiveGearNotEngaged
	case 2:
		return StarterActiveGearEngaged
	case 3:
		return StarterFinished
	case 4, 5, 6, 7:
		return StarterInhibited
	default:
		return StarterUnavailable
	}
}

// EngineController1 is the decoded Electronic Engine Controller 1
// (PGN 0xF004) message per SAE J1939-71: SPN 899 torque mode, SPN 512
// driver demand, SPN 513 actual torque, SPN 190 engine speed (0.125
// rpm/bit), SPN 1675 starter mode.
type EngineController1 struct {
	TorqueMode   uint8
	DriverDemand *int8 // percent, offset -125
	ActualEngine *int8 // percent, offset -125
	RPM          *uint16
	StarterMode  *StarterMode
}

// ParseEngineController1 decodes an 8-byte EEC1 PDU.
func ParseEngineController1(pdu []byte) EngineController1 {
	var m EngineController1
	m.TorqueMode = pdu[0] & 0x0F

	if pdu[1] != j1939.NotAvailable {
		v := int8(int(pdu[1]) - 125)
		m.DriverDemand = &v
	}
	if pdu[2] != j1939.NotAvailable {
		v := int8(int(pdu[2]) - 125)
		m.ActualEngine = &v
	}
	if !allUnavailable(pdu[3:5]) {
		raw := uint16(pdu[3]) | uint16(pdu[4])<<8
		rpm := raw / 8 // 0.125 rpm/bit => rpm = raw * 0.125 = raw/8
		m.RPM = &rpm
	}
	if len(pdu) > 7 && pdu[7] != j1939.NotAvailable {
		mode := starterModeFromNibble(pdu[7])
		m.StarterMode = &mode
	}

	return m
}

// Frame encodes an EEC1 message for test fixtures and the simulator.
func (m EngineController1) Frame(sa uint8) j1939.Frame {
	pdu := make([]byte, 8)
	for i := range pdu {
		pdu[i] = j1939.NotAvailable
	}
	pdu[0] = m.TorqueMode & 0x0F
	if m.DriverDemand != nil {
		pdu[1] = byte(int(*m.DriverDemand) + 125)
	}
	if m.ActualEngine != nil {
		pdu[2] = byte(int(*m.ActualEngine) + 125)
	}
	if m.RPM != nil {
		raw := *m.RPM * 8
		pdu[3] = byte(raw)
		pdu[4] = byte(raw >> 8)
	}
	if m.StarterMode != nil {
		pdu[7] = byte(*m.StarterMode)
	}
	return j1939.Encode(j1939.PGNElectronicEngineController1, 3, sa, j1939.Broadcast, pdu)
}

// EMS drives the primary engine management system: torque/speed
// control requests and brake-controller shutdown, with RPM/starter
// state tracked from the engine's own broadcast.
type EMS struct {
	destination uint8
	source      uint8
}

// NewEMS constructs the primary EMS driver bound to da.
func NewEMS(da, sa uint8) *EMS {
	return &EMS{destination: da, source: sa}
}

func (e *EMS) Vendor() string     { return "j1939" }
func (e *EMS) Product() string    { return "ems" }
func (e *EMS) Destination() uint8 { return e.destination }
func (e *EMS) Source() uint8      { return e.source }

// SpeedControl builds a TorqueSpeedControl1 frame requesting rpm.
func (e *EMS) SpeedControl(rpm uint16) j1939.Frame {
	pdu := []byte{
		0x00,                 // override control mode: speed control
		0x00,                 // speed control condition
		0x00,                 // control mode priority: high
		byte(rpm), byte(rpm >> 8),
		j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable,
	}
	return j1939.Encode(j1939.PGNTorqueSpeedControl1, 3, e.source, e.destination, pdu)
}

// BrakeControl builds an ElectronicBrakeController1 frame carrying the
// auxiliary engine shutdown switch, used to stop the engine.
func (e *EMS) BrakeControl() j1939.Frame {
	pdu := []byte{j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, 0x02, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable}
	return j1939.Encode(j1939.PGNElectronicBrakeController1, 3, e.source, e.destination, pdu)
}

const emsRxTimeout = 500 * time.Millisecond

func (e *EMS) Setup(ctx *Context, tx *[]j1939.Frame) error { return nil }

func (e *EMS) Teardown(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx, e.BrakeControl())
	return nil
}

func (e *EMS) TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error) {
	if frame.Id.Source != e.destination {
		return FrameIgnored, nil
	}
	if frame.Id.PGN != j1939.PGNElectronicEngineController1 {
		return FrameIgnored, nil
	}

	msg := ParseEngineController1(frame.Payload)
	ctx.MarkReceived(msg)
	send(msg)
	return SignalQueued, nil
}

func (e *EMS) Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error {
	req, ok := cmd.(GovernorRequest)
	if !ok {
		return nil
	}
	e.emit(ctx, tx, req)
	return nil
}

func (e *EMS) Tick(ctx *Context, tx *[]j1939.Frame) error {
	return nil
}

func (e *EMS) RxTimeout() time.Duration { return emsRxTimeout }

func (e *EMS) emit(ctx *Context, tx *[]j1939.Frame, req GovernorRequest) {
	switch req.State {
	case GovernorStopping:
		*tx = append(*tx, e.BrakeControl())
	default:
		*tx = append(*tx, e.SpeedControl(req.RPM))
	}
	ctx.SetSent(req)
}
