package drivers

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// BoschEMS is a second engine management system variant: same PGNs as
// EMS, but its TorqueSpeedControl1 frame leaves override_control_mode
// unavailable rather than forcing SpeedControl, matching this vendor's
// firmware. The daemon registers either EMS or BoschEMS for the engine
// role, never both, selected by configuration.
type BoschEMS struct {
	destination uint8
	source      uint8
}

// NewBoschEMS constructs the Bosch EMS variant bound to da.
func NewBoschEMS(da, sa uint8) *BoschEMS {
	return &BoschEMS{destination: da, source: sa}
}

func (e *BoschEMS) Vendor() string     { return "bosch" }
func (e *BoschEMS) Product() string    { return "ems" }
func (e *BoschEMS) Destination() uint8 { return e.destination }
func (e *BoschEMS) Source() uint8      { return e.source }

// SpeedControl builds a TorqueSpeedControl1 frame requesting rpm,
// leaving the override control mode and priority bytes unavailable.
func (e *BoschEMS) SpeedControl(rpm uint16) j1939.Frame {
	pdu := []byte{
		j1939.NotAvailable,
		j1939.NotAvailable,
		j1939.NotAvailable,
		byte(rpm), byte(rpm >> 8),
		j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable,
	}
	return j1939.Encode(j1939.PGNTorqueSpeedControl1, 3, e.source, e.destination, pdu)
}

// BrakeControl builds the shutdown-via-brake-controller frame, as EMS.
func (e *BoschEMS) BrakeControl() j1939.Frame {
	pdu := []byte{j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, 0x02, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable}
	return j1939.Encode(j1939.PGNElectronicBrakeController1, 3, e.source, e.destination, pdu)
}

func (e *BoschEMS) Setup(ctx *Context, tx *[]j1939.Frame) error { return nil }

func (e *BoschEMS) Teardown(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx, e.BrakeControl())
	return nil
}

func (e *BoschEMS) TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error) {
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

func (e *BoschEMS) Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error {
	req, ok := cmd.(GovernorRequest)
	if !ok {
		return nil
	}
	if req.State == GovernorStopping {
		*tx = append(*tx, e.BrakeControl())
	} else {
		*tx = append(*tx, e.SpeedControl(req.RPM))
	}
	ctx.SetSent(req)
	return nil
}

func (e *BoschEMS) Tick(ctx *Context, tx *[]j1939.Frame) error { return nil }

func (e *BoschEMS) RxTimeout() time.Duration { return emsRxTimeout }
