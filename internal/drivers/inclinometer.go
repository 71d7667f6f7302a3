package drivers

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// InclinometerReading is the decoded tilt frame: pitch and roll in
// milliradians, unavailable (0xFFFF) left as nil.
type InclinometerReading struct {
	Pitch *int16
	Roll  *int16
}

// ParseInclinometerReading decodes an 8-byte tilt PDU (pitch at bytes
// 0-1, roll at bytes 2-3, little-endian, remaining bytes reserved).
func ParseInclinometerReading(pdu []byte) InclinometerReading {
	var r InclinometerReading
	if !allUnavailable(pdu[0:2]) {
		v := int16(uint16(pdu[0]) | uint16(pdu[1])<<8)
		r.Pitch = &v
	}
	if !allUnavailable(pdu[2:4]) {
		v := int16(uint16(pdu[2]) | uint16(pdu[3])<<8)
		r.Roll = &v
	}
	return r
}

// Inclinometer is a second Vecraft-brand unit sharing the ident/reboot
// and status channel mixin with the HCU.
type Inclinometer struct {
	destination uint8
	source      uint8
}

// NewInclinometer constructs an inclinometer driver bound to da.
func NewInclinometer(da, sa uint8) *Inclinometer {
	return &Inclinometer{destination: da, source: sa}
}

func (i *Inclinometer) Vendor() string     { return "vecraft" }
func (i *Inclinometer) Product() string    { return "inclinometer" }
func (i *Inclinometer) Destination() uint8 { return i.destination }
func (i *Inclinometer) Source() uint8      { return i.source }

func (i *Inclinometer) Setup(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx, j1939.Request(i.destination, i.source, j1939.PGNAddressClaimed))
	return nil
}

func (i *Inclinometer) Teardown(ctx *Context, tx *[]j1939.Frame) error { return nil }

const inclinometerRxTimeout = 500 * time.Millisecond

func (i *Inclinometer) TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error) {
	if frame.Id.Source != i.destination {
		return FrameIgnored, nil
	}

	switch frame.Id.PGN {
	case j1939.PGNVecraftStatus:
		status := ParseVecraftStatus(frame.Payload)
		ctx.MarkReceived(status)
		return FrameParsed, status.State.AsError()

	case j1939.PGNProprietaryConfigurableMsg1, j1939.PGNAddressClaimed:
		return FrameParsed, nil

	case j1939.PGNInclinometerTilt:
		reading := ParseInclinometerReading(frame.Payload)
		ctx.MarkReceived(reading)
		send(reading)
		return SignalQueued, nil

	default:
		return FrameIgnored, nil
	}
}

func (i *Inclinometer) Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error {
	cfg, ok := cmd.(VecraftConfig)
	if !ok {
		return nil
	}
	*tx = append(*tx, cfg.Frame(j1939.PGNProprietaryConfigurableMsg1, i.destination, i.source))
	ctx.SetSent(cfg)
	return nil
}

func (i *Inclinometer) Tick(ctx *Context, tx *[]j1939.Frame) error { return nil }

func (i *Inclinometer) RxTimeout() time.Duration { return inclinometerRxTimeout }
