package drivers

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// EncoderState is the closed set of fault states a Kübler-brand rotary
// encoder reports in its process data frame.
type EncoderState uint16

const (
	EncoderNoError            EncoderState = 0x0000
	EncoderGeneralSensorError EncoderState = 0xEE00
	EncoderInvalidMUR         EncoderState = 0xEE01
	EncoderInvalidTMR         EncoderState = 0xEE02
	EncoderInvalidPreset      EncoderState = 0xEE03
	EncoderOther              EncoderState = 0xEEFF
)

func (s EncoderState) String() string {
	switch s {
	case EncoderNoError:
		return "no error"
	case EncoderGeneralSensorError:
		return "general error in sensor"
	case EncoderInvalidMUR:
		return "invalid MUR value"
	case EncoderInvalidTMR:
		return "invalid TMR value"
	case EncoderInvalidPreset:
		return "invalid preset value"
	default:
		return "unknown error"
	}
}

func encoderStateFromWire(v uint16) EncoderState {
	switch v {
	case 0x0000, 0xEE00, 0xEE01, 0xEE02, 0xEE03:
		return EncoderState(v)
	default:
		return EncoderOther
	}
}

// EncoderReading is the decoded process data frame: absolute position
// (in encoder units, typically millirad), speed, and an optional fault
// state. Position and Speed default to zero if the wire field was
// unavailable (0xFF padding); State is nil only when the state field
// itself was unavailable.
type EncoderReading struct {
	Source   uint8
	Position uint32
	Speed    uint16
	State    *EncoderState
}

// ParseEncoderReading decodes an 8-byte Kübler process-data PDU.
func ParseEncoderReading(sa uint8, pdu []byte) EncoderReading {
	r := EncoderReading{Source: sa}

	if !allUnavailable(pdu[0:4]) {
		r.Position = uint32(pdu[0]) | uint32(pdu[1])<<8 | uint32(pdu[2])<<16 | uint32(pdu[3])<<24
	}
	if !allUnavailable(pdu[4:6]) {
		r.Speed = uint16(pdu[4]) | uint16(pdu[5])<<8
	}
	if !allUnavailable(pdu[6:8]) {
		raw := uint16(pdu[6]) | uint16(pdu[7])<<8
		state := encoderStateFromWire(raw)
		r.State = &state
	}

	return r
}

// Frame encodes the reading back onto the wire, used by test fixtures
// and the simulator.
func (r EncoderReading) Frame(sa uint8) j1939.Frame {
	pdu := make([]byte, 8)
	pdu[0] = byte(r.Position)
	pdu[1] = byte(r.Position >> 8)
	pdu[2] = byte(r.Position >> 16)
	pdu[3] = byte(r.Position >> 24)
	pdu[4] = byte(r.Speed)
	pdu[5] = byte(r.Speed >> 8)
	if r.State != nil {
		pdu[6] = byte(*r.State)
		pdu[7] = byte(uint16(*r.State) >> 8)
	}
	return j1939.Encode(j1939.PGNEncoderProcessData, 6, sa, j1939.Broadcast, pdu)
}

func allUnavailable(b []byte) bool {
	for _, v := range b {
		if v != j1939.NotAvailable {
			return false
		}
	}
	return true
}

// Encoder is the Kübler rotary encoder driver: one per joint
// (frame/boom/arm/attachment), identified by its source address.
type Encoder struct {
	destination uint8 // the encoder's own address
	source      uint8 // this authority's address
}

// NewEncoder constructs an encoder driver bound to the unit at da.
func NewEncoder(da, sa uint8) *Encoder {
	return &Encoder{destination: da, source: sa}
}

func (e *Encoder) Vendor() string     { return "kübler" }
func (e *Encoder) Product() string    { return "encoder" }
func (e *Encoder) Destination() uint8 { return e.destination }
func (e *Encoder) Source() uint8      { return e.source }

func (e *Encoder) Setup(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx, j1939.Request(e.destination, e.source, j1939.PGNAddressClaimed))
	return nil
}

func (e *Encoder) Teardown(ctx *Context, tx *[]j1939.Frame) error { return nil }

const encoderRxTimeout = 500 * time.Millisecond

func (e *Encoder) TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error) {
	if frame.Id.Source != e.destination {
		return FrameIgnored, nil
	}

	switch frame.Id.PGN {
	case j1939.PGNAddressClaimed:
		return FrameParsed, nil

	case j1939.PGNEncoderProcessData:
		reading := ParseEncoderReading(frame.Id.Source, frame.Payload)
		ctx.MarkReceived(reading)
		send(reading)
		return SignalQueued, nil
	}

	return FrameIgnored, nil
}

func (e *Encoder) Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error { return nil }
func (e *Encoder) Tick(ctx *Context, tx *[]j1939.Frame) error                { return nil }
func (e *Encoder) RxTimeout() time.Duration                                 { return encoderRxTimeout }
