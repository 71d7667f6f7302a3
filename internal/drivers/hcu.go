package drivers

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// ActuatorCount is the number of independently addressable actuator
// channels the HCU exposes across its two banks.
const ActuatorCount = 8

const bankSlots = 4

// ActuatorFrame carries up to 8 actuator setpoints, one slot per
// channel. A nil slot means "unavailable" and is wire-encoded as
// 0xFF,0xFF, never as zero — zero is a valid commanded value.
type ActuatorFrame struct {
	Values [ActuatorCount]*int16
}

// bankPGN returns the PGN that carries the 4-slot bank containing idx.
func bankPGN(idx int) uint32 {
	if idx < bankSlots {
		return j1939.PGNActuatorBank1
	}
	return j1939.PGNActuatorBank2
}

// Frames encodes the populated banks of the actuator frame into wire
// frames, skipping banks where every slot is unavailable.
func (a ActuatorFrame) Frames(da, sa uint8) []j1939.Frame {
	var frames []j1939.Frame
	banks := [2]uint32{j1939.PGNActuatorBank1, j1939.PGNActuatorBank2}

	for bank, pgn := range banks {
		stride := bank * bankSlots
		slots := a.Values[stride : stride+bankSlots]

		anySet := false
		for _, v := range slots {
			if v != nil {
				anySet = true
				break
			}
		}
		if !anySet {
			continue
		}

		pdu := make([]byte, 8)
		for i, v := range slots {
			if v == nil {
				pdu[i*2] = j1939.NotAvailable
				pdu[i*2+1] = j1939.NotAvailable
				continue
			}
			u := uint16(*v)
			pdu[i*2] = byte(u)
			pdu[i*2+1] = byte(u >> 8)
		}

		frames = append(frames, j1939.Encode(pgn, 3, sa, da, pdu))
	}

	return frames
}

// ParseActuatorFrame decodes one bank's worth of actuator values from a
// wire frame, leaving the opposite bank's slots nil.
func ParseActuatorFrame(f j1939.Frame) ActuatorFrame {
	var out ActuatorFrame
	stride := 0
	if f.Id.PGN == j1939.PGNActuatorBank2 {
		stride = bankSlots
	}

	for i := 0; i < bankSlots; i++ {
		lo, hi := f.Payload[i*2], f.Payload[i*2+1]
		if lo == j1939.NotAvailable && hi == j1939.NotAvailable {
			continue
		}
		v := int16(uint16(lo) | uint16(hi)<<8)
		out.Values[stride+i] = &v
	}
	return out
}

// MotionConfig carries the HCU's lock and reset flags. A nil field
// leaves that aspect of the unit unchanged.
type MotionConfig struct {
	Locked *bool
	Reset  *bool
}

// Frame encodes the motion config as a ProprietarilyConfigurableMessage3
// PDU: 'Z','C' magic, byte 2 unused, byte 3 = locked (0=locked,
// 1=unlocked, 0xFF=unchanged), byte 4 = reset (1=reset, 0=no, 0xFF=unchanged).
func (m MotionConfig) Frame(da, sa uint8) j1939.Frame {
	pdu := []byte{'Z', 'C', j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable}
	if m.Locked != nil {
		if *m.Locked {
			pdu[3] = 0x00
		} else {
			pdu[3] = 0x01
		}
	}
	if m.Reset != nil {
		if *m.Reset {
			pdu[4] = 0x01
		} else {
			pdu[4] = 0x00
		}
	}
	return j1939.Encode(j1939.PGNProprietaryConfigurableMsg3, 3, sa, da, pdu)
}

// ParseMotionConfig decodes a ProprietarilyConfigurableMessage3 PDU. It
// returns ok=false if the magic bytes don't match.
func ParseMotionConfig(pdu []byte) (cfg MotionConfig, ok bool) {
	if len(pdu) < 5 || pdu[0] != 'Z' || pdu[1] != 'C' {
		return MotionConfig{}, false
	}
	if pdu[3] != j1939.NotAvailable {
		v := pdu[3] == 0x00
		cfg.Locked = &v
	}
	if pdu[4] != j1939.NotAvailable {
		v := pdu[4] == 0x01
		cfg.Reset = &v
	}
	return cfg, true
}

func boolPtr(b bool) *bool { return &b }

// HCU drives the hydraulic control unit: two actuator banks, the
// motion lock/reset configuration channel, and the shared Vecraft
// ident/reboot/status channel.
type HCU struct {
	destination uint8
	source      uint8

	pending ActuatorFrame
	hasCmd  bool
}

// NewHCU constructs an HCU driver bound to da (the unit's address) and
// sa (this authority's own source address).
func NewHCU(da, sa uint8) *HCU {
	return &HCU{destination: da, source: sa}
}

func (h *HCU) Vendor() string      { return "vecraft" }
func (h *HCU) Product() string     { return "hcu" }
func (h *HCU) Destination() uint8  { return h.destination }
func (h *HCU) Source() uint8       { return h.source }

// Lock enqueues a motion-lock frame.
func (h *HCU) Lock() j1939.Frame {
	return MotionConfig{Locked: boolPtr(true)}.Frame(h.destination, h.source)
}

// Unlock enqueues a motion-unlock frame.
func (h *HCU) Unlock() j1939.Frame {
	return MotionConfig{Locked: boolPtr(false)}.Frame(h.destination, h.source)
}

// MotionReset enqueues a motion-reset frame.
func (h *HCU) MotionReset() j1939.Frame {
	return MotionConfig{Reset: boolPtr(true)}.Frame(h.destination, h.source)
}

// SetIdent toggles the unit's identification LED.
func (h *HCU) SetIdent(on bool) j1939.Frame {
	return VecraftConfig{IdentOn: &on}.Frame(j1939.PGNProprietaryConfigurableMsg1, h.destination, h.source)
}

// Reboot commands a hardware reboot.
func (h *HCU) Reboot() j1939.Frame {
	return VecraftConfig{Reboot: true}.Frame(j1939.PGNProprietaryConfigurableMsg1, h.destination, h.source)
}

// DriveStraight drives both track actuators (channels 2 and 3) at the
// same value.
func (h *HCU) DriveStraight(value int16) []j1939.Frame {
	return h.ActuatorCommand(map[int]int16{2: value, 3: value})
}

// ActuatorCommand builds the wire frames for the given channel→value
// changes, leaving every other channel unavailable.
func (h *HCU) ActuatorCommand(changes map[int]int16) []j1939.Frame {
	var frame ActuatorFrame
	for ch, v := range changes {
		val := v
		frame.Values[ch] = &val
	}
	return frame.Frames(h.destination, h.source)
}

func (h *HCU) Setup(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx,
		h.MotionReset(),
		h.SetIdent(true),
		h.SetIdent(false),
		j1939.Request(h.destination, h.source, j1939.PGNAddressClaimed),
		j1939.Request(h.destination, h.source, j1939.PGNSoftwareIdentification),
		j1939.Request(h.destination, h.source, j1939.PGNComponentIdentification),
		j1939.Request(h.destination, h.source, j1939.PGNVehicleIdentification),
		j1939.Request(h.destination, h.source, j1939.PGNTimeDate),
	)
	return nil
}

func (h *HCU) Teardown(ctx *Context, tx *[]j1939.Frame) error {
	*tx = append(*tx, h.MotionReset())
	return nil
}

const hcuRxTimeout = 500 * time.Millisecond

func (h *HCU) TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error) {
	if !belongsTo(h, frame.Id) {
		return FrameIgnored, nil
	}

	switch frame.Id.PGN {
	case j1939.PGNProprietaryConfigurableMsg3, j1939.PGNProprietaryConfigurableMsg1,
		j1939.PGNActuatorBank1, j1939.PGNActuatorBank2:
		return FrameParsed, nil

	case j1939.PGNVecraftStatus:
		if frame.Id.Source != h.destination {
			return FrameIgnored, nil
		}
		status := ParseVecraftStatus(frame.Payload)
		ctx.MarkReceived(status)
		if err := status.State.AsError(); err != nil {
			return FrameParsed, err
		}
		return FrameParsed, nil
	}

	if ctx.IsRxTimeout(hcuRxTimeout) {
		return FrameIgnored, &Error{Kind: KindMessageTimeout}
	}
	return FrameIgnored, nil
}

func (h *HCU) Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error {
	switch v := cmd.(type) {
	case ActuatorFrame:
		*tx = append(*tx, v.Frames(h.destination, h.source)...)
		ctx.SetSent(v)
	case MotionConfig:
		*tx = append(*tx, v.Frame(h.destination, h.source))
		ctx.SetSent(v)
	}
	return nil
}

func (h *HCU) Tick(ctx *Context, tx *[]j1939.Frame) error {
	if !h.hasCmd {
		return nil
	}
	frames := h.pending.Frames(h.destination, h.source)
	*tx = append(*tx, frames...)
	ctx.SetSent(h.pending)
	return nil
}

// SetPending stashes the actuator frame the scheduler's next Tick
// should resend, mirroring the original's per-tick motion resend.
func (h *HCU) SetPending(frame ActuatorFrame) {
	h.pending = frame
	h.hasCmd = true
}

func (h *HCU) RxTimeout() time.Duration { return hcuRxTimeout }
