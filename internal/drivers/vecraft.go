package drivers

import "github.com/fenwick-robotics/vcu/internal/j1939"

// VecraftState is the closed set of ECU states a Vecraft-brand unit
// reports in its status frame.
type VecraftState uint8

const (
	VecraftNominal            VecraftState = 0x14
	VecraftIdent              VecraftState = 0x16
	VecraftFaultyGenericError VecraftState = 0xFA
	VecraftFaultyBusError     VecraftState = 0xFB
)

func (s VecraftState) String() string {
	switch s {
	case VecraftNominal:
		return "nominal"
	case VecraftIdent:
		return "ident"
	case VecraftFaultyGenericError:
		return "faulty (generic error)"
	case VecraftFaultyBusError:
		return "faulty (bus error)"
	default:
		return "unknown"
	}
}

// AsError converts a fault state into a driver Error, and nil for any
// nominal/identification state.
func (s VecraftState) AsError() error {
	switch s {
	case VecraftNominal, VecraftIdent:
		return nil
	default:
		return &Error{Kind: KindBusError}
	}
}

// VecraftStatus is the decoded status frame shared by every Vecraft ECU
// (HCU, inclinometer): current state, whether motion is locked, and
// reported uptime in seconds.
type VecraftStatus struct {
	State  VecraftState
	Locked bool
	Uptime uint32
}

// ParseVecraftStatus decodes an 8-byte Vecraft status PDU.
func ParseVecraftStatus(pdu []byte) VecraftStatus {
	var uptime uint32
	if len(pdu) >= 8 {
		uptime = uint32(pdu[4]) | uint32(pdu[5])<<8 | uint32(pdu[6])<<16 | uint32(pdu[7])<<24
	}
	locked := len(pdu) > 2 && pdu[2] != j1939.NotAvailable && pdu[2] == 0x01
	return VecraftStatus{
		State:  VecraftState(pdu[0]),
		Locked: locked,
		Uptime: uptime,
	}
}

// VecraftConfig is the ident/reboot configuration frame shared by every
// Vecraft-brand ECU. A nil IdentOn leaves the identification LED
// unchanged.
type VecraftConfig struct {
	IdentOn *bool
	Reboot  bool
}

// Frame encodes the configuration as a ProprietarilyConfigurableMessage1
// PDU addressed to da/sa, magic-prefixed 'Z','C' per the original wire
// format.
func (c VecraftConfig) Frame(pgn uint32, da, sa uint8) j1939.Frame {
	pdu := []byte{'Z', 'C', j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable, j1939.NotAvailable}
	if c.IdentOn != nil {
		if *c.IdentOn {
			pdu[2] = 0x01
		} else {
			pdu[2] = 0x00
		}
	}
	if c.Reboot {
		pdu[3] = 0x69
	}
	return j1939.Encode(pgn, 3, sa, da, pdu)
}

// ParseVecraftConfig decodes a ProprietarilyConfigurableMessage1 PDU.
func ParseVecraftConfig(pdu []byte) VecraftConfig {
	var cfg VecraftConfig
	if len(pdu) >= 4 {
		if pdu[2] != j1939.NotAvailable {
			v := pdu[2] == 0x01
			cfg.IdentOn = &v
		}
		if pdu[3] != j1939.NotAvailable && pdu[3] == 0x69 {
			cfg.Reboot = true
		}
	}
	return cfg
}
