package network

import (
	"strings"
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// respondToRequest answers a PGN 0xEA00 request addressed to this
// authority's source address (or broadcast) for one of the standard
// identification PGNs this ECU claims to produce. Unknown PGNs are
// silently ignored, matching the rest of the J1939 network: a request
// for a PGN nobody produces simply goes unanswered.
func (a *Authority) respondToRequest(f j1939.Frame) {
	if f.Id.Destination != j1939.Broadcast && f.Id.Destination != a.identity.SourceAddress {
		return
	}
	pdu := f.Payload
	if len(pdu) < 3 {
		return
	}
	requested := uint32(pdu[0]) | uint32(pdu[1])<<8 | uint32(pdu[2])<<16

	var reply j1939.Frame
	switch requested {
	case j1939.PGNAddressClaimed:
		reply = a.addressClaimedFrame()
	case j1939.PGNSoftwareIdentification:
		reply = a.softwareIdentificationFrame()
	case j1939.PGNComponentIdentification:
		reply = a.componentIdentificationFrame()
	case j1939.PGNVehicleIdentification:
		reply = a.vehicleIdentificationFrame()
	case j1939.PGNTimeDate:
		reply = a.timeDateFrame()
	default:
		return
	}
	a.transmit([]j1939.Frame{reply})
}

// addressClaimedFrame builds a minimal NAME-bearing address claim. Only
// the first NAME byte (the low byte of the identity number) is set, to
// the source address; the remaining NAME bits are zeroed, which is
// sufficient for a fixed, non-contending source address.
func (a *Authority) addressClaimedFrame() j1939.Frame {
	name := make([]byte, 8)
	name[0] = byte(a.identity.SourceAddress)
	return j1939.Encode(j1939.PGNAddressClaimed, 6, a.identity.SourceAddress, j1939.Broadcast, name).Normalized()
}

func (a *Authority) softwareIdentificationFrame() j1939.Frame {
	payload := []byte{1} // one field follows
	payload = append(payload, []byte(a.identity.SoftwareVersion)...)
	payload = append(payload, '*')
	return j1939.Encode(j1939.PGNSoftwareIdentification, 6, a.identity.SourceAddress, j1939.Broadcast, payload).Normalized()
}

func (a *Authority) componentIdentificationFrame() j1939.Frame {
	// Make/Model/SerialNumber/UnitNumber, '*'-delimited per J1939-71.
	fields := []string{a.identity.ComponentID, "", "", ""}
	payload := []byte(strings.Join(fields, "*") + "*")
	return j1939.Encode(j1939.PGNComponentIdentification, 6, a.identity.SourceAddress, j1939.Broadcast, payload).Normalized()
}

func (a *Authority) vehicleIdentificationFrame() j1939.Frame {
	payload := []byte(a.identity.VehicleID + "*")
	return j1939.Encode(j1939.PGNVehicleIdentification, 6, a.identity.SourceAddress, j1939.Broadcast, payload).Normalized()
}

// timeDateFrame reports the current UTC time/date from the host clock,
// per SAE J1939-71's Time/Date PGN: seconds (0.25 s/bit), minutes,
// hours, month, day (0.25 day/bit), and year offset from 1985. This is
// the host wall clock, not a GNSS fix; a GNSS-equipped authority may
// still be a more accurate clock source, but this ECU always has an
// answer to give rather than reporting unavailable.
func (a *Authority) timeDateFrame() j1939.Frame {
	now := time.Now().UTC()
	payload := []byte{
		byte(now.Second() * 4),
		byte(now.Minute()),
		byte(now.Hour()),
		byte(now.Month()),
		byte(now.Day() * 4),
		byte(now.Year() - 1985),
		j1939.NotAvailable,
		j1939.NotAvailable,
	}
	return j1939.Encode(j1939.PGNTimeDate, 6, a.identity.SourceAddress, j1939.Broadcast, payload).Normalized()
}
