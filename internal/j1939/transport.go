package j1939

import "fmt"

// TP.CM control byte values (SAE J1939-21).
const (
	tpCMRTS   byte = 16
	tpCMCTS   byte = 17
	tpCMEndOfMsgACK byte = 19
	tpCMAbort byte = 255
	tpCMBAM   byte = 32
)

// MaxTPPayload is the largest payload a TP.CM/TP.DT session can carry
// (255 TP.DT packets of 7 data bytes each).
const MaxTPPayload = 1785

// Session reassembles a broadcast (BAM) TP.CM/TP.DT sequence into a
// single payload. Sessions are keyed by source address; one Session
// handles exactly one in-flight transfer for that source.
type Session struct {
	source       uint8
	totalSize    int
	totalPackets uint8
	pgn          uint32
	packets      map[uint8][]byte
	done         bool
}

// NewSession starts reassembly from a TP.CM announcement (control byte
// BAM or RTS). It returns an error if the announcement is
// malformed or exceeds MaxTPPayload.
func NewSession(source uint8, cm []byte) (*Session, error) {
	if len(cm) < 8 {
		return nil, fmt.Errorf("j1939: TP.CM frame too short: %d bytes", len(cm))
	}
	if cm[0] != tpCMBAM && cm[0] != tpCMRTS {
		return nil, fmt.Errorf("j1939: unsupported TP.CM control byte 0x%02X", cm[0])
	}

	size := int(cm[1]) | int(cm[2])<<8
	if size <= 0 || size > MaxTPPayload {
		return nil, fmt.Errorf("j1939: TP.CM announced size %d out of range", size)
	}

	packets := cm[3]
	pgn := uint32(cm[5]) | uint32(cm[6])<<8 | uint32(cm[7])<<16

	return &Session{
		source:       source,
		totalSize:    size,
		totalPackets: packets,
		pgn:          pgn,
		packets:      make(map[uint8][]byte, packets),
	}, nil
}

// PGN reports the parameter group this session is assembling.
func (s *Session) PGN() uint32 { return s.pgn }

// Accept consumes one TP.DT data-transfer packet (sequence number in
// byte 0, up to 7 payload bytes following). It returns true once every
// announced packet has been received.
func (s *Session) Accept(dt []byte) (bool, error) {
	if s.done {
		return true, nil
	}
	if len(dt) < 1 {
		return false, fmt.Errorf("j1939: TP.DT frame empty")
	}
	seq := dt[0]
	if seq == 0 || seq > s.totalPackets {
		return false, fmt.Errorf("j1939: TP.DT sequence %d out of range [1,%d]", seq, s.totalPackets)
	}

	chunk := make([]byte, len(dt)-1)
	copy(chunk, dt[1:])
	s.packets[seq] = chunk

	if uint8(len(s.packets)) == s.totalPackets {
		s.done = true
		return true, nil
	}
	return false, nil
}

// Payload reassembles the received packets in sequence order and
// truncates to the size announced in the TP.CM frame. It is only valid
// once Accept has reported completion.
func (s *Session) Payload() ([]byte, error) {
	if !s.done {
		return nil, fmt.Errorf("j1939: TP session incomplete")
	}
	out := make([]byte, 0, s.totalSize)
	for seq := uint8(1); seq <= s.totalPackets; seq++ {
		chunk, ok := s.packets[seq]
		if !ok {
			return nil, fmt.Errorf("j1939: TP session missing packet %d", seq)
		}
		out = append(out, chunk...)
	}
	if len(out) > s.totalSize {
		out = out[:s.totalSize]
	}
	return out, nil
}

// SplitTPDT fragments a payload into TP.DT packets (sequence + up to 7
// bytes each, final packet padded with NotAvailable), for building a
// BAM broadcast sequence.
func SplitTPDT(payload []byte) [][]byte {
	var packets [][]byte
	for i := 0; i < len(payload); i += 7 {
		end := i + 7
		seq := uint8(i/7) + 1
		chunk := make([]byte, 8)
		chunk[0] = seq
		for j := range chunk[1:] {
			chunk[1+j] = NotAvailable
		}
		n := end
		if n > len(payload) {
			n = len(payload)
		}
		copy(chunk[1:], payload[i:n])
		packets = append(packets, chunk)
	}
	return packets
}

// BuildBAM constructs the TP.CM announcement frame for a broadcast
// transfer of payload via the given PGN.
func BuildBAM(sa uint8, pgn uint32, payload []byte) Frame {
	packets := (len(payload) + 6) / 7
	cm := []byte{
		tpCMBAM,
		byte(len(payload)),
		byte(len(payload) >> 8),
		byte(packets),
		0xFF,
		byte(pgn),
		byte(pgn >> 8),
		byte(pgn >> 16),
	}
	return Encode(PGNTPConnManagement, 7, sa, Broadcast, cm)
}
