package canraw

import (
	"fmt"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// FormatFrame renders one decoded frame as a single diagnostic line,
// e.g. "pri=6 pgn=0xF004 sa=0x00  00 F0 7D FF FF FF FF FF". The da field
// is printed only for PDU1 (destination-specific) PGNs.
func FormatFrame(f j1939.Frame) string {
	hex := ""
	for i, b := range f.Payload {
		if i > 0 {
			hex += " "
		}
		hex += fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%s  %s", f.Id.String(), hex)
}
