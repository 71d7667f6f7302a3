// Package gnss reads NMEA sentences from a serial GNSS receiver and
// publishes decoded fixes onto the shared machine state.
package gnss

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/fenwick-robotics/vcu/internal/state"
)

// DefaultBaud is the baud rate most NMEA receivers default to.
const DefaultBaud = 9600

// Config names the serial device and baud rate to open.
type Config struct {
	Device string
	Baud   int
}

// Service reads line-delimited NMEA sentences and folds decoded fixes
// into the shared machine state.
type Service struct {
	State *state.State
}

// New constructs a GNSS service writing into st.
func New(st *state.State) *Service {
	return &Service{State: st}
}

// Run opens the configured serial device and reads sentences until ctx
// is cancelled or the device returns an unrecoverable I/O error.
func (s *Service) Run(ctx context.Context, cfg Config) error {
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud})
	if err != nil {
		return err
	}
	defer port.Close()

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return s.consume(ctx, port)
}

// consume reads line-delimited NMEA sentences from r, applying each
// decoded fix to the shared state. Split out from Run so tests can
// drive it with an in-memory reader instead of a real serial port.
func (s *Service) consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fix, ok := Decode(scanner.Text())
		if !ok {
			continue
		}
		s.apply(fix)
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-ctx.Done():
			return nil
		default:
			return err
		}
	}
	return nil
}

// apply merges a partial Fix into the shared GNSS state, leaving any
// field the sentence didn't carry unchanged from the prior reading.
func (s *Service) apply(fix Fix) {
	current := s.State.GNSS()
	if fix.HasPosition {
		current.Latitude = fix.Latitude
		current.Longitude = fix.Longitude
	}
	if fix.HasAltitude {
		current.Altitude = fix.Altitude
	}
	current.UpdatedAt = time.Now()
	s.State.SetGNSS(current)
}
