// Package canraw provides a raw SocketCAN fallback transport for
// environments where a brutella/can bus handle isn't available (most
// commonly a vcan0 test interface), and the frame decoding used by the
// netdump diagnostic command.
package canraw

import (
	"fmt"

	"github.com/go-daq/canbus"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// Socket is a thin wrapper over a raw SocketCAN socket bound to one
// interface, used as a fallback transport and by diagnostic tooling.
type Socket struct {
	sock *canbus.Socket
	name string
}

// Open binds a raw SocketCAN socket to the named interface (e.g.
// "vcan0").
func Open(iface string) (*Socket, error) {
	sock, err := canbus.New()
	if err != nil {
		return nil, fmt.Errorf("canraw: open socket: %w", err)
	}
	if err := sock.Bind(iface); err != nil {
		sock.Close()
		return nil, fmt.Errorf("canraw: bind %s: %w", iface, err)
	}
	return &Socket{sock: sock, name: iface}, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	return s.sock.Close()
}

// Send transmits one frame, padding its payload to 8 bytes.
func (s *Socket) Send(f j1939.Frame) error {
	f = f.Normalized()
	_, err := s.sock.Send(canbus.Frame{ID: f.Id.Encode(), Data: f.Payload})
	return err
}

// Recv blocks for the next frame and decodes its identifier.
func (s *Socket) Recv() (j1939.Frame, error) {
	raw, err := s.sock.Recv()
	if err != nil {
		return j1939.Frame{}, err
	}
	return j1939.Frame{Id: j1939.DecodeId(raw.ID), Payload: raw.Data}, nil
}
