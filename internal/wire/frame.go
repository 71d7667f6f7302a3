// Package wire implements the framed, length-prefixed wire protocol
// external clients use to request snapshots, stream signals, and issue
// motion/control commands against a running unit.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderLen is the fixed size of every frame header.
const HeaderLen = 10

// MaxPayload is the largest payload a single frame may carry.
const MaxPayload = 65535

var magic = [3]byte{'L', 'X', 'R'}

// Version is the wire protocol version this build speaks.
const Version uint8 = 1

// MessageType identifies the payload that follows a frame header.
type MessageType uint8

const (
	MessageError MessageType = iota
	MessageSession
	MessageInstance
	MessageRequest
	MessageEcho
	MessageShutdown
	MessageStatus
	MessageHost
	MessageGNSS
	MessageEngine
	MessageActor
	MessageMotion
	MessageControl
	MessageSignal
)

// Frame is one header-plus-payload unit on the wire.
type Frame struct {
	Version     uint8
	MessageType MessageType
	Payload     []byte
}

// WriteTo serializes the frame header and payload to w.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.Payload) > MaxPayload {
		return 0, fmt.Errorf("wire: payload length %d exceeds maximum %d", len(f.Payload), MaxPayload)
	}
	header := make([]byte, HeaderLen)
	header[0], header[1], header[2] = magic[0], magic[1], magic[2]
	header[3] = f.Version
	header[4] = byte(f.MessageType)
	binary.BigEndian.PutUint16(header[5:7], uint16(len(f.Payload)))
	// header[7:10] reserved, always zero.

	n, err := w.Write(header)
	if err != nil {
		return int64(n), err
	}
	if len(f.Payload) == 0 {
		return int64(n), nil
	}
	m, err := w.Write(f.Payload)
	return int64(n + m), err
}

// ReadFrame reads exactly one header-plus-payload frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	if header[0] != magic[0] || header[1] != magic[1] || header[2] != magic[2] {
		return Frame{}, &ProtocolError{Reason: "bad magic"}
	}
	version := header[3]
	if version != Version {
		return Frame{}, &ProtocolError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	msgType := MessageType(header[4])
	length := binary.BigEndian.Uint16(header[5:7])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Version: version, MessageType: msgType, Payload: payload}, nil
}

// ProtocolError reports a malformed header or frame that cannot be
// recovered from; the connection must be closed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "wire: protocol error: " + e.Reason }

// SessionError is the closed set of authorization failures a session
// can encounter once connected.
type SessionError struct {
	Kind SessionErrorKind
}

// SessionErrorKind enumerates session-level rejections.
type SessionErrorKind int

const (
	ErrUnauthorizedControl SessionErrorKind = iota
	ErrUnauthorizedCommand
)

func (e *SessionError) Error() string {
	switch e.Kind {
	case ErrUnauthorizedControl:
		return "wire: session is not authorized to submit control objects"
	case ErrUnauthorizedCommand:
		return "wire: session is not authorized to submit command objects"
	default:
		return "wire: session error"
	}
}
