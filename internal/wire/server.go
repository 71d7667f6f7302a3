package wire

import (
	"context"
	"log"
	"net"
	"sync"
	"time"
)

// IdleTimeout closes a connection from which no frame has been read for
// this long; frames sent to the client do not extend it.
const IdleTimeout = 30 * time.Second

// Snapshot answers one Request(message_type) with the current state.
// The caller (cmd/vcud) supplies this from internal/state and
// internal/director so this package never imports them directly.
type Snapshot func(want MessageType) ([]byte, bool)

// FailsafeStop is invoked when a Failsafe-flagged session disconnects
// abnormally (i.e. without a prior graceful Shutdown exchange).
type FailsafeStop func()

// CommandHandler relays an authorized Motion or Control payload to the
// caller's command channel. A non-nil error is logged; nothing is sent
// back to the session and the connection stays open.
type CommandHandler func(payload []byte) error

// Server accepts wire-protocol connections over TCP and/or a Unix
// domain socket and serves each on its own connection handler.
type Server struct {
	Instance Instance
	Snapshot Snapshot
	Failsafe FailsafeStop

	// Motion and Control relay authorized MessageMotion/MessageControl
	// payloads to cmd/vcud's command channel. Either may be nil, in
	// which case matching frames are authorized but dropped.
	Motion  CommandHandler
	Control CommandHandler

	// Signals, if non-nil, is subscribed by every streaming session to
	// receive every produced Signal as a MessageSignal-wrapped frame.
	Signals func() (<-chan []byte, func())

	mu        sync.Mutex
	listeners []net.Listener
}

// ListenAndServe starts accepting connections on addr (TCP, e.g.
// "127.0.0.1:30051") and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

// ListenAndServeUnix starts accepting connections on a Unix domain
// socket at path and blocks until ctx is cancelled.
func (s *Server) ListenAndServeUnix(ctx context.Context, path string) error {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Printf("[wire] accept error on %s: %v", ln.Addr(), err)
				return err
			}
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	session, err := s.negotiate(conn)
	if err != nil {
		log.Printf("[wire] %s: session negotiation failed: %v", conn.RemoteAddr(), err)
		return
	}

	log.Printf("[wire] %s: session %q connected (stream=%v control=%v command=%v failsafe=%v)",
		conn.RemoteAddr(), session.Name, session.Flags.Stream, session.Flags.Control, session.Flags.Command, session.Flags.Failsafe)

	graceful := false
	defer func() {
		if session.Flags.Failsafe && !graceful && s.Failsafe != nil {
			log.Printf("[wire] %s: abnormal disconnect on a failsafe session, stopping all motion", conn.RemoteAddr())
			s.Failsafe()
		}
	}()

	var unsubscribe func()
	var stream <-chan []byte
	if session.Flags.Stream && s.Signals != nil {
		stream, unsubscribe = s.Signals()
		defer unsubscribe()
		go s.pump(conn, stream)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(IdleTimeout))
		frame, err := ReadFrame(conn)
		if err != nil {
			return
		}

		switch frame.MessageType {
		case MessageShutdown:
			graceful = true
			Frame{Version: Version, MessageType: MessageShutdown}.WriteTo(conn)
			return
		case MessageEcho:
			Frame{Version: Version, MessageType: MessageEcho, Payload: frame.Payload}.WriteTo(conn)
		case MessageRequest:
			s.respondToRequest(conn, frame.Payload)
		case MessageMotion:
			if !session.CanSubmitControl() {
				s.writeError(conn, ErrUnauthorizedControl)
				continue
			}
			if s.Motion != nil {
				if err := s.Motion(frame.Payload); err != nil {
					log.Printf("[wire] %s: motion command rejected: %v", conn.RemoteAddr(), err)
				}
			}
		case MessageControl:
			if !session.CanSubmitCommand() {
				s.writeError(conn, ErrUnauthorizedCommand)
				continue
			}
			if s.Control != nil {
				if err := s.Control(frame.Payload); err != nil {
					log.Printf("[wire] %s: control command rejected: %v", conn.RemoteAddr(), err)
				}
			}
		default:
			// Unknown or streaming-only message types from the client
			// are ignored rather than treated as a protocol error.
		}
	}
}

func (s *Server) negotiate(conn net.Conn) (Session, error) {
	conn.SetReadDeadline(time.Now().Add(IdleTimeout))
	frame, err := ReadFrame(conn)
	if err != nil {
		return Session{}, err
	}
	if frame.MessageType != MessageSession {
		return Session{}, &ProtocolError{Reason: "first frame must be a session negotiation"}
	}
	session := DecodeSession(frame.Payload)

	reply := Frame{Version: Version, MessageType: MessageInstance, Payload: EncodeInstance(s.Instance)}
	if _, err := reply.WriteTo(conn); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *Server) respondToRequest(conn net.Conn, payload []byte) {
	want, ok := DecodeRequest(payload)
	if !ok || s.Snapshot == nil {
		return
	}
	body, ok := s.Snapshot(want)
	if !ok {
		return
	}
	Frame{Version: Version, MessageType: want, Payload: body}.WriteTo(conn)
}

func (s *Server) writeError(conn net.Conn, kind SessionErrorKind) {
	Frame{Version: Version, MessageType: MessageError, Payload: []byte{byte(kind)}}.WriteTo(conn)
}

// pump forwards every produced signal to conn until the channel closes
// or a write fails.
func (s *Server) pump(conn net.Conn, stream <-chan []byte) {
	for payload := range stream {
		f := Frame{Version: Version, MessageType: MessageSignal, Payload: payload}
		conn.SetWriteDeadline(time.Now().Add(IdleTimeout))
		if _, err := f.WriteTo(conn); err != nil {
			return
		}
	}
}
