// Package drivers implements the closed, tagged-variant driver registry:
// one Go type per ECU role (engine, hydraulics, encoder, inclinometer),
// each satisfying the Driver contract and dispatched by source address
// rather than through an open plugin interface.
package drivers

import (
	"sync"
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// Signal is anything a driver can hand upstream to the shared machine
// state: an engine RPM reading, an encoder position, a status frame.
// The concrete signal types (EngineController1, EncoderReading,
// ModuleStatus, ...) are defined in this package next to the drivers
// that produce them.
type Signal any

// SignalSender delivers a produced Signal onto the broadcast bus.
// Implementations must not block indefinitely; the scheduler supplies a
// bounded channel send.
type SignalSender func(Signal)

// Ok enumerates the outcomes of a successful TryRecv call.
type Ok int

const (
	// FrameIgnored means the frame did not belong to this driver.
	FrameIgnored Ok = iota
	// FrameParsed means the frame was consumed but produced no signal
	// (e.g. an address claim acknowledgement).
	FrameParsed
	// SignalQueued means the frame produced a Signal that was handed to
	// the SignalSender.
	SignalQueued
)

// Error is the closed set of failures a driver can report. A timeout is
// reported, never silently swallowed, but it never unbinds the driver
// from the network authority.
type Error struct {
	Kind Kind
	Err  error
}

// Kind enumerates driver failure categories.
type Kind int

const (
	KindMessageTimeout Kind = iota
	KindInvalidConfiguration
	KindVersionMismatch
	KindBusError
	KindIO
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindMessageTimeout:
		return "communication timeout"
	case KindInvalidConfiguration:
		return "invalid configuration"
	case KindVersionMismatch:
		return "version mismatch"
	case KindBusError:
		return "bus error"
	case KindIO:
		if e.Err != nil {
			return "i/o error: " + e.Err.Error()
		}
		return "i/o error"
	default:
		return "unknown driver error"
	}
}

// Context carries per-driver mutable bookkeeping the network authority
// updates on every dispatch cycle: the last time a frame was accepted,
// and the last message sent/received, guarded by a single mutex so a
// Context can be shared safely between the recv loop and the tick loop.
type Context struct {
	mu            sync.Mutex
	rxLast        time.Time
	rxLastMessage Signal
	txLastMessage Signal
}

// NewContext returns a Context whose rx clock starts now, mirroring the
// teacher's "assume alive at bind time" stance.
func NewContext() *Context {
	return &Context{rxLast: time.Now()}
}

// MarkReceived advances rx_last. Per the settled invariant, this must
// only be called after a signal was actually produced from the frame,
// not merely because a frame addressed to this driver arrived.
func (c *Context) MarkReceived(sig Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rxLast = time.Now()
	c.rxLastMessage = sig
}

// SetSent records the last frame this driver asked to have transmitted.
func (c *Context) SetSent(sig Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txLastMessage = sig
}

// IsRxTimeout reports whether more than timeout has elapsed since the
// last successfully produced signal.
func (c *Context) IsRxTimeout(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.rxLast) > timeout
}

// LastReceived returns the most recent signal produced by this driver,
// or nil if none has been produced yet.
func (c *Context) LastReceived() Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rxLastMessage
}

// Driver is the contract every ECU role satisfies. Setup and Teardown
// are optional lifecycle hooks (most drivers no-op them); TryRecv and
// Tick carry the actual work. Implementations must be safe to call from
// a single goroutine per network authority — the authority never calls
// two methods on the same driver concurrently.
type Driver interface {
	Vendor() string
	Product() string
	Destination() uint8
	Source() uint8

	// Setup enqueues any frames needed to begin talking to the unit
	// (e.g. an address-claim request). Called once after bind.
	Setup(ctx *Context, tx *[]j1939.Frame) error

	// Teardown enqueues any frames needed to cleanly release the unit.
	// Called once before the network authority unbinds.
	Teardown(ctx *Context, tx *[]j1939.Frame) error

	// TryRecv offers one frame to the driver. It returns FrameIgnored
	// if the frame does not belong to this driver's source/destination,
	// without mutating ctx.
	TryRecv(ctx *Context, frame j1939.Frame, send SignalSender) (Ok, error)

	// Trigger asks the driver to act on a directly-issued command
	// (e.g. a motion change from the director), enqueuing frames.
	Trigger(ctx *Context, tx *[]j1939.Frame, cmd Signal) error

	// Tick runs on every scheduler tick regardless of frame traffic,
	// e.g. to resend the current actuator state.
	Tick(ctx *Context, tx *[]j1939.Frame) error

	// RxTimeout is the maximum quiet period before the network
	// authority reports this driver faulty/message-timeout, per the
	// ECU descriptor's optional receive timeout.
	RxTimeout() time.Duration
}

// Name returns the conventional "vendor:product" identifier used in log
// lines throughout the network authority.
func Name(d Driver) string {
	return d.Vendor() + ":" + d.Product()
}

// belongsTo reports whether a frame's source/destination pair matches
// the driver's configured addresses, honoring broadcast destinations.
func belongsTo(d Driver, id j1939.Id) bool {
	if id.IsPDU1() && id.Destination != j1939.Broadcast && id.Destination != d.Source() {
		return false
	}
	return id.Source == d.Destination()
}
