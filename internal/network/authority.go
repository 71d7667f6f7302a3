// Package network implements the network authority: the single owner
// of one CAN interface, responsible for the bind/setup/recv/tick/
// trigger/teardown lifecycle, dispatching inbound frames to exactly one
// bound driver each, and answering the standard J1939 request PGNs.
package network

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/brutella/can"

	"github.com/fenwick-robotics/vcu/internal/bus"
	"github.com/fenwick-robotics/vcu/internal/drivers"
	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// healthInterval is the cadence at which the authority synthesizes and
// publishes each driver's ModuleStatus, per §4.3 step 4.
const healthInterval = 100 * time.Millisecond

// Identity is the static ECU identity this authority claims and reports
// in response to SoftwareIdentification/ComponentIdentification/
// VehicleIdentification requests.
type Identity struct {
	SourceAddress       uint8
	SoftwareVersion     string // e.g. "1.4.0"
	ComponentID         string
	VehicleID           string
}

// Authority owns one CAN bus exclusively and dispatches frames to a
// fixed set of drivers, one source address each.
type Authority struct {
	iface    string
	identity Identity
	bus      *can.Bus

	mu      sync.Mutex
	drivers []drivers.Driver
	ctxs    map[drivers.Driver]*drivers.Context

	send drivers.SignalSender

	// transmitFn is the actual frame sink. It defaults to publishing on
	// the bound CAN bus but is swappable in tests.
	transmitFn func([]j1939.Frame)

	// cmds is the multi-producer/single-consumer, FIFO, lossless command
	// queue fronting Trigger, per §4.8. It is drained by a single
	// consumer goroutine started at construction, so Trigger behaves
	// synchronously for callers regardless of whether Run is active.
	cmds *bus.Command
}

// triggerRequest is one queued Trigger call: the target driver address,
// the command, and the channel its result is delivered on.
type triggerRequest struct {
	sourceAddr uint8
	cmd        drivers.Signal
	result     chan error
}

// New constructs an authority bound to a SocketCAN interface name
// (e.g. "can0"), with the given identity and driver registry. send
// receives every signal any driver produces.
func New(iface string, identity Identity, driverList []drivers.Driver, send drivers.SignalSender) *Authority {
	ctxs := make(map[drivers.Driver]*drivers.Context, len(driverList))
	for _, d := range driverList {
		ctxs[d] = drivers.NewContext()
	}
	a := &Authority{
		iface:    iface,
		identity: identity,
		drivers:  driverList,
		ctxs:     ctxs,
		send:     send,
		cmds:     bus.NewCommand(32),
	}
	go a.consumeTriggers()
	return a
}

// consumeTriggers is the command queue's single consumer: it drains
// queued Trigger calls one at a time for the lifetime of the authority,
// so commands issued from any goroutine are serialized the same way
// frame dispatch and tick already are.
func (a *Authority) consumeTriggers() {
	ctx := context.Background()
	for {
		v, err := a.cmds.Recv(ctx)
		if err != nil {
			return
		}
		req := v.(triggerRequest)
		req.result <- a.doTrigger(req.sourceAddr, req.cmd)
	}
}

// Bind opens the CAN interface exclusively. It must be called before
// Run.
func (a *Authority) Bind() error {
	bus, err := can.NewBusForInterfaceWithName(a.iface)
	if err != nil {
		return fmt.Errorf("network: bind %s: %w", a.iface, err)
	}
	a.bus = bus
	a.transmitFn = a.publishToBus
	return nil
}

// Run executes the authority's lifecycle: Setup, then the recv/tick
// loop, until ctx is cancelled, then Teardown. The bus read loop runs
// on its own goroutine; ticks and health checks run on Run's goroutine,
// and a.mu serializes them with frame dispatch. Run disconnects the bus
// and sends teardown frames before returning; it does not wait for the
// read goroutine to exit.
func (a *Authority) Run(ctx context.Context, tick time.Duration) error {
	if a.bus == nil {
		return fmt.Errorf("network: authority %s not bound", a.iface)
	}

	// Per §4.3 step 1, the address claim is the unconditional first
	// frame this authority puts on the wire, ahead of any per-driver
	// setup handshake.
	a.transmit([]j1939.Frame{a.addressClaimedFrame()})

	if err := a.setup(); err != nil {
		return fmt.Errorf("network: setup: %w", err)
	}

	a.bus.Subscribe(&busHandler{authority: a})

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- a.bus.ConnectAndPublish()
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	healthTicker := time.NewTicker(healthInterval)
	defer healthTicker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			a.tick()
		case <-healthTicker.C:
			a.health()
		case err := <-recvErr:
			if err != nil {
				log.Printf("[authority:%s] bus read loop ended: %v", a.iface, err)
			}
			break loop
		}
	}

	a.bus.Disconnect()
	return a.teardown()
}

func (a *Authority) setup() error {
	for _, d := range a.drivers {
		var tx []j1939.Frame
		if err := d.Setup(a.ctxs[d], &tx); err != nil {
			log.Printf("[authority:%s] %s: setup error: %v", a.iface, drivers.Name(d), err)
			continue
		}
		a.transmit(tx)
	}
	return nil
}

func (a *Authority) teardown() error {
	for _, d := range a.drivers {
		var tx []j1939.Frame
		if err := d.Teardown(a.ctxs[d], &tx); err != nil {
			log.Printf("[authority:%s] %s: teardown error: %v", a.iface, drivers.Name(d), err)
			continue
		}
		a.transmit(tx)
	}
	return nil
}

func (a *Authority) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.drivers {
		var tx []j1939.Frame
		if err := d.Tick(a.ctxs[d], &tx); err != nil {
			log.Printf("[authority:%s] %s: tick error: %v", a.iface, drivers.Name(d), err)
			a.send(drivers.ModuleStatus{Driver: drivers.Name(d), Kind: drivers.ModuleFaulty, Cause: err})
		}
		a.transmit(tx)
	}
}

// health synthesizes and publishes each driver's ModuleStatus, run
// every healthInterval per §4.3 step 4. A driver whose rx_timeout has
// elapsed is reported faulty without being unbound from dispatch.
func (a *Authority) health() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.drivers {
		if a.ctxs[d].IsRxTimeout(d.RxTimeout()) {
			a.send(drivers.ModuleStatus{
				Driver: drivers.Name(d),
				Kind:   drivers.ModuleFaulty,
				Cause:  &drivers.Error{Kind: drivers.KindMessageTimeout},
			})
			continue
		}
		a.send(drivers.ModuleStatus{Driver: drivers.Name(d), Kind: drivers.ModuleNominal})
	}
}

// Trigger issues a direct command to the driver bound at sourceAddr,
// via the command queue so concurrent callers are serialized FIFO.
func (a *Authority) Trigger(sourceAddr uint8, cmd drivers.Signal) error {
	result := make(chan error, 1)
	if err := a.cmds.Send(context.Background(), triggerRequest{sourceAddr: sourceAddr, cmd: cmd, result: result}); err != nil {
		return err
	}
	return <-result
}

func (a *Authority) doTrigger(sourceAddr uint8, cmd drivers.Signal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.drivers {
		if d.Destination() != sourceAddr {
			continue
		}
		var tx []j1939.Frame
		if err := d.Trigger(a.ctxs[d], &tx, cmd); err != nil {
			return err
		}
		a.transmit(tx)
		return nil
	}
	return fmt.Errorf("network: no driver bound to address 0x%02X", sourceAddr)
}

// dispatch offers an inbound frame to the request responder first,
// then to exactly the first driver whose source/destination addresses
// match — first-driver-wins exclusive binding, as only one driver
// should ever own a given ECU address.
func (a *Authority) dispatch(f j1939.Frame) {
	if f.Id.PGN == j1939.PGNRequest {
		a.mu.Lock()
		a.respondToRequest(f)
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.drivers {
		ok, err := d.TryRecv(a.ctxs[d], f, a.send)
		if err != nil {
			log.Printf("[authority:%s] %s: %v", a.iface, drivers.Name(d), err)
			a.send(drivers.ModuleStatus{Driver: drivers.Name(d), Kind: drivers.ModuleFaulty, Cause: err})
		}
		if ok != drivers.FrameIgnored {
			return
		}
	}
}

func (a *Authority) transmit(frames []j1939.Frame) {
	if len(frames) == 0 || a.transmitFn == nil {
		return
	}
	a.transmitFn(frames)
}

func (a *Authority) publishToBus(frames []j1939.Frame) {
	for _, f := range frames {
		if err := a.bus.Publish(toCANFrame(f)); err != nil {
			log.Printf("[authority:%s] publish error: %v", a.iface, err)
		}
	}
}

// busHandler adapts the authority's dispatch method to the bus
// library's Handler interface, the same struct-wrapping-a-callback
// shape the teacher uses for its own frame handler.
type busHandler struct {
	authority *Authority
}

func (h *busHandler) Handle(frame can.Frame) {
	h.authority.dispatch(fromCANFrame(frame))
}

func fromCANFrame(f can.Frame) j1939.Frame {
	return j1939.Frame{
		Id:      j1939.DecodeId(f.ID),
		Payload: append([]byte(nil), f.Data[:f.Length]...),
	}
}

func toCANFrame(f j1939.Frame) can.Frame {
	f = f.Normalized()
	var data [8]byte
	copy(data[:], f.Payload)
	return can.Frame{
		ID:     f.Id.Encode(),
		Length: uint8(len(f.Payload)),
		Data:   data,
	}
}
