package network

import (
	"testing"
	"time"

	"github.com/fenwick-robotics/vcu/internal/drivers"
	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// fakeDriver is a minimal Driver stub for exercising dispatch/tick
// without a real CAN bus.
type fakeDriver struct {
	source, destination uint8
	recvCount           int
	tickCount           int
}

func (f *fakeDriver) Vendor() string      { return "test" }
func (f *fakeDriver) Product() string     { return "fake" }
func (f *fakeDriver) Destination() uint8  { return f.destination }
func (f *fakeDriver) Source() uint8       { return f.source }
func (f *fakeDriver) Setup(*drivers.Context, *[]j1939.Frame) error    { return nil }
func (f *fakeDriver) Teardown(*drivers.Context, *[]j1939.Frame) error { return nil }
func (f *fakeDriver) Trigger(*drivers.Context, *[]j1939.Frame, drivers.Signal) error {
	return nil
}
func (f *fakeDriver) Tick(*drivers.Context, *[]j1939.Frame) error {
	f.tickCount++
	return nil
}
func (f *fakeDriver) RxTimeout() time.Duration { return 500 * time.Millisecond }
func (f *fakeDriver) TryRecv(ctx *drivers.Context, frame j1939.Frame, send drivers.SignalSender) (drivers.Ok, error) {
	if frame.Id.Source != f.destination {
		return drivers.FrameIgnored, nil
	}
	f.recvCount++
	ctx.MarkReceived(frame)
	send(frame)
	return drivers.SignalQueued, nil
}

func newTestAuthority(driverList []drivers.Driver) *Authority {
	a := New("vcan0", Identity{SourceAddress: 0x20}, driverList, func(drivers.Signal) {})
	a.transmitFn = func([]j1939.Frame) {}
	return a
}

func TestDispatchRoutesToMatchingDriver(t *testing.T) {
	d1 := &fakeDriver{source: 0x20, destination: 0x40}
	d2 := &fakeDriver{source: 0x20, destination: 0x41}
	a := newTestAuthority([]drivers.Driver{d1, d2})

	frame := j1939.Frame{
		Id:      j1939.Id{PGN: j1939.PGNElectronicEngineController1, Source: 0x41, Destination: j1939.Broadcast},
		Payload: make([]byte, 8),
	}
	a.dispatch(frame)

	if d1.recvCount != 0 {
		t.Errorf("d1.recvCount = %d, want 0 (frame not addressed to it)", d1.recvCount)
	}
	if d2.recvCount != 1 {
		t.Errorf("d2.recvCount = %d, want 1", d2.recvCount)
	}
}

func TestDispatchStopsAtFirstMatchingDriver(t *testing.T) {
	d1 := &fakeDriver{source: 0x20, destination: 0x41}
	d2 := &fakeDriver{source: 0x20, destination: 0x41}
	a := newTestAuthority([]drivers.Driver{d1, d2})

	frame := j1939.Frame{
		Id:      j1939.Id{PGN: j1939.PGNElectronicEngineController1, Source: 0x41, Destination: j1939.Broadcast},
		Payload: make([]byte, 8),
	}
	a.dispatch(frame)

	if d1.recvCount != 1 || d2.recvCount != 0 {
		t.Errorf("d1.recvCount=%d d2.recvCount=%d, want 1,0 (first driver wins)", d1.recvCount, d2.recvCount)
	}
}

func TestTickInvokesEveryDriver(t *testing.T) {
	d1 := &fakeDriver{source: 0x20, destination: 0x41}
	d2 := &fakeDriver{source: 0x20, destination: 0x42}
	a := newTestAuthority([]drivers.Driver{d1, d2})

	a.tick()

	if d1.tickCount != 1 || d2.tickCount != 1 {
		t.Errorf("tickCount d1=%d d2=%d, want 1,1", d1.tickCount, d2.tickCount)
	}
}

func TestTriggerTargetsBoundDriver(t *testing.T) {
	d1 := &fakeDriver{source: 0x20, destination: 0x41}
	d2 := &fakeDriver{source: 0x20, destination: 0x42}
	a := newTestAuthority([]drivers.Driver{d1, d2})

	if err := a.Trigger(0x42, "noop"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := a.Trigger(0x99, "noop"); err == nil {
		t.Fatal("expected error for an address with no bound driver")
	}
}
