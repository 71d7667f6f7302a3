package drivers

import (
	"testing"
	"time"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

func TestContextRxTimeoutAdvancesOnlyOnSignal(t *testing.T) {
	ctx := NewContext()
	if ctx.IsRxTimeout(time.Millisecond) {
		t.Fatal("fresh context should not be timed out immediately")
	}

	time.Sleep(2 * time.Millisecond)
	if !ctx.IsRxTimeout(time.Millisecond) {
		t.Fatal("expected timeout before any signal is produced")
	}

	ctx.MarkReceived("reading")
	if ctx.IsRxTimeout(time.Millisecond) {
		t.Fatal("marking received should reset the rx clock")
	}
	if ctx.LastReceived() != "reading" {
		t.Errorf("LastReceived = %v, want %q", ctx.LastReceived(), "reading")
	}
}

func TestBelongsToHonorsBroadcastDestination(t *testing.T) {
	hcu := NewHCU(0x3D, 0x8B)

	broadcast := j1939.Id{PGN: j1939.PGNVecraftStatus, Source: 0x3D, Destination: j1939.Broadcast}
	if !belongsTo(hcu, broadcast) {
		t.Error("expected broadcast destination to pass")
	}

	other := j1939.Id{PGN: j1939.PGNVecraftStatus, Source: 0x44, Destination: 0x8B}
	if belongsTo(hcu, other) {
		t.Error("frame from a different source should not belong to this driver")
	}
}
