package drivers

import (
	"testing"

	"github.com/fenwick-robotics/vcu/internal/j1939"
)

func i16p(v int16) *int16 { return &v }

func TestActuatorFrameEmptyProducesNoFrames(t *testing.T) {
	var frame ActuatorFrame
	frames := frame.Frames(0x3D, 0x8B)
	if len(frames) != 0 {
		t.Fatalf("len = %d, want 0", len(frames))
	}
}

func TestActuatorFrameRoundTripBank1(t *testing.T) {
	var frame ActuatorFrame
	frame.Values[0] = i16p(-24000)
	frame.Values[3] = i16p(500)

	frames := frame.Frames(0x3D, 0x8B)
	if len(frames) != 1 {
		t.Fatalf("len = %d, want 1", len(frames))
	}

	got := ParseActuatorFrame(frames[0])
	if *got.Values[0] != -24000 {
		t.Errorf("Values[0] = %d, want -24000", *got.Values[0])
	}
	if got.Values[1] != nil || got.Values[2] != nil {
		t.Error("expected slots 1,2 to remain unavailable")
	}
	if *got.Values[3] != 500 {
		t.Errorf("Values[3] = %d, want 500", *got.Values[3])
	}
}

func TestActuatorFrameRoundTripBank2(t *testing.T) {
	var frame ActuatorFrame
	frame.Values[4] = i16p(32000)
	frame.Values[5] = i16p(32767)

	frames := frame.Frames(0x3D, 0x8B)
	if len(frames) != 1 {
		t.Fatalf("len = %d, want 1", len(frames))
	}

	got := ParseActuatorFrame(frames[0])
	if *got.Values[4] != 32000 {
		t.Errorf("Values[4] = %d, want 32000", *got.Values[4])
	}
	if *got.Values[5] != 32767 {
		t.Errorf("Values[5] = %d, want 32767", *got.Values[5])
	}
}

func TestActuatorFrameBothBanksSplitAcrossTwoFrames(t *testing.T) {
	var frame ActuatorFrame
	for i := range frame.Values {
		v := int16((i + 1) * 100)
		if i%2 == 1 {
			v = -v
		}
		frame.Values[i] = &v
	}

	frames := frame.Frames(0x3D, 0x8B)
	if len(frames) != 2 {
		t.Fatalf("len = %d, want 2", len(frames))
	}

	bank1 := ParseActuatorFrame(frames[0])
	bank2 := ParseActuatorFrame(frames[1])

	for i := 0; i < 4; i++ {
		if *bank1.Values[i] != *frame.Values[i] {
			t.Errorf("bank1[%d] = %d, want %d", i, *bank1.Values[i], *frame.Values[i])
		}
	}
	for i := 4; i < 8; i++ {
		if *bank2.Values[i] != *frame.Values[i] {
			t.Errorf("bank2[%d] = %d, want %d", i, *bank2.Values[i], *frame.Values[i])
		}
	}
}

func TestMotionConfigRoundTripLocked(t *testing.T) {
	frame := MotionConfig{Locked: boolPtr(true)}.Frame(0x5E, 0xEE)
	cfg, ok := ParseMotionConfig(frame.Payload)
	if !ok {
		t.Fatal("expected valid motion config frame")
	}
	if cfg.Locked == nil || *cfg.Locked != true {
		t.Errorf("Locked = %v, want true", cfg.Locked)
	}
	if cfg.Reset != nil {
		t.Errorf("Reset = %v, want nil", cfg.Reset)
	}
}

func TestMotionConfigRoundTripReset(t *testing.T) {
	frame := MotionConfig{Reset: boolPtr(true)}.Frame(0x66, 0x22)
	cfg, ok := ParseMotionConfig(frame.Payload)
	if !ok {
		t.Fatal("expected valid motion config frame")
	}
	if cfg.Locked != nil {
		t.Errorf("Locked = %v, want nil", cfg.Locked)
	}
	if cfg.Reset == nil || *cfg.Reset != true {
		t.Errorf("Reset = %v, want true", cfg.Reset)
	}
}

func TestVecraftConfigRoundTrip(t *testing.T) {
	cfg := VecraftConfig{IdentOn: boolPtr(true)}
	frame := cfg.Frame(j1939.PGNProprietaryConfigurableMsg1, 0x2B, 0x4D)
	got := ParseVecraftConfig(frame.Payload)

	if got.IdentOn == nil || *got.IdentOn != true {
		t.Errorf("IdentOn = %v, want true", got.IdentOn)
	}
	if got.Reboot {
		t.Error("Reboot = true, want false")
	}
}

func TestVecraftConfigRoundTripReboot(t *testing.T) {
	cfg := VecraftConfig{Reboot: true}
	frame := cfg.Frame(j1939.PGNProprietaryConfigurableMsg1, 0x4D, 0xCD)
	got := ParseVecraftConfig(frame.Payload)

	if got.IdentOn != nil {
		t.Errorf("IdentOn = %v, want nil", got.IdentOn)
	}
	if !got.Reboot {
		t.Error("Reboot = false, want true")
	}
}
