package drivers

import "testing"

func TestEncoderReadingNormal(t *testing.T) {
	state := EncoderNoError
	reading := EncoderReading{Source: 0x6A, Position: 1620, Speed: 0, State: &state}

	frame := reading.Frame(0x6A)
	got := ParseEncoderReading(0x6A, frame.Payload)

	if got.Position != 1620 {
		t.Errorf("Position = %d, want 1620", got.Position)
	}
	if got.Speed != 0 {
		t.Errorf("Speed = %d, want 0", got.Speed)
	}
	if got.State == nil || *got.State != EncoderNoError {
		t.Errorf("State = %v, want EncoderNoError", got.State)
	}
}

func TestEncoderReadingFault(t *testing.T) {
	state := EncoderInvalidTMR
	reading := EncoderReading{Source: 0x45, Position: 173, Speed: 65196, State: &state}

	frame := reading.Frame(0x45)
	got := ParseEncoderReading(0x45, frame.Payload)

	if got.Position != 173 {
		t.Errorf("Position = %d, want 173", got.Position)
	}
	if got.Speed != 65196 {
		t.Errorf("Speed = %d, want 65196", got.Speed)
	}
	if got.State == nil || *got.State != EncoderInvalidTMR {
		t.Errorf("State = %v, want EncoderInvalidTMR", got.State)
	}
}

func TestEncoderReadingUnavailableFieldsOmitted(t *testing.T) {
	pdu := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	got := ParseEncoderReading(0x6B, pdu)

	if got.Position != 0 {
		t.Errorf("Position = %d, want 0", got.Position)
	}
	if got.Speed != 0 {
		t.Errorf("Speed = %d, want 0", got.Speed)
	}
	if got.State != nil {
		t.Errorf("State = %v, want nil", got.State)
	}
}
