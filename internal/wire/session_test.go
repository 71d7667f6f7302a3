package wire

import (
	"strings"
	"testing"
)

func TestSessionFlagsRoundTrip(t *testing.T) {
	flags := SessionFlags{Stream: true, Command: true}
	got := decodeSessionFlags(flags.encode())
	if got != flags {
		t.Errorf("decodeSessionFlags(encode()) = %+v, want %+v", got, flags)
	}
}

func TestEncodeDecodeSessionTruncatesName(t *testing.T) {
	longName := strings.Repeat("a", 100)
	payload := EncodeSession(Session{Flags: SessionFlags{Control: true}, Name: longName})
	got := DecodeSession(payload)

	if len(got.Name) != maxSessionName {
		t.Errorf("len(Name) = %d, want %d", len(got.Name), maxSessionName)
	}
	if !got.Flags.Control {
		t.Error("expected Control flag to survive round trip")
	}
}

func TestCanSubmitControlAndCommand(t *testing.T) {
	s := Session{Flags: SessionFlags{Control: true}}
	if !s.CanSubmitControl() {
		t.Error("expected control session to be authorized for control")
	}
	if s.CanSubmitCommand() {
		t.Error("expected control-only session to be unauthorized for command")
	}
}

func TestEncodeDecodeInstance(t *testing.T) {
	inst := Instance{ID: "vcu-01", Version: "1.4.0", Serial: "SN123"}
	got := DecodeInstance(EncodeInstance(inst))
	if got != inst {
		t.Errorf("DecodeInstance(EncodeInstance(x)) = %+v, want %+v", got, inst)
	}
}

func TestEncodeDecodeEcho(t *testing.T) {
	payload := EncodeEcho(0xDEADBEEF)
	got, ok := DecodeEcho(payload)
	if !ok || got != 0xDEADBEEF {
		t.Errorf("DecodeEcho = (%v, %v), want (0xDEADBEEF, true)", got, ok)
	}
}

func TestDecodeEchoRejectsWrongLength(t *testing.T) {
	if _, ok := DecodeEcho([]byte{1, 2, 3}); ok {
		t.Fatal("expected DecodeEcho to reject a non-4-byte payload")
	}
}

func TestEncodeDecodeRequest(t *testing.T) {
	payload := EncodeRequest(MessageEngine)
	got, ok := DecodeRequest(payload)
	if !ok || got != MessageEngine {
		t.Errorf("DecodeRequest = (%v, %v), want (MessageEngine, true)", got, ok)
	}
}
