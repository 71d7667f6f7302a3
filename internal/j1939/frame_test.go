package j1939

import "testing"

func TestDecodeIdPDU1(t *testing.T) {
	// Priority 3, PGN 0xEA00 (Request, PDU1), DA 0x2A, SA 0x11.
	raw := uint32(3)<<26 | uint32(0)<<24 | uint32(0xEA)<<16 | uint32(0x2A)<<8 | uint32(0x11)

	id := DecodeId(raw)

	if id.Priority != 3 {
		t.Errorf("priority = %d, want 3", id.Priority)
	}
	if id.PGN != PGNRequest {
		t.Errorf("pgn = 0x%05X, want 0x%05X", id.PGN, PGNRequest)
	}
	if id.Destination != 0x2A {
		t.Errorf("destination = 0x%02X, want 0x2A", id.Destination)
	}
	if id.Source != 0x11 {
		t.Errorf("source = 0x%02X, want 0x11", id.Source)
	}
	if !id.IsPDU1() {
		t.Error("expected PDU1")
	}
}

func TestDecodeIdPDU2Broadcast(t *testing.T) {
	// Priority 6, PGN 0xFEE6 (TimeDate, PDU2), SA 0x00, no destination.
	pgn := PGNTimeDate
	pf := (pgn >> 8) & 0xFF
	ge := pgn & 0xFF
	dp := (pgn >> 16) & 0x1
	raw := uint32(6)<<26 | dp<<24 | pf<<16 | ge<<8 | uint32(0x00)

	id := DecodeId(raw)

	if id.IsPDU1() {
		t.Error("expected PDU2 (broadcast)")
	}
	if id.PGN != PGNTimeDate {
		t.Errorf("pgn = 0x%05X, want 0x%05X", id.PGN, PGNTimeDate)
	}
	if id.Destination != Broadcast {
		t.Errorf("destination = 0x%02X, want Broadcast", id.Destination)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Id{
		{Priority: 3, PGN: PGNRequest, Source: 0x11, Destination: 0x2A},
		{Priority: 6, PGN: PGNTimeDate, Source: 0x00, Destination: Broadcast},
		{Priority: 3, PGN: PGNActuatorBank1, Source: 0x11, Destination: Broadcast},
		{Priority: 7, PGN: PGNAddressClaimed, Source: 0xFE, Destination: Broadcast},
	}

	for _, want := range cases {
		raw := want.Encode()
		got := DecodeId(raw)
		if got != want {
			t.Errorf("round trip mismatch: encoded %+v, decoded %+v", want, got)
		}
	}
}

func TestNormalizePadsWithNotAvailable(t *testing.T) {
	f := Frame{Id: Id{PGN: PGNActuatorBank1}, Payload: []byte{0x01, 0x02}}
	f.Normalize()

	if len(f.Payload) != PayloadLen {
		t.Fatalf("len = %d, want %d", len(f.Payload), PayloadLen)
	}
	want := []byte{0x01, 0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	for i := range want {
		if f.Payload[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, f.Payload[i], want[i])
		}
	}
}

func TestNormalizeTruncatesOverlong(t *testing.T) {
	f := Frame{Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	f.Normalize()

	if len(f.Payload) != PayloadLen {
		t.Fatalf("len = %d, want %d", len(f.Payload), PayloadLen)
	}
	if f.Payload[7] != 8 {
		t.Errorf("last byte = %d, want 8", f.Payload[7])
	}
}

func TestFiltersDefaultAcceptAll(t *testing.T) {
	var fs Filters
	id := Id{Priority: 3, PGN: PGNRequest, Source: 0x11, Destination: 0x2A}
	if !fs.Match(id) {
		t.Error("empty filter set should accept everything")
	}
}

func TestFiltersCompose(t *testing.T) {
	fs := Filters{WithPGN(PGNRequest), WithSource(0x11)}
	match := Id{Priority: 3, PGN: PGNRequest, Source: 0x11, Destination: 0x2A}
	noMatch := Id{Priority: 3, PGN: PGNRequest, Source: 0x22, Destination: 0x2A}

	if !fs.Match(match) {
		t.Error("expected match")
	}
	if fs.Match(noMatch) {
		t.Error("expected no match on different source")
	}
}

func TestWithDestinationAcceptsBroadcastPDU2(t *testing.T) {
	f := WithDestination(0x2A)
	id := Id{PGN: PGNTimeDate, Destination: Broadcast}
	if !f(id) {
		t.Error("PDU2 broadcast should pass any destination filter")
	}
}

func TestTPSessionRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	bam := BuildBAM(0x11, PGNSoftwareIdentification, payload)
	_, bamPayload := Decode(bam)

	sess, err := NewSession(0x11, bamPayload)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if sess.PGN() != PGNSoftwareIdentification {
		t.Fatalf("session pgn = 0x%05X, want 0x%05X", sess.PGN(), PGNSoftwareIdentification)
	}

	packets := SplitTPDT(payload)
	var done bool
	for _, pkt := range packets {
		var err error
		done, err = sess.Accept(pkt)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}
	if !done {
		t.Fatal("session should be complete after all packets accepted")
	}

	got, err := sess.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("len = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestTPSessionRejectsOutOfRangeSequence(t *testing.T) {
	bam := BuildBAM(0x11, PGNSoftwareIdentification, []byte{1, 2, 3})
	_, bamPayload := Decode(bam)
	sess, err := NewSession(0x11, bamPayload)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := sess.Accept([]byte{5, 1, 2, 3, 4, 5, 6, 7}); err == nil {
		t.Error("expected error for out-of-range sequence number")
	}
}
