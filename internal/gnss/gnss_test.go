package gnss

import (
	"context"
	"strings"
	"testing"

	"github.com/fenwick-robotics/vcu/internal/state"
)

func TestConsumeAppliesDecodedFixes(t *testing.T) {
	st := state.New()
	svc := New(st)

	lines := strings.Join([]string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"not a valid line",
	}, "\n")

	if err := svc.consume(context.Background(), strings.NewReader(lines)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	fix := st.GNSS()
	if fix.UpdatedAt.IsZero() {
		t.Fatal("expected GNSS state to have been updated")
	}
	if fix.Altitude != 545.4 {
		t.Errorf("Altitude = %v, want 545.4", fix.Altitude)
	}
}

func TestConsumeStopsOnCancellation(t *testing.T) {
	st := state.New()
	svc := New(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.consume(ctx, strings.NewReader("$GPGGA,,,,,,,,,,,,,*00\n")); err != nil {
		t.Fatalf("consume: %v", err)
	}
}
