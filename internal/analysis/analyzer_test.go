package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/fenwick-robotics/vcu/internal/capture"
	"github.com/fenwick-robotics/vcu/internal/j1939"
)

func eec1Frame(at time.Time, rpm uint16) capture.Frame {
	raw := rpm * 8
	var payload [8]byte
	payload[0] = 0xFF
	payload[1] = j1939.NotAvailable
	payload[2] = j1939.NotAvailable
	payload[3] = byte(raw)
	payload[4] = byte(raw >> 8)
	payload[7] = j1939.NotAvailable

	return capture.Frame{
		Timestamp: at,
		PGN:       j1939.PGNElectronicEngineController1,
		Payload:   payload,
	}
}

func TestAnalyzeComputesBusActivityAndEngineSpeed(t *testing.T) {
	now := time.Now()
	frames := []capture.Frame{
		eec1Frame(now, 800),
		eec1Frame(now.Add(10*time.Millisecond), 1200),
		eec1Frame(now.Add(20*time.Millisecond), 1500),
		{Timestamp: now.Add(30 * time.Millisecond), PGN: j1939.PGNFanDrive},
	}

	report := Analyze(capture.Header{Interface: "can0"}, frames)

	if report.TotalFrames != 4 {
		t.Errorf("TotalFrames = %d, want 4", report.TotalFrames)
	}
	if report.BusActivity.UniquePGNs != 2 {
		t.Errorf("UniquePGNs = %d, want 2", report.BusActivity.UniquePGNs)
	}
	if report.BusActivity.PGNCounts[j1939.PGNElectronicEngineController1] != 3 {
		t.Errorf("PGNCounts[EEC1] = %d, want 3", report.BusActivity.PGNCounts[j1939.PGNElectronicEngineController1])
	}
	if report.EngineSpeed.Min != 800 || report.EngineSpeed.Max != 1500 {
		t.Errorf("EngineSpeed = %+v, want min 800 max 1500", report.EngineSpeed)
	}
	if report.FrameRate <= 0 {
		t.Error("expected a positive frame rate")
	}
}

func TestAnalyzeEmptyCapture(t *testing.T) {
	report := Analyze(capture.Header{}, nil)
	if report.TotalFrames != 0 {
		t.Errorf("TotalFrames = %d, want 0", report.TotalFrames)
	}
	if report.BusActivity.UniquePGNs != 0 {
		t.Errorf("UniquePGNs = %d, want 0", report.BusActivity.UniquePGNs)
	}
}

func TestCalculateStats(t *testing.T) {
	values := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	stats := CalculateStats(values)

	if stats.Min != 1.0 {
		t.Errorf("Min = %f, want 1.0", stats.Min)
	}
	if stats.Max != 5.0 {
		t.Errorf("Max = %f, want 5.0", stats.Max)
	}
	if stats.Mean != 3.0 {
		t.Errorf("Mean = %f, want 3.0", stats.Mean)
	}
	if math.Abs(stats.StdDev-1.5811388300841898) > 0.0001 {
		t.Errorf("StdDev = %f, want ~1.581", stats.StdDev)
	}
}

func TestCalculateStatsEmpty(t *testing.T) {
	stats := CalculateStats(nil)
	if stats.Samples != 0 {
		t.Errorf("Samples = %d, want 0", stats.Samples)
	}
}
