package analysis

import (
	"time"

	"github.com/fenwick-robotics/vcu/internal/capture"
	"github.com/fenwick-robotics/vcu/internal/drivers"
	"github.com/fenwick-robotics/vcu/internal/j1939"
)

// rawCANBitsPerFrame approximates one extended-format J1939 frame's
// wire cost: arbitration, control, and CRC/ACK/EOF overhead around an
// 8-byte payload.
const rawCANBitsPerFrame = 128

// Analyze computes a Report from a capture header and its frames.
func Analyze(header capture.Header, frames []capture.Frame) *Report {
	report := &Report{
		TotalFrames: len(frames),
	}
	report.BusActivity.PGNCounts = make(map[uint32]int)

	if len(frames) == 0 {
		return report
	}

	report.StartedAt = frames[0].Timestamp
	report.EndedAt = frames[len(frames)-1].Timestamp
	report.Duration = report.EndedAt.Sub(report.StartedAt)

	var rpmValues []float64
	var maxGap time.Duration
	prevTimestamp := frames[0].Timestamp

	for _, f := range frames {
		report.BusActivity.PGNCounts[f.PGN]++

		if gap := f.Timestamp.Sub(prevTimestamp); gap > maxGap {
			maxGap = gap
		}
		prevTimestamp = f.Timestamp

		if f.PGN == j1939.PGNElectronicEngineController1 {
			eec1 := drivers.ParseEngineController1(f.Payload[:])
			if eec1.RPM != nil {
				rpmValues = append(rpmValues, float64(*eec1.RPM))
			}
		}
	}

	report.BusActivity.UniquePGNs = len(report.BusActivity.PGNCounts)
	report.BusActivity.MaxGap = maxGap
	report.EngineSpeed = CalculateStats(rpmValues)

	if seconds := report.Duration.Seconds(); seconds > 0 {
		report.FrameRate = float64(len(frames)) / seconds
		bitsPerSecond := float64(len(frames)*rawCANBitsPerFrame) / seconds
		report.BusActivity.BusLoadPct = bitsPerSecond / 1_000_000 * 100 // percent of 1 Mbps
	}

	return report
}
