// Package host periodically samples host resource vitals (uptime,
// memory, swap, CPU load) and publishes them onto the shared machine
// state, independent of the network authorities' tick cadence.
package host

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/fenwick-robotics/vcu/internal/state"
)

// DefaultInterval is the sampling cadence when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Service samples host vitals on its own ticker and writes them into
// the shared machine state.
type Service struct {
	Interval time.Duration
	State    *state.State
}

// New constructs a host vitals service with DefaultInterval.
func New(st *state.State) *Service {
	return &Service{Interval: DefaultInterval, State: st}
}

// Run samples host vitals every Interval until ctx is cancelled,
// matching the periodic-service pattern other slower-cadence
// producers (GNSS) also follow.
func (s *Service) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Service) sample(ctx context.Context) {
	vitals := state.HostVitals{UpdatedAt: time.Now()}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		vitals.UptimeSeconds = uptime
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		vitals.MemoryUsedBytes = vm.Used
		vitals.MemoryTotalBytes = vm.Total
	}
	if sm, err := mem.SwapMemoryWithContext(ctx); err == nil {
		vitals.SwapUsedBytes = sm.Used
		vitals.SwapTotalBytes = sm.Total
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		vitals.CPULoad1 = avg.Load1
		vitals.CPULoad5 = avg.Load5
		vitals.CPULoad15 = avg.Load15
	}

	s.State.SetHost(vitals)
}
