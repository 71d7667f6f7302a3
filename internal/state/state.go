// Package state holds the machine's shared, mutable view of the world:
// engine telemetry, GNSS fix, host vitals, per-joint encoder readings,
// and the motion target queue the director drains. All of it lives
// behind a single reader/writer lock so every subsystem observes a
// mutually consistent snapshot.
package state

import (
	"sync"
	"time"

	"github.com/fenwick-robotics/vcu/internal/drivers"
)

// EngineTelemetry is the last-observed engine reading plus the
// governor's current request.
type EngineTelemetry struct {
	RPM       uint16
	Requested drivers.GovernorRequest
	UpdatedAt time.Time
}

// GNSSFix is the last decoded GNSS position.
type GNSSFix struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	UpdatedAt time.Time
}

// HostVitals is the last sampled host resource snapshot.
type HostVitals struct {
	UptimeSeconds    uint64
	MemoryUsedBytes  uint64
	MemoryTotalBytes uint64
	SwapUsedBytes    uint64
	SwapTotalBytes   uint64
	CPULoad1         float64
	CPULoad5         float64
	CPULoad15        float64
	UpdatedAt        time.Time
}

// EncoderSample is the last reading for one joint's rotary encoder.
type EncoderSample struct {
	Position  uint32
	Speed     uint16
	UpdatedAt time.Time
}

// Target is one queued motion waypoint for the Autonomous director
// mode: a Cartesian arm-tip position (meters, machine world frame) the
// inverse kinematics solver converges the frame/boom/arm joints to.
type Target struct {
	X, Y, Z float64
}

// State is the single shared, mutable machine state. Every field is
// only ever mutated while holding mu; readers take an RLock, and write
// regions are kept as small as the critical section actually requires.
type State struct {
	mu sync.RWMutex

	engine   EngineTelemetry
	gnss     GNSSFix
	host     HostVitals
	encoders map[string]EncoderSample
	targets  []Target
	locked   bool
}

// New returns an empty machine state.
func New() *State {
	return &State{encoders: make(map[string]EncoderSample)}
}

// Engine returns a copy of the current engine telemetry.
func (s *State) Engine() EngineTelemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetEngine records a new engine telemetry reading.
func (s *State) SetEngine(e EngineTelemetry) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// GNSS returns a copy of the last GNSS fix.
func (s *State) GNSS() GNSSFix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gnss
}

// SetGNSS records a new GNSS fix.
func (s *State) SetGNSS(fix GNSSFix) {
	s.mu.Lock()
	s.gnss = fix
	s.mu.Unlock()
}

// Host returns a copy of the last host vitals sample.
func (s *State) Host() HostVitals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

// SetHost records a new host vitals sample.
func (s *State) SetHost(h HostVitals) {
	s.mu.Lock()
	s.host = h
	s.mu.Unlock()
}

// Encoder returns the last sample for the named joint and whether one
// has ever been recorded.
func (s *State) Encoder(joint string) (EncoderSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.encoders[joint]
	return e, ok
}

// SetEncoder records a new sample for the named joint.
func (s *State) SetEncoder(joint string, sample EncoderSample) {
	s.mu.Lock()
	s.encoders[joint] = sample
	s.mu.Unlock()
}

// PushTarget appends a waypoint to the autonomous target queue.
func (s *State) PushTarget(t Target) {
	s.mu.Lock()
	s.targets = append(s.targets, t)
	s.mu.Unlock()
}

// PopTarget removes and returns the oldest queued target, if any.
func (s *State) PopTarget() (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.targets) == 0 {
		return Target{}, false
	}
	t := s.targets[0]
	s.targets = s.targets[1:]
	return t, true
}

// DrainTargets empties the target queue, discarding its contents. This
// is invoked whenever the director leaves Autonomous mode, per the
// settled open question that such a transition must not leave stale
// waypoints behind for the next autonomous session.
func (s *State) DrainTargets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.targets)
	s.targets = nil
	return n
}

// Locked reports whether the hydraulic motion lock is currently
// engaged.
func (s *State) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// SetLocked updates the hydraulic motion lock flag.
func (s *State) SetLocked(locked bool) {
	s.mu.Lock()
	s.locked = locked
	s.mu.Unlock()
}
