package director

// EStopStep names one action in the emergency stop sequence. The order
// is load-bearing: hydraulic lock engages before motion is stopped so
// no further commands can slip through, the travel alarm and strobe
// light come on only after the unit is physically locked down, and
// engine shutdown is always last so the machine can still be commanded
// to a safe hydraulic state while the engine spins down.
type EStopStep int

const (
	StepHydraulicLockOn EStopStep = iota
	StepMotionStopAll
	StepHydraulicBoostOff
	StepTravelAlarmOn
	StepStrobeLightOn
	StepEngineShutdown
)

// EStopSequence is the fixed, ordered emergency stop action list.
var EStopSequence = []EStopStep{
	StepHydraulicLockOn,
	StepMotionStopAll,
	StepHydraulicBoostOff,
	StepTravelAlarmOn,
	StepStrobeLightOn,
	StepEngineShutdown,
}

// EStopActions is the side-effecting callback set the caller supplies;
// CommandEmergencyStop invokes each in EStopSequence order and stops at
// the first error.
type EStopActions struct {
	HydraulicLock  func(on bool) error
	MotionStopAll  func() error
	HydraulicBoost func(on bool) error
	TravelAlarm    func(on bool) error
	StrobeLight    func(on bool) error
	EngineShutdown func() error
}

// CommandEmergencyStop runs the full emergency stop sequence in the
// mandated order, also forcing the director into Disabled mode so no
// further autonomous or supervised command can be issued once the
// sequence begins.
func (d *Director) CommandEmergencyStop(actions EStopActions) error {
	d.SetMode(Disabled)

	for _, step := range EStopSequence {
		var err error
		switch step {
		case StepHydraulicLockOn:
			err = actions.HydraulicLock(true)
		case StepMotionStopAll:
			err = actions.MotionStopAll()
		case StepHydraulicBoostOff:
			err = actions.HydraulicBoost(false)
		case StepTravelAlarmOn:
			err = actions.TravelAlarm(true)
		case StepStrobeLightOn:
			err = actions.StrobeLight(true)
		case StepEngineShutdown:
			err = actions.EngineShutdown()
		}
		if err != nil {
			return err
		}
	}
	return nil
}
