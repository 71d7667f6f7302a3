// Command vcud is the vehicle control unit daemon: it binds a single
// CAN network authority, runs the motion director, samples host and
// GNSS telemetry, and serves the wire protocol to external clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fenwick-robotics/vcu/internal/bus"
	"github.com/fenwick-robotics/vcu/internal/capture"
	"github.com/fenwick-robotics/vcu/internal/config"
	"github.com/fenwick-robotics/vcu/internal/datastore"
	"github.com/fenwick-robotics/vcu/internal/director"
	"github.com/fenwick-robotics/vcu/internal/drivers"
	"github.com/fenwick-robotics/vcu/internal/gnss"
	"github.com/fenwick-robotics/vcu/internal/host"
	"github.com/fenwick-robotics/vcu/internal/kinematics"
	"github.com/fenwick-robotics/vcu/internal/network"
	"github.com/fenwick-robotics/vcu/internal/state"
	"github.com/fenwick-robotics/vcu/internal/wire"
)

// Exit codes per the runtime's documented contract: 0 clean shutdown,
// 1 configuration error, 2 bind/setup failure, 3 a supervised task
// returned an error during steady-state operation.
const (
	exitOK int = iota
	exitConfigError
	exitBindError
	exitRuntimeError
)

// Fixed J1939 source addresses for the ECUs this unit talks to. The
// runtime's own source address is operator-configured; these are not.
const (
	addrEngine       uint8 = 0x00
	addrHydraulics   uint8 = 0x20
	addrFrameEncoder uint8 = 0x30
	addrBoomEncoder  uint8 = 0x31
	addrArmEncoder   uint8 = 0x32
	addrInclinometer uint8 = 0x40
)

// jointConfig describes one encoder's scaling into a joint angle, per
// the (range_raw, range_rad, offset_rad, invert) quadruple.
type jointConfig struct {
	address  uint8
	joint    string
	rangeRaw uint32
	rangeRad float64
	offset   float64
	invert   bool
}

// jointAngleTracker holds the last encoder-derived angle for each
// joint, together with when it was observed, computed on every
// EncoderReading and consumed once per director tick.
type jointAngleTracker struct {
	mu     sync.RWMutex
	angles map[string]director.JointAngle
}

func newJointAngleTracker() *jointAngleTracker {
	return &jointAngleTracker{angles: make(map[string]director.JointAngle)}
}

func (t *jointAngleTracker) set(joint string, angle float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.angles[joint] = director.JointAngle{Angle: angle, UpdatedAt: time.Now()}
}

func (t *jointAngleTracker) snapshot() map[string]director.JointAngle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]director.JointAngle, len(t.angles))
	for k, v := range t.angles {
		out[k] = v
	}
	return out
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("vcud: %v", err)
		os.Exit(exitConfigError)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := state.New()
	signals := bus.NewBroadcast(bus.DefaultLag)

	joints := []jointConfig{
		{address: addrFrameEncoder, joint: "frame", rangeRaw: 1 << 18, rangeRad: 2 * 3.141592653589793, offset: 0},
		{address: addrBoomEncoder, joint: "boom", rangeRaw: 1 << 18, rangeRad: 1.8, offset: 0.4},
		{address: addrArmEncoder, joint: "arm", rangeRaw: 1 << 18, rangeRad: 2.2, offset: 0.3, invert: true},
	}
	jointByAddress := make(map[uint8]jointConfig, len(joints))
	for _, j := range joints {
		jointByAddress[j.address] = j
	}

	angles := newJointAngleTracker()

	// authority and dir are filled in below; send closes over them by
	// pointer so a ModuleStatus::faulty signal can trigger the director's
	// emergency stop sequence without restructuring construction order.
	var authority *network.Authority
	var dir *director.Director
	send := func(sig drivers.Signal) {
		signals.Publish(sig)
		applySignal(st, jointByAddress, angles, sig)

		if status, ok := sig.(drivers.ModuleStatus); ok && status.Kind == drivers.ModuleFaulty {
			log.Printf("vcud: %s reported faulty: %v", status.Driver, status.Cause)
			if dir != nil && dir.Mode() != director.Disabled {
				// Trigger runs through authority's own Command bus, and
				// a faulty-status signal is itself delivered from inside
				// authority's locked dispatch/tick/health path, so the
				// stop sequence must run on its own goroutine to avoid
				// deadlocking back into that lock.
				go func() {
					if err := dir.CommandEmergencyStop(realEStopActions(authority)); err != nil {
						log.Printf("vcud: auto emergency stop failed: %v", err)
					}
				}()
			}
		}
	}

	var engineDriver drivers.Driver
	if cfg.Network.EngineVendor == "bosch" {
		engineDriver = drivers.NewBoschEMS(addrEngine, cfg.Network.SourceAddress)
	} else {
		engineDriver = drivers.NewEMS(addrEngine, cfg.Network.SourceAddress)
	}

	driverList := []drivers.Driver{
		engineDriver,
		drivers.NewHCU(addrHydraulics, cfg.Network.SourceAddress),
		drivers.NewEncoder(addrFrameEncoder, cfg.Network.SourceAddress),
		drivers.NewEncoder(addrBoomEncoder, cfg.Network.SourceAddress),
		drivers.NewEncoder(addrArmEncoder, cfg.Network.SourceAddress),
		drivers.NewInclinometer(addrInclinometer, cfg.Network.SourceAddress),
	}

	identity := network.Identity{
		SourceAddress:   cfg.Network.SourceAddress,
		SoftwareVersion: "1.0.0",
		ComponentID:     "fenwick-vcu",
		VehicleID:       "excavator",
	}

	authority = network.New(cfg.Network.Interface, identity, driverList, send)
	if err := authority.Bind(); err != nil {
		log.Printf("vcud: %v", err)
		return exitBindError
	}

	dir = director.New(st, []director.ActuatorBinding{
		{Joint: "frame", Channel: 0, Profile: director.LinearProfile{Scale: 4, Offset: 200, PowerMax: 1000}},
		{Joint: "boom", Channel: 1, Profile: director.LinearProfile{Scale: 4, Offset: 200, PowerMax: 1000}},
		{Joint: "arm", Channel: 2, Profile: director.LinearProfile{Scale: 4, Offset: 200, PowerMax: 1000}},
	}, cfg.Actor.BoomLength, cfg.Actor.ArmLength)

	var store datastore.Store
	if cfg.Datastore.SQLite.Path != "" || cfg.Datastore.InfluxDB.URL != "" {
		s, err := datastore.NewStore(&datastore.Config{
			SQLitePath:     cfg.Datastore.SQLite.Path,
			InfluxDBURL:    cfg.Datastore.InfluxDB.URL,
			InfluxDBOrg:    cfg.Datastore.InfluxDB.Org,
			InfluxDBToken:  cfg.Datastore.InfluxDB.Token,
			InfluxDBBucket: cfg.Datastore.InfluxDB.Bucket,
		})
		if err != nil {
			log.Printf("vcud: datastore unavailable, continuing without persistence: %v", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	var recorder *capture.Recorder
	if cfg.Capture.Enabled {
		filename := cfg.Capture.Filename
		if filename == "" {
			filename = cfg.SessionDir() + ".ndjson"
		}
		rec, err := capture.NewRecorder(filename, capture.Header{
			StartedAt: time.Now(),
			Interface: cfg.Network.Interface,
		})
		if err != nil {
			log.Printf("vcud: capture disabled, could not open %s: %v", filename, err)
		} else {
			recorder = rec
			defer recorder.Close()
		}
	}

	hostSvc := host.New(st)
	gnssSvc := gnss.New(st)

	server := &wire.Server{
		Instance: wire.Instance{ID: identity.ComponentID, Version: identity.SoftwareVersion, Serial: identity.VehicleID},
		Snapshot: func(want wire.MessageType) ([]byte, bool) { return snapshotFor(st, dir, want) },
		Failsafe: func() {
			log.Println("vcud: failsafe session disconnected abnormally, stopping all motion")
			_ = dir.CommandEmergencyStop(realEStopActions(authority))
		},
		Motion: func(payload []byte) error {
			return handleMotion(authority, cfg.Network.SourceAddress, payload)
		},
		Control: func(payload []byte) error {
			return handleControl(dir, st, authority, payload)
		},
		Signals: func() (<-chan []byte, func()) {
			raw, unsubscribe := signals.Subscribe()
			out := make(chan []byte)
			go func() {
				defer close(out)
				for sig := range raw {
					if encoded, ok := encodeSignal(sig); ok {
						out <- encoded
					}
				}
			}()
			return out, unsubscribe
		},
	}

	var debug *wire.DebugServer
	if cfg.Wire.HTTPBind != "" {
		debug = wire.NewDebugServer(func() bool { return true })
	}

	sched := bus.NewScheduler(ctx)

	sched.Go(func(ctx context.Context) error {
		return authority.Run(ctx, bus.DefaultTick)
	})
	if debug != nil {
		raw, unsubscribe := signals.Subscribe()
		sched.Go(func(ctx context.Context) error {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return nil
				case sig, ok := <-raw:
					if !ok {
						return nil
					}
					debug.Broadcast(sig)
				}
			}
		})
		sched.Go(func(ctx context.Context) error {
			httpServer := &http.Server{Addr: cfg.Wire.HTTPBind, Handler: debug.Router()}
			go func() {
				<-ctx.Done()
				httpServer.Close()
			}()
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	sched.Go(func(ctx context.Context) error {
		ticker := time.NewTicker(bus.DefaultTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				stepDirector(dir, st, angles, authority, recorder, cfg.Network.SourceAddress)
				stepGovernor(dir, st, authority, cfg.Governor.IdleRPM, cfg.Governor.RatedRPM)
			}
		}
	})
	sched.Go(func(ctx context.Context) error { return hostSvc.Run(ctx) })
	if cfg.GNSS.Device != "" {
		sched.Go(func(ctx context.Context) error {
			return gnssSvc.Run(ctx, gnss.Config{Device: cfg.GNSS.Device, Baud: cfg.GNSS.Baud})
		})
	}
	if cfg.Wire.Bind != "" {
		sched.Go(func(ctx context.Context) error { return server.ListenAndServe(ctx, cfg.Wire.Bind) })
	}
	if cfg.Wire.Socket != "" {
		sched.Go(func(ctx context.Context) error { return server.ListenAndServeUnix(ctx, cfg.Wire.Socket) })
	}

	if store != nil {
		sched.Go(func(ctx context.Context) error {
			return store.SaveSession(&datastore.SessionMeta{
				ID:            cfg.SessionDir(),
				StartedAt:     time.Now(),
				Interface:     cfg.Network.Interface,
				SoftwareBuild: identity.SoftwareVersion,
			})
		})
	}

	<-ctx.Done()
	log.Println("vcud: shutting down")
	sched.Shutdown()

	if err := sched.Wait(); err != nil {
		log.Printf("vcud: %v", err)
		return exitRuntimeError
	}
	return exitOK
}

// applySignal routes one produced signal into the shared machine
// state, decoding encoder readings into joint angles via the fixed
// per-joint scaling configuration.
func applySignal(st *state.State, joints map[uint8]jointConfig, angles *jointAngleTracker, sig drivers.Signal) {
	switch v := sig.(type) {
	case drivers.EngineController1:
		if v.RPM != nil {
			st.SetEngine(state.EngineTelemetry{RPM: *v.RPM, UpdatedAt: time.Now()})
		}
	case drivers.EncoderReading:
		j, ok := joints[v.Source]
		if !ok {
			return
		}
		rangeRad := j.rangeRad
		if j.invert {
			rangeRad = -rangeRad
		}
		angle := kinematics.EncoderScale(v.Position, j.rangeRaw, rangeRad, j.offset)
		st.SetEncoder(j.joint, state.EncoderSample{Position: v.Position, Speed: v.Speed, UpdatedAt: time.Now()})
		angles.set(j.joint, angle)
	}
}

// stepDirector advances the director one tick: it reads the current
// joint angles derived from the latest encoder readings, pops the
// active target (if any), and issues the resulting actuator command
// to the hydraulics driver.
func stepDirector(dir *director.Director, st *state.State, angles *jointAngleTracker, authority *network.Authority, recorder *capture.Recorder, sourceAddress uint8) {
	if dir.Mode() != director.Autonomous {
		return
	}

	current := angles.snapshot()
	if err := dir.CheckEncoderStaleness(current, realEStopActions(authority)); err != nil {
		log.Printf("vcud: %v", err)
		return
	}

	target, ok := st.PopTarget()
	if !ok {
		return
	}

	changes := dir.Step(current, &target)
	if len(changes) == 0 {
		return
	}

	frame := drivers.ActuatorFrame{}
	for _, c := range changes {
		if c.Channel < 0 || c.Channel >= drivers.ActuatorCount {
			continue
		}
		v := c.Value
		frame.Values[c.Channel] = &v
	}

	if err := authority.Trigger(addrHydraulics, frame); err != nil {
		log.Printf("vcud: actuator trigger failed: %v", err)
	}
	if recorder != nil {
		for _, f := range frame.Frames(addrHydraulics, sourceAddress) {
			_ = recorder.Record(f)
		}
	}
}

// handleMotion decodes a wire Motion object and issues the
// corresponding actuator command directly to the hydraulics driver,
// bypassing the director's own target-driven Step so an operator
// session can always stop or drive the machine.
func handleMotion(authority *network.Authority, sourceAddress uint8, payload []byte) error {
	m, ok := wire.DecodeMotion(payload)
	if !ok {
		return fmt.Errorf("vcud: malformed motion payload")
	}

	switch m.Kind {
	case wire.MotionStopAll:
		var frame drivers.ActuatorFrame
		for i := range frame.Values {
			zero := int16(0)
			frame.Values[i] = &zero
		}
		return authority.Trigger(addrHydraulics, frame)
	case wire.MotionResumeAll:
		return nil
	case wire.MotionResetAll:
		return nil
	case wire.MotionStraightDrive:
		var frame drivers.ActuatorFrame
		v := m.StraightDrive
		frame.Values[0] = &v
		return authority.Trigger(addrHydraulics, frame)
	case wire.MotionChange:
		var frame drivers.ActuatorFrame
		for _, u := range m.ActuatorUpdates {
			if int(u.Actuator) >= drivers.ActuatorCount {
				continue
			}
			v := u.Value
			frame.Values[u.Actuator] = &v
		}
		return authority.Trigger(addrHydraulics, frame)
	default:
		return fmt.Errorf("vcud: unknown motion kind %d", m.Kind)
	}
}

// handleControl decodes a wire Control object: a director mode switch,
// a queued IK target for Autonomous mode, or an operator-initiated
// emergency stop.
func handleControl(dir *director.Director, st *state.State, authority *network.Authority, payload []byte) error {
	c, ok := wire.DecodeControl(payload)
	if !ok {
		return fmt.Errorf("vcud: malformed control payload")
	}

	switch c.Kind {
	case wire.ControlSetMode:
		if c.Mode > uint8(director.Autonomous) {
			return fmt.Errorf("vcud: unknown director mode %d", c.Mode)
		}
		dir.SetMode(director.Mode(c.Mode))
		return nil
	case wire.ControlPushTarget:
		st.PushTarget(state.Target{X: c.X, Y: c.Y, Z: c.Z})
		return nil
	case wire.ControlEmergencyStop:
		return dir.CommandEmergencyStop(realEStopActions(authority))
	default:
		return fmt.Errorf("vcud: unknown control kind %d", c.Kind)
	}
}

// Digital on/off outputs carried on otherwise-unused HCU actuator-bank
// channels: 0-2 drive the frame/boom/arm joints and 3 is reserved for
// the attachment, so the emergency stop sequence's boost/alarm/strobe
// outputs are modeled as channels 4-6 rather than inventing a PGN no
// ECU on this network implements.
const (
	chHydraulicBoost = 4
	chTravelAlarm    = 5
	chStrobeLight    = 6
)

// boolChannelFrame builds an ActuatorFrame commanding a single digital
// channel on (1) or off (0), leaving every other channel unavailable.
func boolChannelFrame(channel int, on bool) drivers.ActuatorFrame {
	var frame drivers.ActuatorFrame
	v := int16(0)
	if on {
		v = 1
	}
	frame.Values[channel] = &v
	return frame
}

// realEStopActions wires the emergency stop sequence's six steps to
// actual CAN frames: the hydraulic lock/unlock channel on the HCU, an
// all-actuators stop, the boost/alarm/strobe digital outputs, and an
// engine shutdown request to the governor.
func realEStopActions(authority *network.Authority) director.EStopActions {
	return director.EStopActions{
		HydraulicLock: func(on bool) error {
			locked := on
			return authority.Trigger(addrHydraulics, drivers.MotionConfig{Locked: &locked})
		},
		MotionStopAll: func() error {
			var frame drivers.ActuatorFrame
			for i := range frame.Values {
				zero := int16(0)
				frame.Values[i] = &zero
			}
			return authority.Trigger(addrHydraulics, frame)
		},
		HydraulicBoost: func(on bool) error {
			return authority.Trigger(addrHydraulics, boolChannelFrame(chHydraulicBoost, on))
		},
		TravelAlarm: func(on bool) error {
			return authority.Trigger(addrHydraulics, boolChannelFrame(chTravelAlarm, on))
		},
		StrobeLight: func(on bool) error {
			return authority.Trigger(addrHydraulics, boolChannelFrame(chStrobeLight, on))
		},
		EngineShutdown: func() error {
			return authority.Trigger(addrEngine, drivers.GovernorRequest{State: drivers.GovernorStopping})
		},
	}
}

// stepGovernor derives the next engine request from the last observed
// RPM and issues it to the engine driver: rated RPM while the director
// is Autonomous, idle RPM otherwise, mirroring the excavator's own
// throttle-by-mode behavior since this wire protocol carries no
// separate operator throttle command.
func stepGovernor(dir *director.Director, st *state.State, authority *network.Authority, idleRPM, ratedRPM uint16) {
	desired := idleRPM
	if dir.Mode() == director.Autonomous {
		desired = ratedRPM
	}

	observed := st.Engine().RPM
	req := drivers.Governor(observed, desired)
	if err := authority.Trigger(addrEngine, req); err != nil {
		log.Printf("vcud: governor trigger failed: %v", err)
	}
}

// snapshotFor answers a wire Request for the given message type from
// the current machine state.
func snapshotFor(st *state.State, dir *director.Director, want wire.MessageType) ([]byte, bool) {
	switch want {
	case wire.MessageEngine:
		e := st.Engine()
		return []byte(fmt.Sprintf("rpm=%d", e.RPM)), true
	case wire.MessageStatus:
		return []byte(fmt.Sprintf("mode=%s locked=%v", dir.Mode(), st.Locked())), true
	case wire.MessageGNSS:
		fix := st.GNSS()
		return []byte(fmt.Sprintf("lat=%f lon=%f alt=%f", fix.Latitude, fix.Longitude, fix.Altitude)), true
	case wire.MessageHost:
		h := st.Host()
		return []byte(fmt.Sprintf("uptime=%d mem_used=%d", h.UptimeSeconds, h.MemoryUsedBytes)), true
	default:
		return nil, false
	}
}

// encodeSignal renders a produced signal as the compact wire payload
// streamed to subscribed sessions, per the metric-tag convention of
// the signal wire format.
func encodeSignal(sig drivers.Signal) ([]byte, bool) {
	switch v := sig.(type) {
	case drivers.EngineController1:
		if v.RPM == nil {
			return nil, false
		}
		return []byte(fmt.Sprintf("engine_rpm=%d", *v.RPM)), true
	case drivers.EncoderReading:
		return []byte(fmt.Sprintf("encoder[%d]=%d", v.Source, v.Position)), true
	default:
		return nil, false
	}
}
