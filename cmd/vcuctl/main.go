// Command vcuctl is the operator's wire-protocol client: it connects
// to a running vcud instance to ping it, pull a status snapshot, issue
// motion or mode-control commands, and it also carries the standalone
// capture/replay/analyze and raw-bus diagnostic subcommands.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/fenwick-robotics/vcu/internal/analysis"
	"github.com/fenwick-robotics/vcu/internal/canraw"
	"github.com/fenwick-robotics/vcu/internal/capture"
	"github.com/fenwick-robotics/vcu/internal/wire"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "echo":
		err = runEcho(args)
	case "status":
		err = runStatus(args)
	case "motion":
		err = runMotion(args)
	case "control":
		err = runControl(args)
	case "netdump":
		err = runNetdump(args)
	case "replay":
		err = runReplay(args)
	case "analyze":
		err = runAnalyze(args)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("vcuctl %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vcuctl <echo|status|motion|control|netdump|replay|analyze> [flags]")
}

// dial opens a wire-protocol session against addr, declaring the
// capabilities requested by the caller.
func dial(addr, name string, flags wire.SessionFlags) (net.Conn, wire.Instance, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, wire.Instance{}, fmt.Errorf("dial %s: %w", addr, err)
	}

	req := wire.Frame{Version: wire.Version, MessageType: wire.MessageSession, Payload: wire.EncodeSession(wire.Session{Flags: flags, Name: name})}
	if _, err := req.WriteTo(conn); err != nil {
		conn.Close()
		return nil, wire.Instance{}, fmt.Errorf("send session: %w", err)
	}

	reply, err := wire.ReadFrame(conn)
	if err != nil {
		conn.Close()
		return nil, wire.Instance{}, fmt.Errorf("read instance: %w", err)
	}
	if reply.MessageType != wire.MessageInstance {
		conn.Close()
		return nil, wire.Instance{}, fmt.Errorf("expected instance reply, got type %d", reply.MessageType)
	}
	return conn, wire.DecodeInstance(reply.Payload), nil
}

func runEcho(args []string) error {
	fs := flag.NewFlagSet("echo", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:30051", "vcud wire-protocol address")
	fs.Parse(args)

	conn, instance, err := dial(*addr, "vcuctl-echo", wire.SessionFlags{})
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Printf("connected to %s %s (serial %s)\n", instance.ID, instance.Version, instance.Serial)

	start := time.Now()
	payload := wire.EncodeEcho(uint32(time.Now().UnixNano() & 0xFFFFFFFF))
	if _, err := (wire.Frame{Version: wire.Version, MessageType: wire.MessageEcho, Payload: payload}).WriteTo(conn); err != nil {
		return err
	}
	reply, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	if reply.MessageType != wire.MessageEcho {
		return fmt.Errorf("expected echo reply, got type %d", reply.MessageType)
	}
	fmt.Printf("round trip: %s\n", time.Since(start))
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:30051", "vcud wire-protocol address")
	kind := fs.String("type", "status", "snapshot type: status|engine|gnss|host")
	fs.Parse(args)

	want, ok := messageTypeByName(*kind)
	if !ok {
		return fmt.Errorf("unknown snapshot type %q", *kind)
	}

	conn, _, err := dial(*addr, "vcuctl-status", wire.SessionFlags{})
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Frame{Version: wire.Version, MessageType: wire.MessageRequest, Payload: wire.EncodeRequest(want)}
	if _, err := req.WriteTo(conn); err != nil {
		return err
	}
	reply, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	fmt.Println(string(reply.Payload))
	return nil
}

func messageTypeByName(name string) (wire.MessageType, bool) {
	switch name {
	case "status":
		return wire.MessageStatus, true
	case "engine":
		return wire.MessageEngine, true
	case "gnss":
		return wire.MessageGNSS, true
	case "host":
		return wire.MessageHost, true
	default:
		return 0, false
	}
}

func runMotion(args []string) error {
	fs := flag.NewFlagSet("motion", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:30051", "vcud wire-protocol address")
	kind := fs.String("kind", "stop", "stop|resume|reset|straight|change")
	value := fs.Int("value", 0, "straight-drive power value")
	actuator := fs.Int("actuator", 0, "actuator channel for kind=change")
	fs.Parse(args)

	var m wire.Motion
	switch *kind {
	case "stop":
		m = wire.Motion{Kind: wire.MotionStopAll}
	case "resume":
		m = wire.Motion{Kind: wire.MotionResumeAll}
	case "reset":
		m = wire.Motion{Kind: wire.MotionResetAll}
	case "straight":
		m = wire.Motion{Kind: wire.MotionStraightDrive, StraightDrive: int16(*value)}
	case "change":
		m = wire.Motion{Kind: wire.MotionChange, ActuatorUpdates: []wire.ActuatorUpdate{{Actuator: uint8(*actuator), Value: int16(*value)}}}
	default:
		return fmt.Errorf("unknown motion kind %q", *kind)
	}

	conn, _, err := dial(*addr, "vcuctl-motion", wire.SessionFlags{Control: true})
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Frame{Version: wire.Version, MessageType: wire.MessageMotion, Payload: wire.EncodeMotion(m)}
	_, err = req.WriteTo(conn)
	return err
}

func runControl(args []string) error {
	fs := flag.NewFlagSet("control", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:30051", "vcud wire-protocol address")
	mode := fs.String("mode", "", "set director mode: disabled|supervised|autonomous")
	target := fs.Bool("target", false, "push an IK arm-tip target")
	x := fs.Float64("x", 0, "target X (meters) for -target")
	y := fs.Float64("y", 0, "target Y (meters) for -target")
	z := fs.Float64("z", 0, "target Z (meters) for -target")
	estop := fs.Bool("estop", false, "issue an emergency stop")
	fs.Parse(args)

	var c wire.Control
	switch {
	case *estop:
		c = wire.Control{Kind: wire.ControlEmergencyStop}
	case *mode != "":
		m, ok := directorModeByName(*mode)
		if !ok {
			return fmt.Errorf("unknown director mode %q", *mode)
		}
		c = wire.Control{Kind: wire.ControlSetMode, Mode: m}
	case *target:
		c = wire.Control{Kind: wire.ControlPushTarget, X: *x, Y: *y, Z: *z}
	default:
		return fmt.Errorf("specify one of -estop, -mode, or -target")
	}

	conn, _, err := dial(*addr, "vcuctl-control", wire.SessionFlags{Command: true})
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Frame{Version: wire.Version, MessageType: wire.MessageControl, Payload: wire.EncodeControl(c)}
	_, err = req.WriteTo(conn)
	return err
}

func directorModeByName(name string) (uint8, bool) {
	switch name {
	case "disabled":
		return 0, true
	case "supervised":
		return 1, true
	case "autonomous":
		return 2, true
	default:
		return 0, false
	}
}

func runNetdump(args []string) error {
	fs := flag.NewFlagSet("netdump", flag.ExitOnError)
	iface := fs.String("iface", "can0", "SocketCAN interface to read from")
	count := fs.Int("count", 0, "stop after this many frames (0 = unbounded)")
	fs.Parse(args)

	sock, err := canraw.Open(*iface)
	if err != nil {
		return err
	}
	defer sock.Close()

	for i := 0; *count == 0 || i < *count; i++ {
		f, err := sock.Recv()
		if err != nil {
			return err
		}
		fmt.Println(canraw.FormatFrame(f))
	}
	return nil
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	file := fs.String("file", "", "capture file to replay")
	speed := fs.Float64("speed", 1.0, "replay speed multiplier")
	iface := fs.String("iface", "", "if set, replay onto this SocketCAN interface instead of printing")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("specify -file")
	}

	header, frames, err := capture.ReadAll(*file)
	if err != nil {
		return err
	}
	fmt.Printf("replaying %d frames recorded on %s starting %s\n", len(frames), header.Interface, header.StartedAt)

	replayer := capture.NewReplayer(frames)
	replayer.SetSpeed(*speed)

	var sock *canraw.Socket
	if *iface != "" {
		sock, err = canraw.Open(*iface)
		if err != nil {
			return err
		}
		defer sock.Close()
	}

	return replayer.Play(func(f capture.Frame) {
		wireFrame := f.Wire()
		if sock != nil {
			if err := sock.Send(wireFrame); err != nil {
				log.Printf("replay: send: %v", err)
			}
			return
		}
		fmt.Println(canraw.FormatFrame(wireFrame))
	})
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "capture file to analyze")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("specify -file")
	}

	header, frames, err := capture.ReadAll(*file)
	if err != nil {
		return err
	}
	report := analysis.Analyze(header, frames)

	fmt.Printf("Session: %s (%s)\n", header.SessionID, header.Interface)
	fmt.Printf("Duration: %s\n", report.Duration)
	fmt.Printf("Total frames: %d (%.1f frames/sec)\n", report.TotalFrames, report.FrameRate)
	fmt.Printf("Unique PGNs: %d\n", report.BusActivity.UniquePGNs)
	fmt.Printf("Bus load: %.2f%%\n", report.BusActivity.BusLoadPct)
	fmt.Printf("Max inter-frame gap: %s\n", report.BusActivity.MaxGap)
	if report.EngineSpeed.Samples > 0 {
		fmt.Printf("Engine speed: min=%.0f max=%.0f mean=%.0f rpm (%d samples)\n",
			report.EngineSpeed.Min, report.EngineSpeed.Max, report.EngineSpeed.Mean, report.EngineSpeed.Samples)
	}
	return nil
}
