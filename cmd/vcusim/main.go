// Command vcusim drives a SocketCAN interface (typically vcan0) with
// simulated J1939 traffic from an engine controller, three rotary
// encoders, and an inclinometer, so vcud and vcuctl can be exercised
// without real hardware attached.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/fenwick-robotics/vcu/internal/canraw"
	"github.com/fenwick-robotics/vcu/internal/drivers"
	"github.com/fenwick-robotics/vcu/internal/j1939"
)

const (
	simAddrEngine       uint8 = 0x00
	simAddrFrame        uint8 = 0x30
	simAddrBoom         uint8 = 0x31
	simAddrArm          uint8 = 0x32
	simAddrInclinometer uint8 = 0x40
)

func main() {
	iface := flag.String("iface", "vcan0", "SocketCAN interface to drive")
	period := flag.Duration("period", 100*time.Millisecond, "frame emission period")
	flag.Parse()

	sock, err := canraw.Open(*iface)
	if err != nil {
		log.Fatalf("vcusim: %v", err)
	}
	defer sock.Close()

	sim := &simulator{rpm: 800, framePos: 0, boomPos: 1 << 16, armPos: 1 << 16}

	ticker := time.NewTicker(*period)
	defer ticker.Stop()
	for range ticker.C {
		for _, f := range sim.tick() {
			if err := sock.Send(f); err != nil {
				log.Printf("vcusim: send: %v", err)
			}
		}
	}
}

// simulator holds the evolving state of the simulated machine: engine
// speed and the three joint encoder positions, each randomly walked
// within a plausible range every tick.
type simulator struct {
	rpm      uint16
	framePos uint32
	boomPos  uint32
	armPos   uint32
	tickNum  int
}

func (s *simulator) tick() []j1939.Frame {
	s.tickNum++

	s.rpm = walkUint16(s.rpm, 150, 700, 2200)
	s.framePos = walkUint32(s.framePos, 2000, 0, 1<<18)
	s.boomPos = walkUint32(s.boomPos, 2000, 0, 1<<18)
	s.armPos = walkUint32(s.armPos, 2000, 0, 1<<18)

	rpm := s.rpm
	frames := []j1939.Frame{
		drivers.EngineController1{RPM: &rpm}.Frame(simAddrEngine),
		drivers.EncoderReading{Position: s.framePos, Speed: 0}.Frame(simAddrFrame),
		drivers.EncoderReading{Position: s.boomPos, Speed: 0}.Frame(simAddrBoom),
		drivers.EncoderReading{Position: s.armPos, Speed: 0}.Frame(simAddrArm),
	}

	pitch := int16(500 * math.Sin(float64(s.tickNum)/50))
	roll := int16(200 * math.Cos(float64(s.tickNum)/70))
	frames = append(frames, inclinometerFrame(pitch, roll))

	return frames
}

// inclinometerFrame hand-encodes a tilt PDU: pitch/roll in
// milliradians, little-endian, matching ParseInclinometerReading.
func inclinometerFrame(pitch, roll int16) j1939.Frame {
	pdu := make([]byte, 8)
	pdu[0] = byte(uint16(pitch))
	pdu[1] = byte(uint16(pitch) >> 8)
	pdu[2] = byte(uint16(roll))
	pdu[3] = byte(uint16(roll) >> 8)
	for i := 4; i < 8; i++ {
		pdu[i] = j1939.NotAvailable
	}
	return j1939.Encode(j1939.PGNInclinometerTilt, 6, simAddrInclinometer, j1939.Broadcast, pdu)
}

func walkUint16(current, maxStep, min, max uint16) uint16 {
	step := rand.Intn(int(2*maxStep+1)) - int(maxStep)
	v := int(current) + step
	if v < int(min) {
		v = int(min)
	}
	if v > int(max) {
		v = int(max)
	}
	return uint16(v)
}

func walkUint32(current, maxStep, min, max uint32) uint32 {
	step := int64(rand.Intn(int(2*maxStep+1))) - int64(maxStep)
	v := int64(current) + step
	if v < int64(min) {
		v = int64(min)
	}
	if v > int64(max) {
		v = int64(max)
	}
	return uint32(v)
}
