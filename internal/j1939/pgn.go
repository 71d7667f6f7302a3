package j1939

// Well-known Parameter Group Numbers used across the driver registry.
// Names follow SAE J1939-71/-21 terminology.
const (
	PGNTorqueSpeedControl1          uint32 = 0x0000
	PGNElectronicBrakeController1   uint32 = 0xF001
	PGNElectronicEngineController2  uint32 = 0xF003
	PGNElectronicEngineController1  uint32 = 0xF004
	PGNElectronicTransmissionCtrl2  uint32 = 0xF005
	PGNElectronicEngineController3  uint32 = 0xF105
	PGNFanDrive                     uint32 = 0xFEEE
	PGNVehicleDistance              uint32 = 0xFEE0
	PGNShutdown                     uint32 = 0xFE4D
	PGNTimeDate                     uint32 = 0xFEE6
	PGNSoftwareIdentification       uint32 = 0xFEDA
	PGNComponentIdentification      uint32 = 0xFEEB
	PGNVehicleIdentification        uint32 = 0xFEEC
	PGNAddressClaimed               uint32 = 0xEE00
	PGNRequest                      uint32 = 0xEA00

	// Proprietary vendor-specific messages used by the Vecraft-brand
	// ECUs (hydraulic control unit, inclinometer) for ident/reboot,
	// factory reset, and motion lock/reset configuration respectively.
	PGNProprietaryConfigurableMsg1 uint32 = 0xFF00 // ident on/off, reboot
	PGNProprietaryConfigurableMsg2 uint32 = 0xFF01 // factory reset
	PGNProprietaryConfigurableMsg3 uint32 = 0xFF02 // motion lock/reset

	// PGNVecraftStatus is the Vecraft ECU status broadcast (state,
	// motion lock, uptime), PGN 65288.
	PGNVecraftStatus uint32 = 0xFF08

	// PGNEncoderProcessData is the Kübler encoder process data PGN
	// (position/speed/state), PGN 65450.
	PGNEncoderProcessData uint32 = 0xFFAA

	// PGNInclinometerTilt is the inclinometer's pitch/roll broadcast.
	PGNInclinometerTilt uint32 = 0xFFAB

	// Actuator banks: the HCU addresses two independent banks of four
	// actuator channels each.
	PGNActuatorBank1 uint32 = 0xA000 // 40960
	PGNActuatorBank2 uint32 = 0xA100 // 41216

	// TP.CM / TP.DT transport protocol PGNs (multi-packet frame assembly).
	PGNTPConnManagement uint32 = 0xEC00
	PGNTPDataTransfer   uint32 = 0xEB00
)

// Request builds a PGN 0xEA00 request frame asking the given destination
// to transmit the named PGN.
func Request(da, sa uint8, pgn uint32) Frame {
	payload := []byte{
		byte(pgn),
		byte(pgn >> 8),
		byte(pgn >> 16),
	}
	return Encode(PGNRequest, 6, sa, da, payload).Normalized()
}
