// Package cpm decodes the Bluetooth Cycling Power Measurement characteristic.
//
// Only the instantaneous power field is consumed; the flags field and the
// optional fields that may follow (pedal power balance, torque, revolution
// data) are ignored.
package cpm

import "encoding/binary"

// Bluetooth SIG assigned UUIDs for the Cycling Power service.
const (
	ServiceUUID     = "00001818-0000-1000-8000-00805f9b34fb"
	MeasurementUUID = "00002a63-0000-1000-8000-00805f9b34fb"
)

// The measurement packet starts with a uint16 flags field; instantaneous
// power follows as a sint16, both little-endian.
const powerOffset = 2

// ParsePower extracts instantaneous power in watts from a raw measurement
// packet. Packets too short to carry the power field decode to 0 watts;
// malformed input never produces an error.
func ParsePower(data []byte) int {
	if len(data) < powerOffset+2 {
		return 0
	}
	return int(int16(binary.LittleEndian.Uint16(data[powerOffset : powerOffset+2])))
}
