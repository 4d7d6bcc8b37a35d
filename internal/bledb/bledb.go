// Package bledb names well-known Bluetooth SIG services so scan output can
// show "Cycling Power" instead of a raw UUID. Coverage is limited to services
// commonly advertised by trainers, sensors, and the devices seen next to them
// on a workbench.
package bledb

import (
	"strings"

	"github.com/Landixus/potato/internal/device"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID
// 0000xxxx-0000-1000-8000-00805f9b34fb in normalized form.
const sigBaseSuffix = "00001000800000805f9b34fb"

// serviceNames is keyed by the 16-bit short form of SIG-base UUIDs.
var serviceNames = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180f": "Battery",
	"1812": "HID",
	"1816": "Cycling Speed and Cadence",
	"1818": "Cycling Power",
	"1826": "Fitness Machine",
}

// ShortForm reduces a UUID to its 16-bit short form when it sits on the SIG
// base, and to the normalized full form otherwise. Accepts 0x prefixes,
// braces, dashes, and any case.
func ShortForm(uuid string) string {
	s := device.NormalizeUUID(uuid)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	s = strings.TrimPrefix(s, "0x")

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}

// ServiceName returns a human-readable name for a service UUID, or a
// shortened form of the UUID when it is not a known SIG service.
func ServiceName(uuid string) string {
	short := ShortForm(uuid)
	if name, ok := serviceNames[short]; ok {
		return name
	}
	return device.ShortenUUID(short)
}
