// Package goble implements the device abstraction on top of go-ble/ble.
package goble

import (
	"fmt"
	"strings"
	"sync"

	ble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// DeviceFactory creates the HCI device. It is a variable so tests can
// substitute a mock transport.
var DeviceFactory = func() (ble.Device, error) {
	dev, err := linux.NewDevice()
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			return nil, fmt.Errorf("cannot open HCI device (missing CAP_NET_RAW? try setcap or run as root): %w", err)
		}
		return nil, err
	}
	return dev, nil
}

var (
	defaultDeviceMu  sync.Mutex
	defaultDeviceSet bool
)

// ensureDefaultDevice creates the HCI device once and registers it with the
// ble package. Scan and Dial both need it; creating a second HCI handle on
// the same adapter fails on Linux.
func ensureDefaultDevice() error {
	defaultDeviceMu.Lock()
	defer defaultDeviceMu.Unlock()

	if defaultDeviceSet {
		return nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return fmt.Errorf("failed to create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)
	defaultDeviceSet = true
	return nil
}

// resetDefaultDevice is a test hook undoing ensureDefaultDevice.
func resetDefaultDevice() {
	defaultDeviceMu.Lock()
	defer defaultDeviceMu.Unlock()
	defaultDeviceSet = false
}
