package main

import (
	"errors"
	"fmt"

	"github.com/Landixus/potato/internal/bridge"
	"github.com/Landixus/potato/internal/device"
)

// FormatUserError turns a classified error into a message a user can act on,
// without the wrapped transport noise.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is powered off. Turn it on and try again."
	case errors.Is(err, bridge.ErrScanTimeout):
		return "no BLE devices found - is the trainer awake? Spin the pedals and try again"
	case errors.Is(err, bridge.ErrDeviceNotFound):
		return fmt.Sprintf("%s\nAdjust device_names in the config file (or --devices) to match your trainer's advertised name; 'potato scan' lists nearby devices.", err)
	case errors.Is(err, bridge.ErrConnectionFailed):
		return fmt.Sprintf("could not connect to the trainer: %s", err)
	case errors.Is(err, bridge.ErrSubscribeFailed):
		return fmt.Sprintf("connected, but the trainer refused power notifications: %s", err)
	case errors.Is(err, bridge.ErrConnectionLost):
		return "connection to the trainer was lost - restart to reconnect"
	default:
		return err.Error()
	}
}
