// Package device defines the BLE transport abstraction the bridge runs on.
// The concrete go-ble backed implementation lives in the goble subpackage;
// tests substitute fakes through the same interfaces.
package device

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Advertisement is the subset of a BLE advertisement the bridge cares about.
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Connectable() bool
	Services() []string
}

// Scanner scans for advertisements until ctx is done, invoking handler for
// each one received.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

// NotificationHandler receives raw characteristic values on the BLE event
// goroutine. The data slice is only valid for the duration of the call.
type NotificationHandler func(data []byte)

// Connection is an established GATT connection with a discovered profile.
type Connection interface {
	// Subscribe enables notifications for the characteristic with the given
	// UUID anywhere in the discovered profile.
	Subscribe(charUUID string, handler NotificationHandler) error
	// Done is closed when the underlying link drops or the connection is
	// torn down.
	Done() <-chan struct{}
	Disconnect() error
	Address() string
}

// Dialer establishes connections to peripherals by address.
type Dialer interface {
	Dial(ctx context.Context, address string, timeout time.Duration) (Connection, error)
}

// Sentinel errors shared across backends.
var (
	ErrBluetoothOff = errors.New("bluetooth is turned off")
	ErrNotConnected = errors.New("device not connected")
	// ErrCharacteristicNotFound is returned by Subscribe when the discovered
	// profile has no characteristic with the requested UUID.
	ErrCharacteristicNotFound = errors.New("characteristic not found")
	// ErrNotifyUnsupported is returned by Subscribe when the characteristic
	// exists but does not advertise the notify property.
	ErrNotifyUnsupported = errors.New("characteristic does not support notifications")
)

// NormalizeUUID converts a UUID string to the internal comparison format:
// lowercase, no dashes. go-ble renders UUIDs without dashes while the
// Bluetooth SIG constants carry them; normalizing both sides makes equality
// checks trivial.
func NormalizeUUID(uuid string) string {
	return strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
}

// UUIDEqual compares two UUID strings regardless of case and dashes.
func UUIDEqual(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// ShortenUUID returns a truncated UUID for display purposes.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
