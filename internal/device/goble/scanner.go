package goble

import (
	"context"

	ble "github.com/go-ble/ble"

	"github.com/Landixus/potato/internal/device"
)

// bleScanner implements device.Scanner on the shared HCI device.
type bleScanner struct{}

// NewScanner creates a device.Scanner backed by go-ble.
func NewScanner() (device.Scanner, error) {
	if err := ensureDefaultDevice(); err != nil {
		return nil, NormalizeError(err)
	}
	return &bleScanner{}, nil
}

// Scan converts go-ble advertisements to device.Advertisement and forwards
// them to handler until ctx expires.
func (s *bleScanner) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	bleHandler := func(adv ble.Advertisement) {
		handler(NewAdvertisement(adv))
	}
	if err := ble.Scan(ctx, allowDup, bleHandler, nil); err != nil {
		return NormalizeError(err)
	}
	return nil
}
