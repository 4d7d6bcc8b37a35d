package goble

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ble "github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Landixus/potato/internal/device"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name       string
		input      error
		wantIs     error
		wantSubstr string
	}{
		{
			name:       "hci down maps to bluetooth off",
			input:      fmt.Errorf("can't scan: HCI device is down"),
			wantIs:     device.ErrBluetoothOff,
			wantSubstr: "bluetooth is turned off",
		},
		{
			name:       "disconnected maps to not connected",
			input:      fmt.Errorf("ATT request failed: peer disconnected"),
			wantIs:     device.ErrNotConnected,
			wantSubstr: "device not connected",
		},
		{
			name:       "unknown errors pass through",
			input:      fmt.Errorf("some other failure"),
			wantSubstr: "some other failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NormalizeError(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSubstr)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.NotErrorIs(t, err, device.ErrBluetoothOff)
				assert.NotErrorIs(t, err, device.ErrNotConnected)
			}
		})
	}

	assert.NoError(t, NormalizeError(nil))
}

func TestNewScanner_PropagatesFactoryError(t *testing.T) {
	// GOAL: Verify HCI setup failures surface through NewScanner instead of
	// panicking later inside ble.Scan.
	originalFactory := DeviceFactory
	defer func() {
		DeviceFactory = originalFactory
		resetDefaultDevice()
	}()

	DeviceFactory = func() (ble.Device, error) {
		return nil, errors.New("no adapter present")
	}
	resetDefaultDevice()

	_, err := NewScanner()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter present")
}

func TestDialer_PropagatesFactoryError(t *testing.T) {
	originalFactory := DeviceFactory
	defer func() {
		DeviceFactory = originalFactory
		resetDefaultDevice()
	}()

	DeviceFactory = func() (ble.Device, error) {
		return nil, errors.New("no adapter present")
	}
	resetDefaultDevice()

	d := NewDialer(nil)
	_, err := d.Dial(context.Background(), "aa:bb:cc:dd:ee:ff", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter present")
}
