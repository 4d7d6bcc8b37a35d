package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Landixus/potato/internal/cpm"
	"github.com/Landixus/potato/internal/device"
)

func TestMatchesName(t *testing.T) {
	tests := []struct {
		name    string
		devName string
		filters []string
		want    bool
	}{
		{
			name:    "matches first filter case-insensitively",
			devName: "WAHOO KICKR CORE",
			filters: []string{"KICKR", "WAHOO"},
			want:    true,
		},
		{
			name:    "matches second filter only",
			devName: "Wahoo Fitness",
			filters: []string{"KICKR", "WAHOO"},
			want:    true,
		},
		{
			name:    "substring match in mixed case",
			devName: "kickr core 1234",
			filters: []string{"KICKR"},
			want:    true,
		},
		{
			name:    "no filter matches",
			devName: "TACX NEO",
			filters: []string{"KICKR", "WAHOO"},
			want:    false,
		},
		{
			name:    "anonymous advertiser never matches",
			devName: "",
			filters: []string{"KICKR"},
			want:    false,
		},
		{
			name:    "empty filter entries are skipped",
			devName: "TACX NEO",
			filters: []string{"", "NEO"},
			want:    true,
		},
		{
			name:    "no filters",
			devName: "KICKR",
			filters: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesName(tt.devName, tt.filters))
		})
	}
}

// fakeAdvertisement is a minimal device.Advertisement for scan tests.
type fakeAdvertisement struct {
	name     string
	addr     string
	rssi     int
	services []string
}

func (a fakeAdvertisement) LocalName() string  { return a.name }
func (a fakeAdvertisement) Addr() string       { return a.addr }
func (a fakeAdvertisement) RSSI() int          { return a.rssi }
func (a fakeAdvertisement) Connectable() bool  { return true }
func (a fakeAdvertisement) Services() []string { return a.services }

// fakeScanningDevice replays advertisements into the handler, then waits for
// the scan context to expire, like a real radio would.
type fakeScanningDevice struct {
	advs []fakeAdvertisement
}

func (f *fakeScanningDevice) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	for _, adv := range f.advs {
		handler(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func withFakeDevice(t *testing.T, advs []fakeAdvertisement) {
	t.Helper()
	original := DeviceFactory
	DeviceFactory = func() (device.Scanner, error) {
		return &fakeScanningDevice{advs: advs}, nil
	}
	t.Cleanup(func() { DeviceFactory = original })
}

func TestScanner_CollectsAndDeduplicatesDevices(t *testing.T) {
	// GOAL: Verify repeated advertisements collapse into one entry per address
	// and that the deadline ends the scan without error.
	withFakeDevice(t, []fakeAdvertisement{
		{name: "WAHOO KICKR CORE", addr: "aa:aa", rssi: -60, services: []string{cpm.ServiceUUID}},
		{name: "WAHOO KICKR CORE", addr: "aa:aa", rssi: -58, services: []string{cpm.ServiceUUID}},
		{name: "TACX NEO", addr: "bb:bb", rssi: -70},
	})

	s, err := NewScanner(quietLogger())
	require.NoError(t, err)

	devices, err := s.Scan(context.Background(), &ScanOptions{Duration: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	require.Len(t, devices, 2)
	assert.Equal(t, "WAHOO KICKR CORE", devices["aa:aa"].Name)
	assert.Equal(t, -58, devices["aa:aa"].RSSI, "latest advertisement wins")
	assert.Equal(t, "TACX NEO", devices["bb:bb"].Name)
}

func TestScanner_ServiceFilter(t *testing.T) {
	withFakeDevice(t, []fakeAdvertisement{
		{name: "WAHOO KICKR CORE", addr: "aa:aa", services: []string{"0000181800001000800000805f9b34fb"}},
		{name: "Some Headphones", addr: "cc:cc", services: []string{"0000110b00001000800000805f9b34fb"}},
	})

	s, err := NewScanner(quietLogger())
	require.NoError(t, err)

	devices, err := s.Scan(context.Background(), &ScanOptions{
		Duration:     50 * time.Millisecond,
		ServiceUUIDs: []string{cpm.ServiceUUID},
	}, nil)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Contains(t, devices, "aa:aa")
}

func TestScanner_NameFilter(t *testing.T) {
	withFakeDevice(t, []fakeAdvertisement{
		{name: "WAHOO KICKR CORE", addr: "aa:aa"},
		{name: "TACX NEO", addr: "bb:bb"},
	})

	s, err := NewScanner(quietLogger())
	require.NoError(t, err)

	devices, err := s.Scan(context.Background(), &ScanOptions{
		Duration:    50 * time.Millisecond,
		NameFilters: []string{"KICKR", "WAHOO"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Contains(t, devices, "aa:aa")
}

func TestScanner_AnonymousFramesKeepKnownName(t *testing.T) {
	// Advertisers alternating between named and anonymous frames must not
	// lose their name in the result map.
	withFakeDevice(t, []fakeAdvertisement{
		{name: "WAHOO KICKR CORE", addr: "aa:aa", rssi: -60},
		{name: "", addr: "aa:aa", rssi: -55},
	})

	s, err := NewScanner(quietLogger())
	require.NoError(t, err)

	devices, err := s.Scan(context.Background(), &ScanOptions{Duration: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Equal(t, "WAHOO KICKR CORE", devices["aa:aa"].Name)
	assert.Equal(t, -55, devices["aa:aa"].RSSI)
}

func TestScanner_EmitsDiscoveryEvents(t *testing.T) {
	withFakeDevice(t, []fakeAdvertisement{
		{name: "WAHOO KICKR CORE", addr: "aa:aa"},
		{name: "WAHOO KICKR CORE", addr: "aa:aa"},
	})

	s, err := NewScanner(quietLogger())
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), &ScanOptions{Duration: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ev := <-s.Events()
	assert.Equal(t, EventNew, ev.Type)
	assert.Equal(t, "aa:aa", ev.Device.Address)

	ev = <-s.Events()
	assert.Equal(t, EventUpdated, ev.Type)
}
