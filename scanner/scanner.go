// Package scanner handles BLE device discovery and trainer name matching.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/Landixus/potato/internal/device"
	"github.com/Landixus/potato/internal/device/goble"
	"github.com/Landixus/potato/internal/ringchan"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceFactory creates the scanning transport; a var so tests can plug in a
// fake advertisement source.
var DeviceFactory = func() (device.Scanner, error) {
	return goble.NewScanner()
}

// FoundDevice is a snapshot of a discovered advertiser.
type FoundDevice struct {
	Name        string
	Address     string
	RSSI        int
	Connectable bool
	Services    []string
	LastSeen    time.Time
}

// DisplayName returns the advertised name, falling back to the address for
// anonymous advertisers.
func (d FoundDevice) DisplayName() string {
	if d.Name == "" {
		return d.Address
	}
	return d.Name
}

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

// DeviceEvent is one discovery observation streamed via Events.
type DeviceEvent struct {
	Type      DeviceEventType
	Device    FoundDevice
	Timestamp time.Time
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration
	DuplicateFilter bool
	// ServiceUUIDs, when set, restricts results to advertisers carrying at
	// least one of these service UUIDs.
	ServiceUUIDs []string
	// NameFilters, when set, restricts results to advertised names matching
	// any filter (case-insensitive substring).
	NameFilters []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration:        10 * time.Second,
		DuplicateFilter: true,
	}
}

// Scanner handles BLE device discovery
type Scanner struct {
	devices *hashmap.Map[string, FoundDevice]
	events  *ringchan.RingChannel[DeviceEvent]
	logger  *logrus.Logger

	scanOptions *ScanOptions
}

// NewScanner creates a new BLE scanner
func NewScanner(logger *logrus.Logger) (*Scanner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		events: ringchan.New[DeviceEvent](100),
		logger: logger,
	}, nil
}

// Scan performs BLE discovery for opts.Duration and returns the devices seen,
// keyed by address. A context deadline or cancellation ends the scan early
// without error; discovery order is nondeterministic.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) (map[string]FoundDevice, error) {
	s.devices = hashmap.New[string, FoundDevice]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")
	progressCallback("Scanning")

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	scanCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.scanOptions = opts
	defer func() {
		s.scanOptions = nil
	}()
	err = dev.Scan(scanCtx, opts.DuplicateFilter, s.handleAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan completed")
	progressCallback("Processing results")

	devices := make(map[string]FoundDevice, s.devices.Len())
	s.devices.Range(func(key string, value FoundDevice) bool {
		devices[key] = value
		return true
	})

	return devices, nil
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv device.Advertisement) {
	if !s.shouldIncludeDevice(adv, s.scanOptions) {
		return
	}

	addr := adv.Addr()
	entry := FoundDevice{
		Name:        adv.LocalName(),
		Address:     addr,
		RSSI:        adv.RSSI(),
		Connectable: adv.Connectable(),
		Services:    adv.Services(),
		LastSeen:    time.Now(),
	}

	prev, existing := s.devices.Get(addr)
	if existing && entry.Name == "" {
		// Some advertisers alternate between named and anonymous frames.
		entry.Name = prev.Name
	}
	s.devices.Set(addr, entry)

	event := DeviceEvent{
		Device:    entry,
		Timestamp: entry.LastSeen,
	}
	if existing {
		event.Type = EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  entry.DisplayName(),
			"address": addr,
			"rssi":    entry.RSSI,
		}).Info("Discovered new device")
		event.Type = EventNew
	}

	s.events.ForceSend(event)
}

// shouldIncludeDevice applies the name and service filters
func (s *Scanner) shouldIncludeDevice(adv device.Advertisement, opts *ScanOptions) bool {
	if opts == nil {
		return true
	}

	if len(opts.NameFilters) > 0 && !MatchesName(adv.LocalName(), opts.NameFilters) {
		return false
	}

	if len(opts.ServiceUUIDs) > 0 {
		hasRequired := false
		for _, required := range opts.ServiceUUIDs {
			for _, advUUID := range adv.Services() {
				if device.UUIDEqual(required, advUUID) {
					hasRequired = true
					break
				}
			}
			if hasRequired {
				break
			}
		}
		if !hasRequired {
			return false
		}
	}

	return true
}

// Events returns a read-only channel of device events
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events.C()
}

// MatchesName reports whether an advertised device name contains any of the
// filters, compared case-insensitively. Anonymous advertisers never match.
func MatchesName(name string, filters []string) bool {
	if name == "" {
		return false
	}
	upper := strings.ToUpper(name)
	for _, f := range filters {
		if f == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(f)) {
			return true
		}
	}
	return false
}
