// Package bridge runs the BLE power-meter session: discover the trainer,
// connect, subscribe to the Cycling Power Measurement characteristic, and
// translate every notification into virtual-controller actuation.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Landixus/potato/internal/cpm"
	"github.com/Landixus/potato/internal/device"
	"github.com/Landixus/potato/internal/device/goble"
	"github.com/Landixus/potato/internal/mapping"
	"github.com/Landixus/potato/internal/pad"
	"github.com/Landixus/potato/scanner"
)

// Stage failure taxonomy. Each maps one-to-one onto a session stage; Run
// wraps the underlying cause so errors.Is works on both.
var (
	// ErrScanTimeout means the scan window elapsed without any device
	// being enumerated at all.
	ErrScanTimeout = errors.New("scan timed out without discovering any device")
	// ErrDeviceNotFound means devices were discovered, but none matched the
	// configured name filters.
	ErrDeviceNotFound = errors.New("no device matched the configured names")
	// ErrConnectionFailed wraps transport-level connect errors.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrSubscribeFailed wraps characteristic subscription errors.
	ErrSubscribeFailed = errors.New("subscription failed")
	// ErrConnectionLost means the link dropped after the session was
	// established. There is no reconnect; the session is over.
	ErrConnectionLost = errors.New("connection lost")
)

// Config holds the session parameters, fixed for the session lifetime.
type Config struct {
	DeviceNames    []string
	FTP            float64
	Threshold      float64
	Mode           mapping.Mode
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration
}

// PowerCallback receives every decoded sample together with the resulting
// trigger ratio (0 or 1 in button mode). It runs on the BLE notification
// goroutine and must not block.
type PowerCallback func(watts int, ratio float64)

// Option configures optional Session behavior.
type Option func(*Session)

// WithPowerCallback registers a live feedback callback.
func WithPowerCallback(cb PowerCallback) Option {
	return func(s *Session) { s.onPower = cb }
}

// WithDialer overrides the BLE transport, used by tests.
func WithDialer(d device.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithProgress registers a scan/connect phase callback for CLI progress
// display.
func WithProgress(cb scanner.ProgressCallback) Option {
	return func(s *Session) { s.progress = cb }
}

// Session is one attempt to bridge a power meter to the virtual controller.
// There is no retry at any stage: the first failure is terminal for the
// process lifetime, but it is *visible* - the status transitions to
// StatusFailed and Run returns the classified error.
type Session struct {
	cfg      Config
	actuator *pad.Actuator
	scanner  *scanner.Scanner
	dialer   device.Dialer
	logger   *logrus.Logger

	status   atomic.Int32
	onPower  PowerCallback
	progress scanner.ProgressCallback

	linear mapping.LinearTrigger
	button mapping.ThresholdButton
}

// NewSession wires a session against the given actuator.
func NewSession(cfg Config, actuator *pad.Actuator, logger *logrus.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Mode == "" {
		cfg.Mode = mapping.ModeTrigger
	}
	if cfg.Mode == mapping.ModeTrigger && cfg.FTP <= 0 {
		return nil, fmt.Errorf("FTP must be positive in %s mode, got %v", mapping.ModeTrigger, cfg.FTP)
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	sc, err := scanner.NewScanner(logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		actuator: actuator,
		scanner:  sc,
		logger:   logger,
		linear:   mapping.LinearTrigger{FTP: cfg.FTP, Threshold: cfg.Threshold},
		button:   mapping.ThresholdButton{Threshold: cfg.Threshold},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = goble.NewDialer(logger)
	}
	return s, nil
}

// Status returns the current session state. Safe for concurrent use.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

func (s *Session) setStatus(st Status) {
	s.status.Store(int32(st))
	s.logger.WithField("status", st.String()).Debug("Session status changed")
}

// Run drives the session to completion: it returns nil only when ctx was
// cancelled by the operator after a healthy subscription, and a classified
// stage error otherwise. Run blocks until the session ends.
func (s *Session) Run(ctx context.Context) error {
	target, err := s.discover(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Operator interrupt during discovery is a clean shutdown.
			s.setStatus(StatusDisconnected)
			return err
		}
		s.setStatus(StatusFailed)
		return err
	}

	s.setStatus(StatusConnecting)
	conn, err := s.dialer.Dial(ctx, target.Address, s.cfg.ConnectTimeout)
	if err != nil {
		s.setStatus(StatusFailed)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	s.setStatus(StatusConnected)
	s.logger.WithFields(logrus.Fields{
		"device":  target.DisplayName(),
		"address": target.Address,
	}).Info("Connected to trainer")

	if err := conn.Subscribe(cpm.MeasurementUUID, s.handleNotification); err != nil {
		s.setStatus(StatusFailed)
		if dErr := conn.Disconnect(); dErr != nil {
			s.logger.WithError(dErr).Warn("Failed to disconnect after subscription failure")
		}
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	s.setStatus(StatusSubscribed)
	s.logger.Info("Receiving power notifications")

	// Steady state: all work happens in the notification callback. Hold the
	// connection until the operator interrupts or the link drops.
	select {
	case <-ctx.Done():
		s.setStatus(StatusDisconnected)
		if err := conn.Disconnect(); err != nil && !errors.Is(err, device.ErrNotConnected) {
			s.logger.WithError(err).Warn("Disconnect on shutdown failed")
		}
		return nil
	case <-conn.Done():
		s.setStatus(StatusDisconnected)
		return ErrConnectionLost
	}
}

// discover scans for the configured duration and picks the first device whose
// advertised name matches any configured filter. Discovery order is
// nondeterministic; any matching trainer is acceptable.
func (s *Session) discover(ctx context.Context) (scanner.FoundDevice, error) {
	s.setStatus(StatusScanning)

	devices, err := s.scanner.Scan(ctx, &scanner.ScanOptions{
		Duration:        s.cfg.ScanTimeout,
		DuplicateFilter: true,
	}, s.progress)
	if err != nil {
		// Transport failures (adapter off, HCI errors) keep their own
		// identity; ErrScanTimeout is reserved for an empty scan window.
		return scanner.FoundDevice{}, fmt.Errorf("discovery failed: %w", err)
	}
	if ctx.Err() != nil {
		return scanner.FoundDevice{}, context.Canceled
	}
	if len(devices) == 0 {
		return scanner.FoundDevice{}, ErrScanTimeout
	}

	for _, d := range devices {
		if scanner.MatchesName(d.Name, s.cfg.DeviceNames) {
			s.logger.WithFields(logrus.Fields{
				"device":  d.Name,
				"address": d.Address,
				"rssi":    d.RSSI,
			}).Info("Found matching trainer")
			return d, nil
		}
	}

	return scanner.FoundDevice{}, fmt.Errorf("%w: searched for %s among %d devices",
		ErrDeviceNotFound, strings.Join(s.cfg.DeviceNames, ", "), len(devices))
}

// handleNotification is the per-notification pipeline: decode, map, enqueue.
// It runs on the BLE event goroutine; the actuator queue keeps it from ever
// touching the virtual device directly.
func (s *Session) handleNotification(data []byte) {
	watts := cpm.ParsePower(data)

	var ratio float64
	switch s.cfg.Mode {
	case mapping.ModeButton:
		if pressed, changed := s.button.Transition(watts); changed {
			s.actuator.SetButton(pad.ButtonA, pressed)
		}
		if s.button.Pressed() {
			ratio = 1
		}
	default:
		ratio = s.linear.Ratio(watts)
		s.actuator.SetTrigger(s.linear.Level(watts))
	}

	if s.onPower != nil {
		s.onPower(watts, ratio)
	}
}
