package goble

import (
	"context"
	"fmt"
	"time"

	ble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/Landixus/potato/internal/device"
	"github.com/Landixus/potato/internal/groutine"
)

// bleDialer implements device.Dialer on the shared HCI device.
type bleDialer struct {
	logger *logrus.Logger
}

// NewDialer creates a device.Dialer backed by go-ble.
func NewDialer(logger *logrus.Logger) device.Dialer {
	if logger == nil {
		logger = logrus.New()
	}
	return &bleDialer{logger: logger}
}

// Dial connects to the peripheral at address, discovers its full GATT
// profile, and starts a link monitor that closes the connection context when
// the peripheral drops.
func (d *bleDialer) Dial(ctx context.Context, address string, timeout time.Duration) (device.Connection, error) {
	if err := ensureDefaultDevice(); err != nil {
		return nil, NormalizeError(err)
	}

	d.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": timeout,
	}).Info("Connecting to BLE device...")

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ble.Dial(dialCtx, ble.NewAddr(address))
	if err != nil {
		return nil, NormalizeError(fmt.Errorf("failed to connect to %q: %w", address, err))
	}

	d.logger.WithField("address", address).Debug("Discovering services and characteristics...")
	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			d.logger.WithError(cancelErr).Warn("Failed to cancel connection after discovery failure")
		}
		return nil, NormalizeError(fmt.Errorf("failed to discover profile: %w", err))
	}

	connCtx, connCancel := context.WithCancel(ctx)
	conn := &bleConnection{
		client:  client,
		profile: profile,
		address: address,
		logger:  d.logger,
		ctx:     connCtx,
		cancel:  connCancel,
	}

	// The monitor outlives dialCtx on purpose: link loss must be observable
	// for the whole connection lifetime.
	groutine.Go(ctx, "ble-link-monitor", func(monitorCtx context.Context) {
		select {
		case <-client.Disconnected():
			d.logger.WithField("address", address).Warn("BLE link lost")
			connCancel()
		case <-connCtx.Done():
		}
	})

	d.logger.WithFields(logrus.Fields{
		"address":  address,
		"services": len(profile.Services),
	}).Info("BLE device connected")
	return conn, nil
}

// bleConnection implements device.Connection over a live ble.Client.
type bleConnection struct {
	client  ble.Client
	profile *ble.Profile
	address string
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func (c *bleConnection) Address() string {
	return c.address
}

func (c *bleConnection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Subscribe looks the characteristic up in the discovered profile and enables
// notifications on it.
func (c *bleConnection) Subscribe(charUUID string, handler device.NotificationHandler) error {
	char := c.findCharacteristic(charUUID)
	if char == nil {
		return fmt.Errorf("%w: %s", device.ErrCharacteristicNotFound, device.ShortenUUID(device.NormalizeUUID(charUUID)))
	}
	if char.Property&ble.CharNotify == 0 {
		return fmt.Errorf("%w: %s", device.ErrNotifyUnsupported, device.ShortenUUID(device.NormalizeUUID(charUUID)))
	}

	err := c.client.Subscribe(char, false, func(data []byte) {
		handler(data)
	})
	if err != nil {
		return NormalizeError(fmt.Errorf("failed to subscribe to %s: %w", device.ShortenUUID(device.NormalizeUUID(charUUID)), err))
	}

	c.logger.WithField("char_uuid", device.NormalizeUUID(charUUID)).Info("Subscribed to characteristic notifications")
	return nil
}

func (c *bleConnection) findCharacteristic(charUUID string) *ble.Characteristic {
	for _, svc := range c.profile.Services {
		for _, char := range svc.Characteristics {
			if device.UUIDEqual(char.UUID.String(), charUUID) {
				return char
			}
		}
	}
	return nil
}

func (c *bleConnection) Disconnect() error {
	c.cancel()
	return NormalizeError(c.client.CancelConnection())
}
