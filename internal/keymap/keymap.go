// Package keymap forwards physical arrow keys to the virtual D-pad.
//
// The passthrough is entirely independent of the power-mapping pipeline; it
// shares only the actuation queue, which serializes both producers onto the
// virtual controller.
package keymap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Landixus/potato/internal/pad"
)

// Linux input event codes for the two keys the passthrough binds.
const (
	KeyLeft  uint16 = 105
	KeyRight uint16 = 106
)

// Event is a key state change read from the physical keyboard.
type Event struct {
	Code    uint16
	Pressed bool
}

// Source yields keyboard events. Next blocks until an event arrives; Close
// unblocks a pending Next with an error.
type Source interface {
	Next() (Event, error)
	Close() error
}

// Passthrough copies left/right arrow state to the D-pad buttons.
type Passthrough struct {
	source Source
	pad    *pad.Actuator
	logger *logrus.Logger
}

// New binds a keyboard source to the actuator.
func New(source Source, actuator *pad.Actuator, logger *logrus.Logger) *Passthrough {
	if logger == nil {
		logger = logrus.New()
	}
	return &Passthrough{source: source, pad: actuator, logger: logger}
}

// Run pumps key events until the source fails or ctx is cancelled. The
// source's Next has no context support, so Run closes the source itself on
// cancellation to unblock the pending read, then translates the resulting
// read error into a clean ctx.Err().
func (p *Passthrough) Run(ctx context.Context) error {
	p.logger.Debug("Keyboard passthrough started")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := p.source.Close(); err != nil {
				p.logger.WithError(err).Debug("Keyboard source close failed")
			}
		case <-done:
		}
	}()

	for {
		ev, err := p.source.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("keyboard read failed: %w", err)
		}

		switch ev.Code {
		case KeyLeft:
			p.pad.SetButton(pad.ButtonDpadLeft, ev.Pressed)
		case KeyRight:
			p.pad.SetButton(pad.ButtonDpadRight, ev.Pressed)
		default:
			// Not a bound key.
		}
	}
}
