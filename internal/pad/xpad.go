package pad

import (
	"fmt"
	"strings"

	"github.com/bendahl/uinput"
)

// Microsoft Xbox 360 wired controller IDs; games probing vendor/product will
// treat the virtual pad as a stock X360 controller.
const (
	xpadVendorID  = 0x045e
	xpadProductID = 0x028e
)

const uinputPath = "/dev/uinput"

// triggerMax is the full-scale trigger value fed into SetTrigger.
const triggerMax = 255.0

// gamepadDevice is the subset of uinput.Gamepad the sink drives. Tests
// substitute a fake; production uses the real virtual device.
type gamepadDevice interface {
	ButtonDown(key int) error
	ButtonUp(key int) error
	RightStickMoveY(value float32) error
	Close() error
}

// XPad is a uinput-backed Sink emulating an Xbox 360 class controller.
//
// The virtual gamepad exposes no analog trigger axis, so the throttle is
// carried on the right stick's Y axis instead: released maps to center (0)
// and a full pull to full deflection (1.0). Games bind it like any other
// analog accelerator axis.
//
// SetTrigger and SetButton stage state; Commit diffs against the last
// committed state and only forwards actual changes to the kernel, so
// redundant commands never reach the virtual device.
type XPad struct {
	dev gamepadDevice

	pendingTrigger *uint8
	pendingButtons map[Button]bool

	trigger uint8
	buttons map[Button]bool
}

// NewXPad creates the virtual controller device. Requires write access to
// /dev/uinput.
func NewXPad(name string) (*XPad, error) {
	dev, err := uinput.CreateGamepad(uinputPath, []byte(name), xpadVendorID, xpadProductID)
	if err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			return nil, fmt.Errorf("cannot open %s (add your user to the input/uinput group or run with elevated privileges): %w", uinputPath, err)
		}
		return nil, fmt.Errorf("failed to create virtual gamepad: %w", err)
	}

	return newXPad(dev), nil
}

func newXPad(dev gamepadDevice) *XPad {
	return &XPad{
		dev:            dev,
		pendingButtons: make(map[Button]bool),
		buttons:        make(map[Button]bool),
	}
}

func (x *XPad) SetTrigger(value uint8) error {
	v := value
	x.pendingTrigger = &v
	return nil
}

func (x *XPad) SetButton(b Button, pressed bool) error {
	x.pendingButtons[b] = pressed
	return nil
}

// Commit applies staged changes to the kernel device.
func (x *XPad) Commit() error {
	if x.pendingTrigger != nil {
		if v := *x.pendingTrigger; v != x.trigger {
			if err := x.dev.RightStickMoveY(float32(v) / triggerMax); err != nil {
				return fmt.Errorf("trigger axis: %w", err)
			}
			x.trigger = v
		}
		x.pendingTrigger = nil
	}

	for b, pressed := range x.pendingButtons {
		if x.buttons[b] == pressed {
			continue
		}
		var err error
		if pressed {
			err = x.dev.ButtonDown(keycode(b))
		} else {
			err = x.dev.ButtonUp(keycode(b))
		}
		if err != nil {
			return fmt.Errorf("button %s: %w", b, err)
		}
		x.buttons[b] = pressed
	}
	clear(x.pendingButtons)

	return nil
}

func (x *XPad) Close() error {
	return x.dev.Close()
}

func keycode(b Button) int {
	switch b {
	case ButtonA:
		return uinput.ButtonSouth
	case ButtonDpadLeft:
		return uinput.ButtonDpadLeft
	case ButtonDpadRight:
		return uinput.ButtonDpadRight
	default:
		return uinput.ButtonSouth
	}
}
