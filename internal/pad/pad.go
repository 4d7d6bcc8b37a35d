// Package pad owns the virtual game controller.
//
// Two independent producers feed the controller: the BLE notification
// pipeline (trigger or button, depending on the mapping mode) and the
// keyboard passthrough (D-pad). Neither touches the underlying device
// directly; both enqueue Intent values and a single Actuator goroutine owns
// the Sink, so the virtual-HID driver never sees concurrent writers.
package pad

import "fmt"

// Button identifies a controller button the bridge can actuate.
type Button int

const (
	// ButtonA is the south face button, pressed in threshold mapping mode.
	ButtonA Button = iota
	// ButtonDpadLeft and ButtonDpadRight are driven by the keyboard passthrough.
	ButtonDpadLeft
	ButtonDpadRight
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "a"
	case ButtonDpadLeft:
		return "dpad-left"
	case ButtonDpadRight:
		return "dpad-right"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// Sink is a virtual game controller. State changes become visible to
// consumers of the virtual device only after Commit; SetTrigger and SetButton
// merely stage them.
type Sink interface {
	// SetTrigger stages the right-trigger axis position, 0..255.
	SetTrigger(value uint8) error
	// SetButton stages a button state.
	SetButton(b Button, pressed bool) error
	// Commit applies all staged changes to the virtual device.
	Commit() error
	Close() error
}

// IntentKind discriminates actuation intents.
type IntentKind int

const (
	IntentTrigger IntentKind = iota
	IntentButton
)

// Intent is one actuation request queued for the Actuator.
type Intent struct {
	Kind    IntentKind
	Value   uint8 // trigger level, IntentTrigger only
	Button  Button
	Pressed bool
}

func (in Intent) String() string {
	if in.Kind == IntentTrigger {
		return fmt.Sprintf("trigger=%d", in.Value)
	}
	return fmt.Sprintf("%s pressed=%t", in.Button, in.Pressed)
}
