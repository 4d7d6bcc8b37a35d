// Package mapping converts instantaneous power samples into controller
// actuation levels.
//
// Two policies exist: a continuous one that scales power against the rider's
// FTP onto an analog trigger axis, and an edge-triggered one that latches a
// button on a power threshold. Both are selected at startup via Mode and stay
// fixed for the session.
package mapping

import "fmt"

// Mode selects which mapping policy drives the virtual controller.
type Mode string

const (
	// ModeTrigger scales power linearly onto the right-trigger axis.
	ModeTrigger Mode = "trigger"
	// ModeButton presses a button while power holds above the threshold.
	ModeButton Mode = "button"
)

// ParseMode validates a mode string from config or CLI flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTrigger, ModeButton:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mapping mode %q: use %q or %q", s, ModeTrigger, ModeButton)
	}
}

// TriggerMax is the full-scale analog trigger value.
const TriggerMax = 255

// LinearTrigger scales power against FTP into an analog trigger level.
// Power below Threshold maps to zero so coasting noise does not move the axis.
type LinearTrigger struct {
	FTP       float64
	Threshold float64
}

// Ratio returns the trigger position in [0, 1] for a power sample.
func (m LinearTrigger) Ratio(watts int) float64 {
	p := float64(watts)
	if p < m.Threshold {
		return 0
	}
	r := p / m.FTP
	if r > 1 {
		r = 1
	}
	if r < 0 {
		r = 0
	}
	return r
}

// Level returns the trigger position scaled to the [0, TriggerMax] axis range.
func (m LinearTrigger) Level(watts int) uint8 {
	return uint8(m.Ratio(watts) * TriggerMax)
}

// ThresholdButton latches a button on a power threshold.
//
// Transition is edge-triggered: it reports a change only when the sample
// crosses the threshold relative to the previous state, so repeated samples
// on the same side never re-emit the same command. The latch persists for the
// lifetime of the session.
type ThresholdButton struct {
	Threshold float64

	pressed bool
}

// Pressed returns the current latched state.
func (m *ThresholdButton) Pressed() bool {
	return m.pressed
}

// Transition feeds one power sample into the latch. The returned pressed
// value is the new state; changed is true only when the state flipped and a
// controller command must be emitted.
func (m *ThresholdButton) Transition(watts int) (pressed, changed bool) {
	next := float64(watts) >= m.Threshold
	if next == m.pressed {
		return m.pressed, false
	}
	m.pressed = next
	return next, true
}
