package keymap

import (
	"fmt"

	evdev "github.com/gvalkov/golang-evdev"
)

// evdevSource reads key events from a Linux evdev device node.
type evdevSource struct {
	dev *evdev.InputDevice
}

// OpenDevice opens an explicit evdev node, e.g. /dev/input/event3.
func OpenDevice(path string) (Source, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input device %s: %w", path, err)
	}
	return &evdevSource{dev: dev}, nil
}

// FindKeyboard picks the first input device that advertises the left arrow
// key, which in practice selects a real keyboard over mice and buttons.
func FindKeyboard() (Source, error) {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate input devices: %w", err)
	}

	for _, dev := range devices {
		if hasArrowKeys(dev) {
			return &evdevSource{dev: dev}, nil
		}
		_ = dev.File.Close()
	}
	return nil, fmt.Errorf("no keyboard-like input device found (check /dev/input permissions)")
}

func hasArrowKeys(dev *evdev.InputDevice) bool {
	for capType, codes := range dev.Capabilities {
		if capType.Type != evdev.EV_KEY {
			continue
		}
		for _, code := range codes {
			if code.Code == int(KeyLeft) {
				return true
			}
		}
	}
	return false
}

// Next blocks for the next key press or release. Autorepeat events are
// dropped so a held key does not flood the actuation queue.
func (s *evdevSource) Next() (Event, error) {
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			return Event{}, err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		const autorepeat = 2
		if ev.Value == autorepeat {
			continue
		}
		return Event{Code: ev.Code, Pressed: ev.Value != 0}, nil
	}
}

func (s *evdevSource) Close() error {
	return s.dev.File.Close()
}
