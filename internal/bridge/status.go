package bridge

// Status tracks the BLE session through its lifecycle. It only moves forward;
// StatusFailed and StatusDisconnected are terminal, so a stalled session is
// always distinguishable from a healthy one.
type Status int32

const (
	StatusIdle Status = iota
	StatusScanning
	StatusConnecting
	StatusConnected
	StatusSubscribed
	// StatusDisconnected is the terminal state after a clean shutdown or an
	// unrecoverable link loss.
	StatusDisconnected
	// StatusFailed is the terminal state after a stage failure (scan,
	// connect, or subscribe).
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusScanning:
		return "scanning"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusSubscribed:
		return "subscribed"
	case StatusDisconnected:
		return "disconnected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can make no further progress.
func (s Status) Terminal() bool {
	return s == StatusDisconnected || s == StatusFailed
}
