package session

import "errors"

// State is the controller lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingStart
	StateInteractive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingStart:
		return "awaiting-start"
	case StateInteractive:
		return "interactive"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrConnection means the channel never opened or dropped before the
	// handshake completed.
	ErrConnection = errors.New("connection failure")
	// ErrHandshake means the start call was rejected or timed out.
	ErrHandshake = errors.New("handshake failure")
	// ErrChannelClosed means the channel dropped mid-session.
	ErrChannelClosed = errors.New("channel closed")

	ErrNoHost      = errors.New("session requires a host")
	ErrNoTransport = errors.New("session requires exactly one transport")
)
