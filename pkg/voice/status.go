package voice

// ConnectionStatus represents the current state of a live conversation.
type ConnectionStatus int

const (
	// StatusIdle is the initial state before a connection is attempted.
	StatusIdle ConnectionStatus = iota
	// StatusConnecting is when the websocket dial and handshake are in flight.
	StatusConnecting
	// StatusConnected is when the handshake completed and the session is live.
	StatusConnected
	// StatusListening is when microphone audio is streaming to the service.
	StatusListening
	// StatusSpeaking is when assistant audio is being played back.
	StatusSpeaking
	// StatusMuted is when the microphone is muted but the session stays open.
	StatusMuted
	// StatusClosing is when an orderly shutdown is in progress.
	StatusClosing
	// StatusClosed is when the session ended normally.
	StatusClosed
	// StatusFailed is when the session ended with an error.
	StatusFailed
)

// String returns a human-readable status name.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusListening:
		return "LISTENING"
	case StatusSpeaking:
		return "SPEAKING"
	case StatusMuted:
		return "MUTED"
	case StatusClosing:
		return "CLOSING"
	case StatusClosed:
		return "CLOSED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is an end state. No transitions
// happen out of a terminal status.
func (s ConnectionStatus) Terminal() bool {
	return s == StatusClosed || s == StatusFailed
}

// Live reports whether the session is usable for sending audio or control
// messages.
func (s ConnectionStatus) Live() bool {
	switch s {
	case StatusConnected, StatusListening, StatusSpeaking, StatusMuted:
		return true
	default:
		return false
	}
}
