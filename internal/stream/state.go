package stream

import "fmt"

// StateKind enumera os estados do ciclo de vida da conexão
type StateKind int

const (
	StateDisconnected StateKind = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (k StateKind) String() string {
	switch k {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ConnectionState é o estado observável do stream.
// Attempt só é relevante em StateReconnecting.
type ConnectionState struct {
	Kind    StateKind
	Attempt int
}

func (s ConnectionState) String() string {
	if s.Kind == StateReconnecting {
		return fmt.Sprintf("reconnecting(attempt=%d)", s.Attempt)
	}
	return s.Kind.String()
}
