// Package domain contains core concepts of the relay.
// This file defines participant identities and the per-connection session states.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is the stable name a secret credential resolves to.
type Identity string

func (i Identity) String() string {
	return string(i)
}

// Token is the signed session token handed out on login.
type Token string

func (t Token) String() string {
	return string(t)
}

// SessionState is the lifecycle of one transport connection.
type SessionState int

const (
	Connected SessionState = iota
	Authenticated
	Joined
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	case Joined:
		return "joined"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
