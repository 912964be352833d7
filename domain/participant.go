// Package domain contains core concepts of the messaging system.
// This file defines the identities of participants and of their live connections.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// UserID identifies a registered account. It is owned by the account subsystem
// and never contains the conversation separator.
type UserID string

func (u UserID) String() string { return string(u) }

// ConnectionID is the opaque handle of one live transport connection (one per device or tab).
type ConnectionID string

func (c ConnectionID) String() string { return string(c) }

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// ConnectionState follows a connection from transport connect to disconnect.
type ConnectionState int

const (
	Connected ConnectionState = iota
	Registered
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Registered:
		return "registered"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
