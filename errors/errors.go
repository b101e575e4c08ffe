package errors

import "fmt"

var (
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrWorkerGaveUp = fmt.Errorf("worker gave up after repeated failures")
	ErrEmptyWords   = fmt.Errorf("no words have been found")

	// Authentication
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrAlreadyConnected  = fmt.Errorf("identity already connected")
	ErrRoomFull          = fmt.Errorf("room is full")
	ErrTokenInvalid      = fmt.Errorf("token invalid")
	ErrTokenExpired      = fmt.Errorf("token expired")
	ErrTokenGeneration   = fmt.Errorf("token generation failed")

	// Validation
	ErrInvalidMessage  = fmt.Errorf("invalid message")
	ErrPayloadTooLarge = fmt.Errorf("payload too large")

	// Protocol
	ErrUnauthenticated  = fmt.Errorf("unauthenticated")
	ErrAlreadyLoggedIn  = fmt.Errorf("connection already logged in")
	ErrMalformedFrame   = fmt.Errorf("malformed frame")
	ErrUnknownEvent     = fmt.Errorf("unknown event")
	ErrInvalidSignaling = fmt.Errorf("invalid signaling payload")

	// Transport
	ErrSinkClosed = fmt.Errorf("connection sink closed")
	ErrSinkFull   = fmt.Errorf("connection buffer full, frame dropped")

	// Configuration
	ErrEmptyCredentials     = fmt.Errorf("credential table is empty")
	ErrDuplicateIdentity    = fmt.Errorf("duplicate identity in credential table")
	ErrDuplicateSecret      = fmt.Errorf("duplicate secret in credential table")
	ErrMalformedCredentials = fmt.Errorf("malformed credential entry")
	ErrInvalidHash          = fmt.Errorf("invalid hash format")
)
