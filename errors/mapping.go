package errors

import stderrors "errors"

// Wire codes sent to clients alongside the human-readable error.
const (
	CodeInvalidCredential = "invalid_credential"
	CodeAlreadyConnected  = "already_connected"
	CodeRoomFull          = "room_full"
	CodeTokenInvalid      = "token_invalid"
	CodeTokenExpired      = "token_expired"
	CodeInvalidMessage    = "invalid_message"
	CodePayloadTooLarge   = "payload_too_large"
	CodeUnauthenticated   = "unauthenticated"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidCredential, CodeInvalidCredential},
	{ErrAlreadyConnected, CodeAlreadyConnected},
	{ErrRoomFull, CodeRoomFull},
	{ErrTokenInvalid, CodeTokenInvalid},
	{ErrTokenExpired, CodeTokenExpired},
	{ErrInvalidMessage, CodeInvalidMessage},
	{ErrPayloadTooLarge, CodePayloadTooLarge},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrAlreadyLoggedIn, CodeBadRequest},
	{ErrMalformedFrame, CodeBadRequest},
	{ErrUnknownEvent, CodeBadRequest},
	{ErrInvalidSignaling, CodeBadRequest},
}

// Code maps an error to the code carried in login-error, message-error and error events.
func Code(err error) string {
	for _, c := range codes {
		if stderrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsTerminal reports whether the client should give up on the current login attempt.
func IsTerminal(err error) bool {
	return stderrors.Is(err, ErrRoomFull) || stderrors.Is(err, ErrAlreadyConnected)
}
