package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pair-relay/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pion/webrtc/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type decodeFunc func(raw json.RawMessage) (any, error)

// inbound lists every event a client may send; anything else is rejected.
var inbound = map[Type]decodeFunc{
	LoginType:            decodeAs[LoginRequest](errors.ErrInvalidCredential),
	JoinType:             decodeAs[JoinRequest](errors.ErrMalformedFrame),
	MessageType:          decodeAs[MessageRequest](errors.ErrInvalidMessage),
	SeenOnceViewedType:   decodeAs[MessageRef](errors.ErrMalformedFrame),
	PhotoViewedType:      decodeAs[MessageRef](errors.ErrMalformedFrame),
	EphemeralClosedType:  decodeAs[MessageRef](errors.ErrMalformedFrame),
	OfferType:            decodeSessionDescription(webrtc.SDPTypeOffer),
	AnswerType:           decodeSessionDescription(webrtc.SDPTypeAnswer),
	IceCandidateType:     decodeAs[IceCandidate](errors.ErrInvalidSignaling),
	CallStartType:        decodeAs[CallSignal](errors.ErrInvalidSignaling),
	CallEndType:          decodeAs[CallSignal](errors.ErrInvalidSignaling),
	VideoStateChangeType: decodeAs[VideoState](errors.ErrMalformedFrame),
	HoldStateChangeType:  decodeAs[HoldState](errors.ErrMalformedFrame),
	TypingType:           decodeAs[Typing](errors.ErrMalformedFrame),
	MessageReactionType:  decodeAs[Reaction](errors.ErrMalformedFrame),
}

// Decode parses a raw frame and returns the typed, validated event.
// The returned error wraps one of the sentinel errors so callers can map it to a wire code.
func Decode(raw []byte) (Event, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	decode, ok := inbound[frame.Type]
	if !ok {
		return Event{Type: frame.Type}, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Type)
	}
	payload, err := decode(frame.Payload)
	if err != nil {
		return Event{Type: frame.Type}, err
	}
	return Event{Type: frame.Type, Payload: payload}, nil
}

func decodeAs[T any](invalid error) decodeFunc {
	return func(raw json.RawMessage) (any, error) {
		var payload T
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("%w: %v", invalid, err)
			}
		}
		if err := validate.Struct(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", invalid, err)
		}
		return payload, nil
	}
}

// decodeSessionDescription checks the SDP type matches the event and that the SDP parses.
func decodeSessionDescription(expected webrtc.SDPType) decodeFunc {
	return func(raw json.RawMessage) (any, error) {
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(raw, &sd); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidSignaling, err)
		}
		if sd.Type != expected {
			return nil, fmt.Errorf("%w: expected %s, got %s", errors.ErrInvalidSignaling, expected, sd.Type)
		}
		if _, err := sd.Unmarshal(); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidSignaling, err)
		}
		return SessionDescription(sd), nil
	}
}
