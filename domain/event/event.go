// Package event defines the vocabulary exchanged with clients.
// Every frame on the wire is {"event": <type>, "payload": <json>}; inbound
// payloads are decoded into the typed structs below and validated before any
// handler sees them.
package event

import (
	"encoding/json"
	"time"

	"pair-relay/domain"

	"github.com/pion/webrtc/v4"
)

type Type string

// Client -> server
const (
	LoginType           Type = "login"
	JoinType            Type = "join"
	MessageType         Type = "message"
	SeenOnceViewedType  Type = "seen-once-viewed"
	PhotoViewedType     Type = "photo-viewed"
	EphemeralClosedType Type = "ephemeral-closed"
)

// Server -> client
const (
	LoginSuccessType    Type = "login-success"
	LoginErrorType      Type = "login-error"
	MessagesHistoryType Type = "messages-history"
	UsersOnlineType     Type = "users-online"
	NewMessageType      Type = "new-message"
	MessageAckType      Type = "message-ack"
	MessageErrorType    Type = "message-error"
	MessageViewedType   Type = "message-viewed"
	MessageRemovedType  Type = "message-removed"
	UserJoinedType      Type = "user-joined"
	UserLeftType        Type = "user-left"
	ErrorType           Type = "error"
)

// Relayed between the two participants
const (
	OfferType            Type = "offer"
	AnswerType           Type = "answer"
	IceCandidateType     Type = "ice-candidate"
	CallStartType        Type = "call-start"
	CallEndType          Type = "call-end"
	VideoStateChangeType Type = "video-state-change"
	HoldStateChangeType  Type = "hold-state-change"
	TypingType           Type = "typing"
	MessageReactionType  Type = "message-reaction"
)

// Frame is the wire envelope.
type Frame struct {
	Type    Type            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is a decoded frame. Payload holds one of the typed structs of this package.
type Event struct {
	Type    Type
	Payload any
}

// Encode serializes an outbound event into a wire frame.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: e.Type, Payload: payload})
}

type LoginRequest struct {
	Secret string `json:"secret,omitempty" validate:"required_without=Token,max=256"`
	Token  string `json:"token,omitempty" validate:"required_without=Secret,max=4096"`
}

type JoinRequest struct{}

type MessageRequest struct {
	Kind              domain.MessageKind `json:"kind" validate:"required,oneof=text image voice"`
	Content           string             `json:"content" validate:"required"`
	SeenOnce          bool               `json:"seenOnce"`
	DisappearingPhoto bool               `json:"disappearingPhoto"`
	ReplyTo           *domain.MessageID  `json:"replyTo,omitempty" validate:"omitempty,max=64"`
	Duration          *int               `json:"duration,omitempty" validate:"omitempty,min=0,max=3600"`
}

// MessageRef targets one ledger entry (seen-once-viewed, photo-viewed, ephemeral-closed).
type MessageRef struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,max=64"`
}

// SessionDescription mirrors RTCSessionDescriptionInit.
type SessionDescription webrtc.SessionDescription

type IceCandidate webrtc.ICECandidateInit

type CallSignal struct {
	Kind string          `json:"kind" validate:"required,oneof=audio video"`
	From domain.Identity `json:"from"`
}

type VideoState struct {
	Enabled bool `json:"enabled"`
}

type HoldState struct {
	OnHold bool `json:"onHold"`
}

type Typing struct {
	IsTyping bool            `json:"isTyping"`
	From     domain.Identity `json:"from,omitempty"`
}

type Reaction struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,max=64"`
	Emoji     string           `json:"emoji" validate:"required,max=32"`
	By        domain.Identity  `json:"by"`
}

type LoginSuccess struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type MessageAck struct {
	MessageID domain.MessageID `json:"messageId"`
}

type MessageRemoved struct {
	MessageID domain.MessageID `json:"messageId"`
}

type MessageViewed struct {
	MessageID domain.MessageID `json:"messageId"`
	ViewedAt  time.Time        `json:"viewedAt"`
	By        domain.Identity  `json:"by"`
}

type Presence struct {
	Identity domain.Identity `json:"identity"`
}

type UsersOnline struct {
	Identities []domain.Identity `json:"identities"`
}
