// Package domain contains core concepts of the relay.
// This file defines Message entries held by the ledger.
// Messages are immutable once stored, except for ViewedAt and Reactions.
package domain

import (
	"time"

	"github.com/samber/lo"
)

type MessageID string

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVoice MessageKind = "voice"
)

func (k MessageKind) IsMedia() bool {
	return k == KindImage || k == KindVoice
}

type Reaction struct {
	Emoji string   `json:"emoji"`
	By    Identity `json:"by"`
}

// Message is one ledger entry, serialized as-is in new-message and messages-history.
type Message struct {
	ID                MessageID   `json:"id"`
	Sender            Identity    `json:"sender"`
	Kind              MessageKind `json:"kind"`
	Content           string      `json:"content"`
	CreatedAt         time.Time   `json:"createdAt"`
	SeenOnce          bool        `json:"seenOnce"`
	DisappearingPhoto bool        `json:"disappearingPhoto"`
	ViewedAt          *time.Time  `json:"viewedAt,omitempty"`
	ReplyTo           *MessageID  `json:"replyTo,omitempty"`
	Reactions         []Reaction  `json:"reactions"`
	Duration          *int        `json:"duration,omitempty"`
}

// IsEphemeral reports whether the message follows the reveal-then-remove lifecycle.
// A disappearing photo is seen-once by construction.
func (m Message) IsEphemeral() bool {
	return m.SeenOnce || m.DisappearingPhoto
}

// Clone returns a copy sharing no mutable state with m.
func (m Message) Clone() Message {
	c := m
	if m.ViewedAt != nil {
		c.ViewedAt = lo.ToPtr(*m.ViewedAt)
	}
	if m.ReplyTo != nil {
		c.ReplyTo = lo.ToPtr(*m.ReplyTo)
	}
	if m.Duration != nil {
		c.Duration = lo.ToPtr(*m.Duration)
	}
	c.Reactions = append(make([]Reaction, 0, len(m.Reactions)), m.Reactions...)
	return c
}
