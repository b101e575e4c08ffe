package services

import (
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"pair-relay/domain"
	"pair-relay/domain/event"
	"pair-relay/domain/mimetypes"
	"pair-relay/errors"
	"pair-relay/moderation"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// sniffLength is how much of the base64 body is decoded to detect the media type.
	sniffLength       = 4096
	maxSanitizePasses = 4
)

type PolicyConfig struct {
	MaxMediaBytes int
	MaxTextLength int
}

// MessagePolicy validates a client message and shapes it for the ledger.
// Text is stripped of markup and optionally censored; media must be a base64
// data URL whose encoded size fits the cap and whose bytes match the declared kind.
type MessagePolicy struct {
	log       *slog.Logger
	config    PolicyConfig
	sanitizer *bluemonday.Policy
	moderator *moderation.Moderator
}

func NewMessagePolicy(log *slog.Logger, config PolicyConfig, moderator *moderation.Moderator) *MessagePolicy {
	return &MessagePolicy{
		log:       log,
		config:    config,
		sanitizer: bluemonday.StrictPolicy(),
		moderator: moderator,
	}
}

func (p *MessagePolicy) Prepare(sender domain.Identity, req event.MessageRequest) (domain.Message, error) {
	msg := domain.Message{
		Sender:    sender,
		Kind:      req.Kind,
		SeenOnce:  req.SeenOnce,
		ReplyTo:   req.ReplyTo,
		Duration:  req.Duration,
		Reactions: []domain.Reaction{},
	}

	switch req.Kind {
	case domain.KindText:
		content, err := p.prepareText(sender, req.Content)
		if err != nil {
			return domain.Message{}, err
		}
		msg.Content = content
	case domain.KindImage, domain.KindVoice:
		if err := p.checkMedia(req.Kind, req.Content); err != nil {
			return domain.Message{}, err
		}
		msg.Content = req.Content
		msg.DisappearingPhoto = req.Kind == domain.KindImage && req.DisappearingPhoto
	default:
		return domain.Message{}, fmt.Errorf("%w: unknown kind %q", errors.ErrInvalidMessage, req.Kind)
	}
	return msg, nil
}

func (p *MessagePolicy) prepareText(sender domain.Identity, content string) (string, error) {
	if utf8.RuneCountInString(content) > p.config.MaxTextLength {
		return "", fmt.Errorf("%w: text longer than %d characters", errors.ErrPayloadTooLarge, p.config.MaxTextLength)
	}
	clean, ok := p.stripMarkup(content)
	if !ok {
		return "", fmt.Errorf("%w: markup could not be removed", errors.ErrInvalidMessage)
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", fmt.Errorf("%w: empty text", errors.ErrInvalidMessage)
	}
	if p.moderator == nil {
		return clean, nil
	}
	censored, words := p.moderator.Censor(clean)
	if len(words) > 0 {
		p.log.Info("Text censored",
			"sender", sender,
			"words", len(words),
			"lang", moderation.Language(clean))
	}
	return censored, nil
}

// stripMarkup removes tags and returns plain text, entities decoded, so what
// the sender typed is stored unchanged when it holds no markup.
// Passes repeat until stable so entity-encoded tags are stripped as well.
func (p *MessagePolicy) stripMarkup(content string) (string, bool) {
	for range maxSanitizePasses {
		clean := html.UnescapeString(p.sanitizer.Sanitize(escapeUnclosed(content)))
		if clean == content {
			return clean, true
		}
		content = clean
	}
	return "", false
}

// escapeUnclosed escapes every '<' with no '>' after it: such a bracket cannot
// open a tag, the sanitizer would otherwise drop everything that follows it.
func escapeUnclosed(content string) string {
	cut := strings.LastIndexByte(content, '>') + 1
	return content[:cut] + strings.ReplaceAll(content[cut:], "<", "&lt;")
}

// checkMedia enforces the size cap on the encoded form, then sniffs the leading bytes.
func (p *MessagePolicy) checkMedia(kind domain.MessageKind, content string) error {
	if len(content) > p.config.MaxMediaBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", errors.ErrPayloadTooLarge, len(content), p.config.MaxMediaBytes)
	}
	header, body, ok := strings.Cut(content, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:") || body == "" {
		return fmt.Errorf("%w: media must be a base64 data URL", errors.ErrInvalidMessage)
	}

	head := body[:min(len(body), sniffLength)]
	head = head[:len(head)/4*4]
	raw, err := base64.StdEncoding.DecodeString(head)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}

	detected := mimetype.Detect(raw).String()
	if !matchesKind(kind, detected) {
		return fmt.Errorf("%w: %s content is not a valid %s", errors.ErrInvalidMessage, detected, kind)
	}
	return nil
}

func matchesKind(kind domain.MessageKind, detected string) bool {
	switch kind {
	case domain.KindImage:
		return mimetypes.IsImage(detected)
	case domain.KindVoice:
		return mimetypes.IsVoice(detected)
	}
	return false
}
