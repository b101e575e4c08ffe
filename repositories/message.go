package repositories

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"pair-relay/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultCapacity = 10

// MessageLedger is the in-memory message log shared by both participants.
// Entries are kept newest-first and the ledger never holds more than capacity
// messages: appending beyond it evicts the oldest one, seen or not.
// Nothing is persisted; the ledger lives as long as the process, or until cleared.
type MessageLedger struct {
	mu       sync.Mutex
	log      *slog.Logger
	capacity int
	entries  []*domain.Message
	now      func() time.Time
}

func NewMessageLedger(log *slog.Logger, capacity int) *MessageLedger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MessageLedger{
		log:      log,
		capacity: capacity,
		entries:  make([]*domain.Message, 0, capacity+1),
		now:      time.Now,
	}
}

// Append stores the message at the head, assigning an id and a timestamp when absent.
// The ids of entries evicted to make room are returned.
func (l *MessageLedger) Append(message domain.Message) (domain.Message, []domain.MessageID) {
	stored := message.Clone()
	if stored.ID == "" {
		stored.ID = domain.MessageID(uuid.NewString())
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = l.now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = slices.Insert(l.entries, 0, &stored)
	var evicted []domain.MessageID
	for len(l.entries) > l.capacity {
		last := l.entries[len(l.entries)-1]
		evicted = append(evicted, last.ID)
		l.entries[len(l.entries)-1] = nil
		l.entries = l.entries[:len(l.entries)-1]
	}
	if len(evicted) > 0 {
		l.log.Debug("Messages evicted", "count", len(evicted))
	}
	return stored.Clone(), evicted
}

// Snapshot returns copies of every entry, oldest first.
func (l *MessageLedger) Snapshot() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := lo.Map(l.entries, func(m *domain.Message, _ int) domain.Message { return m.Clone() })
	slices.Reverse(snapshot)
	return snapshot
}

func (l *MessageLedger) Get(id domain.MessageID) (domain.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, m := l.find(id); m != nil {
		return m.Clone(), true
	}
	return domain.Message{}, false
}

func (l *MessageLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// MarkReacted appends a reaction. A missing message (likely evicted) is not an error.
func (l *MessageLedger) MarkReacted(id domain.MessageID, emoji string, by domain.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, m := l.find(id)
	if m == nil {
		return false
	}
	m.Reactions = append(m.Reactions, domain.Reaction{Emoji: emoji, By: by})
	return true
}

// MarkViewedAt records the first view only; later calls leave the timestamp untouched.
func (l *MessageLedger) MarkViewedAt(id domain.MessageID, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, m := l.find(id)
	if m == nil {
		return false
	}
	if m.ViewedAt == nil {
		m.ViewedAt = lo.ToPtr(at.UTC())
	}
	return true
}

// RemoveIfSeenOnce removes an ephemeral message and reports whether it did.
// It is the single removal primitive for every disappearing-content path.
func (l *MessageLedger) RemoveIfSeenOnce(id domain.MessageID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, m := l.find(id)
	if m == nil || !m.IsEphemeral() {
		return false
	}
	l.entries = slices.Delete(l.entries, idx, idx+1)
	return true
}

func (l *MessageLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.entries)
	l.entries = l.entries[:0]
}

func (l *MessageLedger) find(id domain.MessageID) (int, *domain.Message) {
	for i, m := range l.entries {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}
