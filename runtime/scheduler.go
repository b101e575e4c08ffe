package runtime

import (
	"sync"
	"time"

	"pair-relay/domain"
)

// TimerKind distinguishes the two clocks that can remove an ephemeral message.
type TimerKind int

const (
	// RevealTimer runs from the recipient's first view.
	RevealTimer TimerKind = iota
	// ExpiryTimer runs from the moment the message was stored, whatever the recipient does.
	ExpiryTimer
)

func (k TimerKind) String() string {
	if k == RevealTimer {
		return "reveal"
	}
	return "expiry"
}

type pendingTimer struct {
	timer *time.Timer
}

// RemovalScheduler owns every disappearing-content timer so both parties observe
// the same removal instant. At most one timer per (message, kind) is armed.
type RemovalScheduler struct {
	mu     sync.Mutex
	timers map[domain.MessageID]map[TimerKind]*pendingTimer
}

func NewRemovalScheduler() *RemovalScheduler {
	return &RemovalScheduler{timers: make(map[domain.MessageID]map[TimerKind]*pendingTimer)}
}

// Schedule arms fn to run after d. It returns false, without arming anything,
// when a timer of that kind is already pending for the message.
func (s *RemovalScheduler) Schedule(id domain.MessageID, kind TimerKind, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds, ok := s.timers[id]
	if !ok {
		kinds = make(map[TimerKind]*pendingTimer, 2)
		s.timers[id] = kinds
	}
	if _, armed := kinds[kind]; armed {
		return false
	}

	pending := &pendingTimer{}
	pending.timer = time.AfterFunc(d, func() {
		if s.release(id, kind, pending) {
			fn()
		}
	})
	kinds[kind] = pending
	return true
}

// Cancel stops every timer of the message and returns how many were pending.
func (s *RemovalScheduler) Cancel(id domain.MessageID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

func (s *RemovalScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.cancelLocked(id)
	}
}

func (s *RemovalScheduler) Pending(id domain.MessageID, kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id][kind]
	return ok
}

func (s *RemovalScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, kinds := range s.timers {
		n += len(kinds)
	}
	return n
}

func (s *RemovalScheduler) cancelLocked(id domain.MessageID) int {
	kinds := s.timers[id]
	for _, pending := range kinds {
		pending.timer.Stop()
	}
	delete(s.timers, id)
	return len(kinds)
}

// release forgets a fired timer; false means it was cancelled in the meantime.
func (s *RemovalScheduler) release(id domain.MessageID, kind TimerKind, pending *pendingTimer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := s.timers[id]
	if kinds[kind] != pending {
		return false
	}
	delete(kinds, kind)
	if len(kinds) == 0 {
		delete(s.timers, id)
	}
	return true
}
