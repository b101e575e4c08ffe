package runtime

import (
	"sync"

	"pair-relay/contract"
	"pair-relay/domain"

	"github.com/google/uuid"
)

// Session is the server-side state of one transport connection.
// It moves Connected -> Authenticated -> Joined -> Disconnected and never goes back.
type Session struct {
	ID   uuid.UUID
	sink contract.EventSink

	mu       sync.Mutex
	state    domain.SessionState
	identity domain.Identity

	closeOnce sync.Once
}

func newSession(sink contract.EventSink) *Session {
	return &Session{
		ID:    uuid.New(),
		sink:  sink,
		state: domain.Connected,
	}
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity is empty until login succeeds.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) authenticate(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.state = domain.Authenticated
}

func (s *Session) setState(state domain.SessionState) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.state
	s.state = state
	return previous
}
