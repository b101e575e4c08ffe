package runtime

import (
	"sort"
	"sync"

	"pair-relay/contract"
	"pair-relay/domain"
	"pair-relay/errors"

	"github.com/samber/lo"
)

// Registry is the presence registry: the identities currently holding a live
// connection, each mapped to the sink used to reach it.
// The size never exceeds capacity; Register is an atomic check-and-set.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	sessions map[domain.Identity]contract.EventSink
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		sessions: make(map[domain.Identity]contract.EventSink, capacity),
	}
}

// Register claims a slot for the identity.
// An identity already present fails with ErrAlreadyConnected, a new one on a full
// registry with ErrRoomFull.
func (r *Registry) Register(identity domain.Identity, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[identity]; ok {
		return errors.ErrAlreadyConnected
	}
	if len(r.sessions) >= r.capacity {
		return errors.ErrRoomFull
	}
	r.sessions[identity] = sink
	return nil
}

// Deregister releases the identity's slot if it is still held by this sink.
// Removing an absent identity, or one re-registered by another connection, is a no-op.
func (r *Registry) Deregister(identity domain.Identity, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[identity]
	if !ok || current != sink {
		return false
	}
	delete(r.sessions, identity)
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) IsEmpty() bool {
	return r.Count() == 0
}

func (r *Registry) Capacity() int {
	return r.capacity
}

func (r *Registry) Sink(identity domain.Identity) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[identity]
	return sink, ok
}

// Others returns the sinks of every identity but the given one.
func (r *Registry) Others(identity domain.Identity) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for id, sink := range r.sessions {
		if id != identity {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func (r *Registry) All() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

// Identities lists present identities sorted by name.
func (r *Registry) Identities() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := lo.Keys(r.sessions)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
