package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"pair-relay/domain/event"
	"pair-relay/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionSink is the outbound queue of one transport connection.
// Frames are encoded on Consume and drained by the connection's write pump.
// A full queue drops the frame: a slow peer must never stall the coordinator.
type ConnectionSink struct {
	mu      sync.Mutex
	closed  bool
	frames  chan []byte
	dropped atomic.Uint64
	counter prometheus.Counter
}

func NewConnectionSink(bufferSize int, dropped prometheus.Counter) *ConnectionSink {
	return &ConnectionSink{
		frames:  make(chan []byte, bufferSize),
		counter: dropped,
	}
}

func (s *ConnectionSink) Consume(_ context.Context, e event.Event) error {
	frame, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		s.dropped.Add(1)
		if s.counter != nil {
			s.counter.Inc()
		}
		return fmt.Errorf("%w: %s", errors.ErrSinkFull, e.Type)
	}
}

// Frames is closed once Close has been called.
func (s *ConnectionSink) Frames() <-chan []byte {
	return s.frames
}

// Close is idempotent; frames already queued can still be drained.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

func (s *ConnectionSink) Dropped() uint64 {
	return s.dropped.Load()
}
