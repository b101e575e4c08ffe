package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"pair-relay/contract"
	"pair-relay/domain"
	"pair-relay/domain/event"
	"pair-relay/errors"
	"pair-relay/observability"

	"github.com/samber/lo"
)

// Removal triggers, used as metric labels and in logs.
const (
	reasonRevealed = "revealed"
	reasonExpired  = "expired"
	reasonClosed   = "closed"
)

type CoordinatorConfig struct {
	// RevealDuration is how long a viewed seen-once message stays visible.
	RevealDuration time.Duration
	// EphemeralTTL removes an ephemeral message that nobody opened.
	EphemeralTTL time.Duration
}

// Coordinator drives every session through its lifecycle and owns the
// disappearing-content timers. Presence and ledger transitions all happen
// under mu so both participants observe them in the same order.
type Coordinator struct {
	mu        sync.Mutex
	log       *slog.Logger
	registry  contract.IRegistry
	ledger    contract.IMessageLedger
	auth      contract.IAuthService
	policy    contract.IMessagePolicy
	scheduler *RemovalScheduler
	// joined holds the sessions that received the history; only they get room traffic.
	joined  map[domain.Identity]*Session
	metrics *observability.Metrics
	config    CoordinatorConfig
	now       func() time.Time
}

func NewCoordinator(
	log *slog.Logger,
	registry contract.IRegistry,
	ledger contract.IMessageLedger,
	auth contract.IAuthService,
	policy contract.IMessagePolicy,
	metrics *observability.Metrics,
	config CoordinatorConfig,
) *Coordinator {
	return &Coordinator{
		log:       log,
		registry:  registry,
		ledger:    ledger,
		auth:      auth,
		policy:    policy,
		scheduler: NewRemovalScheduler(),
		joined:    make(map[domain.Identity]*Session),
		metrics:   metrics,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Connect opens a session for a freshly accepted connection.
func (c *Coordinator) Connect(sink contract.EventSink) *Session {
	s := newSession(sink)
	c.metrics.Connections.Inc()
	c.log.Debug("Connection opened", "session", s.ID)
	return s
}

// Handle applies one decoded client event to the session.
// Events arriving after Disconnect are ignored.
func (c *Coordinator) Handle(ctx context.Context, s *Session, evt event.Event) {
	if s.State() == domain.Disconnected {
		return
	}

	switch p := evt.Payload.(type) {
	case event.LoginRequest:
		c.login(ctx, s, p)
	case event.JoinRequest:
		c.join(ctx, s)
	case event.MessageRequest:
		c.message(ctx, s, p)
	case event.MessageRef:
		switch evt.Type {
		case event.SeenOnceViewedType, event.PhotoViewedType:
			c.viewed(ctx, s, p)
		case event.EphemeralClosedType:
			c.closed(ctx, s, p)
		default:
			c.protocolError(ctx, s, errors.ErrUnknownEvent)
		}
	case event.Reaction:
		c.react(ctx, s, p)
	default:
		c.relay(ctx, s, evt)
	}
}

// Reject answers a frame that failed decoding, on the channel matching its family.
func (c *Coordinator) Reject(ctx context.Context, s *Session, err error) {
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredential):
		c.loginFailed(ctx, s, err)
	case stderrors.Is(err, errors.ErrInvalidMessage), stderrors.Is(err, errors.ErrPayloadTooLarge):
		c.messageFailed(ctx, s, err)
	default:
		c.protocolError(ctx, s, err)
	}
}

// Disconnect releases the session's presence exactly once, whatever the number of callers.
// The last participant leaving wipes the ledger.
func (c *Coordinator) Disconnect(ctx context.Context, s *Session) {
	s.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		previous := s.setState(domain.Disconnected)
		c.metrics.Connections.Dec()
		c.log.Debug("Connection closed", "session", s.ID, "state", previous.String())
		if previous == domain.Connected {
			return
		}

		identity := s.Identity()
		if !c.registry.Deregister(identity, s.sink) {
			return
		}
		c.metrics.Participants.Set(float64(c.registry.Count()))
		c.log.Info("Participant left", "identity", identity)
		if previous == domain.Joined && c.joined[identity] == s {
			delete(c.joined, identity)
			c.broadcast(ctx, c.audience(""), event.Event{
				Type:    event.UserLeftType,
				Payload: event.Presence{Identity: identity},
			})
		}

		if c.registry.IsEmpty() {
			c.scheduler.CancelAll()
			c.ledger.Clear()
			c.metrics.LedgerSize.Set(0)
			c.log.Info("Room is empty, message ledger cleared")
		}
	})
}

// Stats reports presence and ledger figures for monitoring.
func (c *Coordinator) Stats() observability.RoomStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return observability.RoomStats{
		Participants:  c.registry.Count(),
		Capacity:      c.registry.Capacity(),
		Identities:    c.registry.Identities(),
		Messages:      c.ledger.Len(),
		PendingTimers: c.scheduler.Len(),
	}
}

// Stop cancels every pending removal timer.
func (c *Coordinator) Stop() {
	c.scheduler.CancelAll()
}

func (c *Coordinator) login(ctx context.Context, s *Session, req event.LoginRequest) {
	if s.State() != domain.Connected {
		c.loginFailed(ctx, s, errors.ErrAlreadyLoggedIn)
		return
	}

	// Secret hashing is slow, keep it outside the lock
	var (
		token    domain.Token
		identity domain.Identity
		err      error
	)
	if req.Token != "" {
		token, identity, err = c.auth.Resume(req.Token)
	} else {
		token, identity, err = c.auth.Login(req.Secret)
	}
	if err != nil {
		c.loginFailed(ctx, s, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.State() != domain.Connected {
		return
	}
	if err := c.registry.Register(identity, s.sink); err != nil {
		c.loginFailed(ctx, s, err)
		return
	}
	s.authenticate(identity)
	c.metrics.Logins.WithLabelValues("success").Inc()
	c.metrics.Participants.Set(float64(c.registry.Count()))
	c.log.Info("Participant logged in", "identity", identity, "session", s.ID, "resumed", req.Token != "")

	c.send(ctx, s.sink, event.Event{
		Type:    event.LoginSuccessType,
		Payload: event.LoginSuccess{Token: token.String(), Identity: identity},
	})
}

func (c *Coordinator) join(ctx context.Context, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.State() == domain.Connected {
		c.protocolError(ctx, s, errors.ErrUnauthenticated)
		return
	}
	previous := s.setState(domain.Joined)
	identity := s.Identity()
	c.joined[identity] = s

	c.send(ctx, s.sink, event.Event{Type: event.MessagesHistoryType, Payload: c.ledger.Snapshot()})
	c.send(ctx, s.sink, event.Event{
		Type:    event.UsersOnlineType,
		Payload: event.UsersOnline{Identities: c.joinedIdentities()},
	})

	// A second join only refreshes the history
	if previous == domain.Authenticated {
		c.log.Info("Participant joined", "identity", identity)
		c.broadcast(ctx, c.audience(identity), event.Event{
			Type:    event.UserJoinedType,
			Payload: event.Presence{Identity: identity},
		})
	}
}

func (c *Coordinator) message(ctx context.Context, s *Session, req event.MessageRequest) {
	identity, ok := c.requireJoined(ctx, s)
	if !ok {
		return
	}

	msg, err := c.policy.Prepare(identity, req)
	if err != nil {
		c.messageFailed(ctx, s, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.State() != domain.Joined {
		return
	}
	stored, evicted := c.ledger.Append(msg)
	for _, id := range evicted {
		c.scheduler.Cancel(id)
	}
	if stored.IsEphemeral() && c.config.EphemeralTTL > 0 {
		id := stored.ID
		c.scheduler.Schedule(id, ExpiryTimer, c.config.EphemeralTTL, func() { c.expire(id, reasonExpired) })
	}
	c.metrics.Messages.WithLabelValues(string(stored.Kind)).Inc()
	c.metrics.LedgerSize.Set(float64(c.ledger.Len()))
	c.log.Debug("Message stored", "id", stored.ID, "sender", identity, "kind", stored.Kind, "evicted", len(evicted))

	c.send(ctx, s.sink, event.Event{Type: event.MessageAckType, Payload: event.MessageAck{MessageID: stored.ID}})
	c.broadcast(ctx, c.audience(""), event.Event{Type: event.NewMessageType, Payload: stored})
}

// viewed starts the reveal clock of an ephemeral message opened by its recipient.
func (c *Coordinator) viewed(ctx context.Context, s *Session, ref event.MessageRef) {
	identity, ok := c.requireJoined(ctx, s)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.ledger.Get(ref.MessageID)
	if !ok || !msg.IsEphemeral() || msg.Sender == identity {
		c.log.Debug("View ignored", "id", ref.MessageID, "by", identity)
		return
	}

	id := msg.ID
	if !c.scheduler.Schedule(id, RevealTimer, c.config.RevealDuration, func() { c.expire(id, reasonRevealed) }) {
		return
	}
	viewedAt := c.now()
	c.ledger.MarkViewedAt(id, viewedAt)
	c.broadcast(ctx, c.audience(""), event.Event{
		Type:    event.MessageViewedType,
		Payload: event.MessageViewed{MessageID: id, ViewedAt: viewedAt, By: identity},
	})
}

// closed removes a revealed message as soon as its viewer dismisses it.
func (c *Coordinator) closed(ctx context.Context, s *Session, ref event.MessageRef) {
	identity, ok := c.requireJoined(ctx, s)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.ledger.Get(ref.MessageID)
	if !ok || msg.ViewedAt == nil || msg.Sender == identity {
		return
	}
	c.removeLocked(ctx, msg.ID, reasonClosed)
}

func (c *Coordinator) react(ctx context.Context, s *Session, r event.Reaction) {
	identity, ok := c.requireJoined(ctx, s)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ledger.MarkReacted(r.MessageID, r.Emoji, identity) {
		c.log.Debug("Reaction to a missing message", "id", r.MessageID, "by", identity)
		return
	}
	r.By = identity
	c.metrics.RelayedEvents.WithLabelValues(string(event.MessageReactionType)).Inc()
	c.broadcast(ctx, c.audience(identity), event.Event{Type: event.MessageReactionType, Payload: r})
}

// relay forwards signaling and interaction events to the other participant.
// Nobody on the other side is not an error.
func (c *Coordinator) relay(ctx context.Context, s *Session, evt event.Event) {
	identity, ok := c.requireJoined(ctx, s)
	if !ok {
		return
	}

	switch p := evt.Payload.(type) {
	case event.CallSignal:
		p.From = identity
		evt.Payload = p
	case event.Typing:
		p.From = identity
		evt.Payload = p
	case event.SessionDescription, event.IceCandidate, event.VideoState, event.HoldState:
	default:
		c.protocolError(ctx, s, errors.ErrUnknownEvent)
		return
	}

	c.metrics.RelayedEvents.WithLabelValues(string(evt.Type)).Inc()
	c.broadcast(ctx, c.audience(identity), evt)
}

// expire is the timer entry point.
func (c *Coordinator) expire(id domain.MessageID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(context.Background(), id, reason)
}

// removeLocked is the single removal path of ephemeral content; c.mu must be held.
func (c *Coordinator) removeLocked(ctx context.Context, id domain.MessageID, reason string) bool {
	if !c.ledger.RemoveIfSeenOnce(id) {
		return false
	}
	c.scheduler.Cancel(id)
	c.metrics.EphemeralRemoved.WithLabelValues(reason).Inc()
	c.metrics.LedgerSize.Set(float64(c.ledger.Len()))
	c.log.Debug("Ephemeral message removed", "id", id, "reason", reason)
	c.broadcast(ctx, c.audience(""), event.Event{
		Type:    event.MessageRemovedType,
		Payload: event.MessageRemoved{MessageID: id},
	})
	return true
}

func (c *Coordinator) requireJoined(ctx context.Context, s *Session) (domain.Identity, bool) {
	switch s.State() {
	case domain.Joined:
		return s.Identity(), true
	case domain.Disconnected:
		return "", false
	default:
		c.protocolError(ctx, s, errors.ErrUnauthenticated)
		return "", false
	}
}

func (c *Coordinator) loginFailed(ctx context.Context, s *Session, err error) {
	code := errors.Code(err)
	c.metrics.Logins.WithLabelValues(code).Inc()
	c.log.Info("Login refused", "session", s.ID, "code", code)
	c.send(ctx, s.sink, event.Event{
		Type:    event.LoginErrorType,
		Payload: event.ErrorPayload{Error: err.Error(), Code: code},
	})
}

func (c *Coordinator) messageFailed(ctx context.Context, s *Session, err error) {
	code := errors.Code(err)
	c.metrics.MessageErrors.WithLabelValues(code).Inc()
	c.log.Debug("Message refused", "session", s.ID, "error", err)
	c.send(ctx, s.sink, event.Event{
		Type:    event.MessageErrorType,
		Payload: event.ErrorPayload{Error: err.Error(), Code: code},
	})
}

func (c *Coordinator) protocolError(ctx context.Context, s *Session, err error) {
	code := errors.Code(err)
	c.metrics.ProtocolErrors.WithLabelValues(code).Inc()
	c.log.Debug("Protocol error", "session", s.ID, "error", err)
	c.send(ctx, s.sink, event.Event{
		Type:    event.ErrorType,
		Payload: event.ErrorPayload{Error: err.Error(), Code: code},
	})
}

// audience lists the sinks of joined sessions in registry order, skipping except.
// c.mu must be held.
func (c *Coordinator) audience(except domain.Identity) []contract.EventSink {
	var sinks []contract.EventSink
	for _, identity := range c.joinedIdentities() {
		if identity != except {
			sinks = append(sinks, c.joined[identity].sink)
		}
	}
	return sinks
}

func (c *Coordinator) joinedIdentities() []domain.Identity {
	return lo.Filter(c.registry.Identities(), func(identity domain.Identity, _ int) bool {
		_, ok := c.joined[identity]
		return ok
	})
}

func (c *Coordinator) broadcast(ctx context.Context, sinks []contract.EventSink, evt event.Event) {
	for _, sink := range sinks {
		c.send(ctx, sink, evt)
	}
}

func (c *Coordinator) send(ctx context.Context, sink contract.EventSink, evt event.Event) {
	if err := sink.Consume(ctx, evt); err != nil {
		c.log.Debug("Event not delivered", "event", evt.Type, "error", err)
	}
}
