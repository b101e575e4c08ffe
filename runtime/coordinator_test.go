package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pair-relay/auth"
	"pair-relay/contract"
	"pair-relay/domain"
	"pair-relay/domain/event"
	"pair-relay/errors"
	"pair-relay/mocks"
	"pair-relay/observability"
	"pair-relay/repositories"
	"pair-relay/services"

	"github.com/mama165/sdk-go/logs"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingSink keeps every event it receives, in order
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Of(t event.Type) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.events, func(e event.Event, _ int) bool { return e.Type == t })
}

func (s *recordingSink) Last() event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var testConfig = CoordinatorConfig{RevealDuration: 20 * time.Millisecond, EphemeralTTL: time.Hour}

func newTestCoordinator(t *testing.T, ledger contract.IMessageLedger, config CoordinatorConfig) *Coordinator {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	credentials, err := auth.NewCredentials(map[string]string{
		"alice": "alice-secret",
		"bob":   "bob-secret",
	})
	require.NoError(t, err)
	if ledger == nil {
		ledger = repositories.NewMessageLedger(log, repositories.DefaultCapacity)
	}
	policy := services.NewMessagePolicy(log, services.PolicyConfig{MaxMediaBytes: 1 << 20, MaxTextLength: 500}, nil)
	coordinator := NewCoordinator(
		log,
		NewRegistry(credentials.Size()),
		ledger,
		services.NewAuthService(credentials, auth.NewTokenIssuer([]byte("coordinator-test-key"), time.Hour)),
		policy,
		observability.NewMetrics(prometheus.NewRegistry()),
		config,
	)
	t.Cleanup(coordinator.Stop)
	return coordinator
}

// enter logs in and joins, returning the session and the sink
func enter(t *testing.T, c *Coordinator, secret string) (*Session, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	s := c.Connect(sink)
	c.Handle(context.Background(), s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: secret}})
	require.Len(t, sink.Of(event.LoginSuccessType), 1)
	c.Handle(context.Background(), s, event.Event{Type: event.JoinType, Payload: event.JoinRequest{}})
	require.Equal(t, domain.Joined, s.State())
	return s, sink
}

func send(c *Coordinator, s *Session, req event.MessageRequest) {
	c.Handle(context.Background(), s, event.Event{Type: event.MessageType, Payload: req})
}

func lastMessageID(t *testing.T, sink *recordingSink) domain.MessageID {
	t.Helper()
	acks := sink.Of(event.MessageAckType)
	require.NotEmpty(t, acks)
	return acks[len(acks)-1].Payload.(event.MessageAck).MessageID
}

// Scenario A
func TestCoordinator_Login_Fills_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	// Given alice and bob logged in
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	alice, bob := c.Connect(aliceSink), c.Connect(bobSink)
	c.Handle(ctx, alice, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "alice-secret"}})
	c.Handle(ctx, bob, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	req.Equal(domain.Authenticated, alice.State())
	req.Equal(domain.Identity("bob"), bob.Identity())

	success := aliceSink.Of(event.LoginSuccessType)[0].Payload.(event.LoginSuccess)
	req.Equal(domain.Identity("alice"), success.Identity)
	req.NotEmpty(success.Token)

	// When a third connection presents alice's valid secret
	thirdSink := &recordingSink{}
	third := c.Connect(thirdSink)
	c.Handle(ctx, third, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "alice-secret"}})

	// Then it is refused and stays unauthenticated
	failures := thirdSink.Of(event.LoginErrorType)
	req.Len(failures, 1)
	req.Equal(errors.CodeAlreadyConnected, failures[0].Payload.(event.ErrorPayload).Code)
	req.Equal(domain.Connected, third.State())

	// Disconnecting the refused connection does not evict alice
	c.Disconnect(ctx, third)
	req.Equal(2, c.registry.Count())
}

func TestCoordinator_Login_Errors(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	sink := &recordingSink{}
	s := c.Connect(sink)

	c.Handle(ctx, s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "nope"}})
	c.Handle(ctx, s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Token: "not-a-jwt"}})

	failures := sink.Of(event.LoginErrorType)
	req.Len(failures, 2)
	req.Equal(errors.CodeInvalidCredential, failures[0].Payload.(event.ErrorPayload).Code)
	req.Equal(errors.CodeTokenInvalid, failures[1].Payload.(event.ErrorPayload).Code)

	// The connection stays open and can still log in
	c.Handle(ctx, s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	req.Len(sink.Of(event.LoginSuccessType), 1)

	// A second login on the same connection is refused
	c.Handle(ctx, s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	req.Equal(errors.CodeBadRequest, sink.Last().Payload.(event.ErrorPayload).Code)
}

func TestCoordinator_Login_Resume_With_Token(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	first, firstSink := enter(t, c, "alice-secret")
	token := firstSink.Of(event.LoginSuccessType)[0].Payload.(event.LoginSuccess).Token
	c.Disconnect(ctx, first)

	// When the client reconnects with its token
	sink := &recordingSink{}
	s := c.Connect(sink)
	c.Handle(ctx, s, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Token: token}})

	// Then the same identity is back
	req.Len(sink.Of(event.LoginSuccessType), 1)
	req.Equal(domain.Identity("alice"), s.Identity())
}

func TestCoordinator_Join(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, testConfig)

	// Given alice joined and wrote a message
	alice, aliceSink := enter(t, c, "alice-secret")
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "first"})
	aliceSink.Reset()

	// When bob joins
	_, bobSink := enter(t, c, "bob-secret")

	// Then bob gets the history and the presence list
	history := bobSink.Of(event.MessagesHistoryType)
	req.Len(history, 1)
	messages := history[0].Payload.([]domain.Message)
	req.Len(messages, 1)
	req.Equal("first", messages[0].Content)
	online := bobSink.Of(event.UsersOnlineType)[0].Payload.(event.UsersOnline)
	req.Equal([]domain.Identity{"alice", "bob"}, online.Identities)

	// And alice learns bob arrived
	joined := aliceSink.Of(event.UserJoinedType)
	req.Len(joined, 1)
	req.Equal(event.Presence{Identity: "bob"}, joined[0].Payload)
	req.Empty(bobSink.Of(event.UserJoinedType))
}

func TestCoordinator_Requires_Authentication(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	sink := &recordingSink{}
	s := c.Connect(sink)

	c.Handle(ctx, s, event.Event{Type: event.JoinType, Payload: event.JoinRequest{}})
	c.Handle(ctx, s, event.Event{Type: event.MessageType, Payload: event.MessageRequest{Kind: domain.KindText, Content: "hi"}})
	c.Handle(ctx, s, event.Event{Type: event.TypingType, Payload: event.Typing{IsTyping: true}})

	errs := sink.Of(event.ErrorType)
	req.Len(errs, 3)
	for _, e := range errs {
		req.Equal(errors.CodeUnauthenticated, e.Payload.(event.ErrorPayload).Code)
	}
	req.Equal(domain.Connected, s.State())
}

func TestCoordinator_Message_Broadcast(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")
	_, bobSink := enter(t, c, "bob-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "<b>hello</b> bob"})

	id := lastMessageID(t, aliceSink)
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		news := sink.Of(event.NewMessageType)
		req.Len(news, 1)
		msg := news[0].Payload.(domain.Message)
		req.Equal(id, msg.ID)
		req.Equal(domain.Identity("alice"), msg.Sender)
		req.Equal("hello bob", msg.Content)
	}
	req.Empty(bobSink.Of(event.MessageAckType))
}

func TestCoordinator_Message_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  event.MessageRequest
		code string
	}{
		{"markup only", event.MessageRequest{Kind: domain.KindText, Content: "<script></script>"}, errors.CodeInvalidMessage},
		{"image that is text", event.MessageRequest{Kind: domain.KindImage, Content: "data:image/png;base64,aGVsbG8gd29ybGQ="}, errors.CodeInvalidMessage},
		{"image not a data url", event.MessageRequest{Kind: domain.KindImage, Content: "https://example.com/cat.png"}, errors.CodeInvalidMessage},
		{"text too long", event.MessageRequest{Kind: domain.KindText, Content: string(make([]byte, 501))}, errors.CodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			c := newTestCoordinator(t, nil, testConfig)
			alice, aliceSink := enter(t, c, "alice-secret")

			send(c, alice, tt.req)

			errs := aliceSink.Of(event.MessageErrorType)
			req.Len(errs, 1)
			req.Equal(tt.code, errs[0].Payload.(event.ErrorPayload).Code)
			req.Empty(aliceSink.Of(event.NewMessageType))
			req.Equal(0, c.ledger.Len())
		})
	}
}

// Scenario C
func TestCoordinator_SeenOnce_Removed_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")
	bob, bobSink := enter(t, c, "bob-secret")

	// Given alice sent a seen-once text
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "only once", SeenOnce: true})
	id := lastMessageID(t, aliceSink)

	// When bob opens it twice
	viewed := event.Event{Type: event.SeenOnceViewedType, Payload: event.MessageRef{MessageID: id}}
	c.Handle(ctx, bob, viewed)
	c.Handle(ctx, bob, viewed)

	// Then both saw a single message-viewed
	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		views := sink.Of(event.MessageViewedType)
		req.Len(views, 1)
		req.Equal(domain.Identity("bob"), views[0].Payload.(event.MessageViewed).By)
	}

	// And both get exactly one message-removed once the reveal elapsed
	req.Eventually(func() bool {
		return len(aliceSink.Of(event.MessageRemovedType)) == 1 && len(bobSink.Of(event.MessageRemovedType)) == 1
	}, time.Second, 5*time.Millisecond)
	_, ok := c.ledger.Get(id)
	req.False(ok)

	// A late view is a no-op
	c.Handle(ctx, bob, event.Event{Type: event.PhotoViewedType, Payload: event.MessageRef{MessageID: id}})
	time.Sleep(3 * testConfig.RevealDuration)
	req.Len(aliceSink.Of(event.MessageRemovedType), 1)
	req.Len(bobSink.Of(event.MessageRemovedType), 1)
	req.Equal(payloadOf(aliceSink, event.MessageRemovedType), event.MessageRemoved{MessageID: id})
}

func payloadOf(sink *recordingSink, t event.Type) any {
	events := sink.Of(t)
	return events[len(events)-1].Payload
}

func TestCoordinator_Sender_Cannot_Reveal_Own_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")
	enter(t, c, "bob-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindImage, Content: pngDataURL, DisappearingPhoto: true})
	id := lastMessageID(t, aliceSink)

	c.Handle(ctx, alice, event.Event{Type: event.PhotoViewedType, Payload: event.MessageRef{MessageID: id}})

	req.Empty(aliceSink.Of(event.MessageViewedType))
	req.False(c.scheduler.Pending(id, RevealTimer))
	req.True(c.scheduler.Pending(id, ExpiryTimer))
}

func TestCoordinator_Regular_Message_Ignores_Views(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")
	bob, _ := enter(t, c, "bob-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "stays"})
	id := lastMessageID(t, aliceSink)

	c.Handle(ctx, bob, event.Event{Type: event.SeenOnceViewedType, Payload: event.MessageRef{MessageID: id}})
	c.Handle(ctx, bob, event.Event{Type: event.EphemeralClosedType, Payload: event.MessageRef{MessageID: id}})

	req.Empty(aliceSink.Of(event.MessageViewedType))
	req.Empty(aliceSink.Of(event.MessageRemovedType))
	req.Equal(1, c.ledger.Len())
}

func TestCoordinator_EphemeralClosed_Removes_Immediately(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, CoordinatorConfig{RevealDuration: time.Hour, EphemeralTTL: time.Hour})
	alice, aliceSink := enter(t, c, "alice-secret")
	bob, bobSink := enter(t, c, "bob-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindImage, Content: pngDataURL, DisappearingPhoto: true})
	id := lastMessageID(t, aliceSink)

	// Closing before viewing does nothing
	closed := event.Event{Type: event.EphemeralClosedType, Payload: event.MessageRef{MessageID: id}}
	c.Handle(ctx, bob, closed)
	req.Empty(bobSink.Of(event.MessageRemovedType))

	c.Handle(ctx, bob, event.Event{Type: event.PhotoViewedType, Payload: event.MessageRef{MessageID: id}})
	c.Handle(ctx, bob, closed)
	c.Handle(ctx, bob, closed)

	req.Len(aliceSink.Of(event.MessageRemovedType), 1)
	req.Len(bobSink.Of(event.MessageRemovedType), 1)
	req.Equal(0, c.scheduler.Len())
}

func TestCoordinator_Ephemeral_Expires_Unopened(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, CoordinatorConfig{RevealDuration: time.Hour, EphemeralTTL: 20 * time.Millisecond})
	alice, aliceSink := enter(t, c, "alice-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "nobody reads this", SeenOnce: true})

	req.Eventually(func() bool {
		return len(aliceSink.Of(event.MessageRemovedType)) == 1
	}, time.Second, 5*time.Millisecond)
	req.Equal(0, c.ledger.Len())
}

func TestCoordinator_Eviction_Cancels_Timers(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "ephemeral", SeenOnce: true})
	id := lastMessageID(t, aliceSink)
	req.True(c.scheduler.Pending(id, ExpiryTimer))

	for i := 0; i < repositories.DefaultCapacity; i++ {
		send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "filler"})
	}

	req.False(c.scheduler.Pending(id, ExpiryTimer))
	req.Empty(aliceSink.Of(event.MessageRemovedType))
}

// Scenario D
func TestCoordinator_Last_Disconnect_Clears_Ledger_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockIMessageLedger(ctrl)
	ledger.EXPECT().Snapshot().Return([]domain.Message{}).AnyTimes()
	ledger.EXPECT().Clear().Times(1)

	c := newTestCoordinator(t, ledger, testConfig)
	alice, _ := enter(t, c, "alice-secret")
	bob, bobSink := enter(t, c, "bob-secret")

	// When alice leaves, bob is told and the ledger survives
	c.Disconnect(ctx, alice)
	left := bobSink.Of(event.UserLeftType)
	req.Len(left, 1)
	req.Equal(event.Presence{Identity: "alice"}, left[0].Payload)

	// When bob leaves too, twice for good measure
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Disconnect(ctx, bob)
		}()
	}
	wg.Wait()
	c.Disconnect(ctx, alice)

	req.True(c.registry.IsEmpty())
	req.Equal(domain.Disconnected, bob.State())
}

func TestCoordinator_New_Pair_Starts_Empty(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	alice, _ := enter(t, c, "alice-secret")
	bob, _ := enter(t, c, "bob-secret")
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "before"})
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "ephemeral", SeenOnce: true})
	c.Disconnect(ctx, alice)
	c.Disconnect(ctx, bob)
	req.Equal(0, c.scheduler.Len())

	_, sink := enter(t, c, "bob-secret")
	history := sink.Of(event.MessagesHistoryType)[0].Payload.([]domain.Message)
	req.Empty(history)
}

func TestCoordinator_Events_After_Disconnect_Are_Ignored(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")

	c.Disconnect(ctx, alice)
	aliceSink.Reset()
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "late"})

	req.Equal(0, c.ledger.Len())
	req.Empty(aliceSink.Of(event.ErrorType))
}

func TestCoordinator_Logged_In_Peer_Gets_Nothing_Before_Join(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")

	// Given bob logged in but did not join yet
	bobSink := &recordingSink{}
	bob := c.Connect(bobSink)
	c.Handle(ctx, bob, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	req.Equal(domain.Authenticated, bob.State())

	// When alice writes and types
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "hello"})
	c.Handle(ctx, alice, event.Event{Type: event.TypingType, Payload: event.Typing{IsTyping: true}})

	// Then bob receives nothing of it
	req.Empty(bobSink.Of(event.NewMessageType))
	req.Empty(bobSink.Of(event.TypingType))

	// And joining delivers the message exactly once, through the history
	c.Handle(ctx, bob, event.Event{Type: event.JoinType, Payload: event.JoinRequest{}})
	history := bobSink.Of(event.MessagesHistoryType)
	req.Len(history, 1)
	req.Len(history[0].Payload.([]domain.Message), 1)
	req.Empty(bobSink.Of(event.NewMessageType))
	req.Len(aliceSink.Of(event.UserJoinedType), 1)
}

func TestCoordinator_Users_Online_Lists_Joined_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)

	// Given bob is only logged in
	bob := c.Connect(&recordingSink{})
	c.Handle(ctx, bob, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})

	// When alice joins
	_, aliceSink := enter(t, c, "alice-secret")

	// Then she sees herself only
	online := aliceSink.Of(event.UsersOnlineType)[0].Payload.(event.UsersOnline)
	req.Equal([]domain.Identity{"alice"}, online.Identities)
}

func TestCoordinator_Unjoined_Disconnect_Is_Not_Announced(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	_, aliceSink := enter(t, c, "alice-secret")

	// Given bob logged in and left without joining
	bob := c.Connect(&recordingSink{})
	c.Handle(ctx, bob, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	c.Disconnect(ctx, bob)

	// Then alice heard neither an arrival nor a departure
	req.Empty(aliceSink.Of(event.UserJoinedType))
	req.Empty(aliceSink.Of(event.UserLeftType))
	req.Equal(1, c.registry.Count())

	// And bob can log in again
	again := c.Connect(&recordingSink{})
	c.Handle(ctx, again, event.Event{Type: event.LoginType, Payload: event.LoginRequest{Secret: "bob-secret"}})
	req.Equal(domain.Authenticated, again.State())
}

// Scenario E
func TestCoordinator_Reaction(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")
	bob, bobSink := enter(t, c, "bob-secret")

	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "react to me"})
	id := lastMessageID(t, aliceSink)

	// When bob reacts, alice receives it with bob as author whatever bob claimed
	c.Handle(ctx, bob, event.Event{Type: event.MessageReactionType, Payload: event.Reaction{MessageID: id, Emoji: "❤️", By: "mallory"}})
	reactions := aliceSink.Of(event.MessageReactionType)
	req.Len(reactions, 1)
	req.Equal(event.Reaction{MessageID: id, Emoji: "❤️", By: "bob"}, reactions[0].Payload)
	req.Empty(bobSink.Of(event.MessageReactionType))
	stored, _ := c.ledger.Get(id)
	req.Equal([]domain.Reaction{{Emoji: "❤️", By: "bob"}}, stored.Reactions)

	// Given the message got evicted
	for i := 0; i < repositories.DefaultCapacity; i++ {
		send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "filler"})
	}
	aliceSink.Reset()
	bobSink.Reset()

	// Then a reaction to it is dropped silently
	c.Handle(ctx, bob, event.Event{Type: event.MessageReactionType, Payload: event.Reaction{MessageID: id, Emoji: "👍"}})
	req.Empty(aliceSink.Of(event.MessageReactionType))
	req.Empty(bobSink.Of(event.ErrorType))
}

func TestCoordinator_Relay(t *testing.T) {
	sdp := "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"
	candidate := "candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host"

	tests := []struct {
		name     string
		in       event.Event
		expected any
	}{
		{
			name:     "typing gets from",
			in:       event.Event{Type: event.TypingType, Payload: event.Typing{IsTyping: true, From: "mallory"}},
			expected: event.Typing{IsTyping: true, From: "alice"},
		},
		{
			name:     "call start gets from",
			in:       event.Event{Type: event.CallStartType, Payload: event.CallSignal{Kind: "video"}},
			expected: event.CallSignal{Kind: "video", From: "alice"},
		},
		{
			name:     "call end gets from",
			in:       event.Event{Type: event.CallEndType, Payload: event.CallSignal{Kind: "audio"}},
			expected: event.CallSignal{Kind: "audio", From: "alice"},
		},
		{
			name:     "hold state untouched",
			in:       event.Event{Type: event.HoldStateChangeType, Payload: event.HoldState{OnHold: true}},
			expected: event.HoldState{OnHold: true},
		},
		{
			name:     "video state untouched",
			in:       event.Event{Type: event.VideoStateChangeType, Payload: event.VideoState{Enabled: false}},
			expected: event.VideoState{Enabled: false},
		},
		{
			name:     "ice candidate untouched",
			in:       event.Event{Type: event.IceCandidateType, Payload: event.IceCandidate{Candidate: candidate}},
			expected: event.IceCandidate{Candidate: candidate},
		},
		{
			name:     "offer untouched",
			in:       event.Event{Type: event.OfferType, Payload: event.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}},
			expected: event.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			c := newTestCoordinator(t, nil, testConfig)
			alice, aliceSink := enter(t, c, "alice-secret")
			_, bobSink := enter(t, c, "bob-secret")

			c.Handle(context.Background(), alice, tt.in)

			relayed := bobSink.Of(tt.in.Type)
			req.Len(relayed, 1)
			req.Equal(tt.expected, relayed[0].Payload)
			req.Empty(aliceSink.Of(tt.in.Type))
		})
	}
}

func TestCoordinator_Relay_Alone_Is_Not_An_Error(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, testConfig)
	alice, aliceSink := enter(t, c, "alice-secret")

	c.Handle(context.Background(), alice, event.Event{Type: event.CallStartType, Payload: event.CallSignal{Kind: "audio"}})

	req.Empty(aliceSink.Of(event.ErrorType))
}

func TestCoordinator_Reject(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestCoordinator(t, nil, testConfig)
	sink := &recordingSink{}
	s := c.Connect(sink)

	_, err := event.Decode([]byte(`{"event":"login","payload":{}}`))
	c.Reject(ctx, s, err)
	_, err = event.Decode([]byte(`{"event":"message","payload":{"kind":"gif","content":"x"}}`))
	c.Reject(ctx, s, err)
	_, err = event.Decode([]byte(`{"event":"teleport"}`))
	c.Reject(ctx, s, err)

	req.Equal(errors.CodeInvalidCredential, payloadOf(sink, event.LoginErrorType).(event.ErrorPayload).Code)
	req.Equal(errors.CodeInvalidMessage, payloadOf(sink, event.MessageErrorType).(event.ErrorPayload).Code)
	req.Equal(errors.CodeBadRequest, payloadOf(sink, event.ErrorType).(event.ErrorPayload).Code)
}

func TestCoordinator_Stats(t *testing.T) {
	req := require.New(t)
	c := newTestCoordinator(t, nil, testConfig)
	alice, _ := enter(t, c, "alice-secret")
	send(c, alice, event.MessageRequest{Kind: domain.KindText, Content: "secret", SeenOnce: true})

	stats := c.Stats()

	req.Equal(1, stats.Participants)
	req.Equal(2, stats.Capacity)
	req.Equal([]domain.Identity{"alice"}, stats.Identities)
	req.Equal(1, stats.Messages)
	req.Equal(1, stats.PendingTimers)
}
