package e2e

import (
	"testing"
	"time"

	"pair-relay/domain"
	"pair-relay/domain/event"

	"github.com/stretchr/testify/suite"
)

type seenOnceSuite struct {
	BaseRelaySuite
}

func TestSeenOnceSuite(t *testing.T) {
	suite.Run(t, &seenOnceSuite{})
}

func (s *seenOnceSuite) TestSeenOnceLifecycle() {
	first := s.Enter("first participant", s.Config.FirstSecret)
	second := s.Enter("second participant", s.Config.SecondSecret)

	var ack event.MessageAck
	s.Run("Step 1: send a seen-once text", func() {
		s.Require().NoError(first.Send(event.MessageType, event.MessageRequest{
			Kind:     domain.KindText,
			Content:  "read me once",
			SeenOnce: true,
		}))
		s.Require().NoError(first.Expect(event.MessageAckType, &ack))

		var msg domain.Message
		s.Require().NoError(second.Expect(event.NewMessageType, &msg))
		s.Require().Equal(ack.MessageID, msg.ID)
		s.Require().True(msg.SeenOnce)
	})

	s.Run("Step 2: the recipient views it and the sender is told", func() {
		s.Require().NoError(second.Send(event.SeenOnceViewedType, event.MessageRef{MessageID: ack.MessageID}))
		var viewed event.MessageViewed
		s.Require().NoError(first.Expect(event.MessageViewedType, &viewed))
		s.Require().Equal(ack.MessageID, viewed.MessageID)
	})

	s.Run("Step 3: both sides see the removal after the reveal window", func() {
		start := time.Now()
		var removed event.MessageRemoved
		s.Require().NoError(first.Expect(event.MessageRemovedType, &removed))
		s.Require().Equal(ack.MessageID, removed.MessageID)
		s.Require().NoError(second.Expect(event.MessageRemovedType, &removed))
		s.Require().Equal(ack.MessageID, removed.MessageID)
		s.Require().Less(time.Since(start), s.Config.RevealDuration+2*time.Second)
	})
}
