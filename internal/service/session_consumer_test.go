package service

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/domain/events"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/testutil"
	"github.com/policlinic/backoffice/internal/types"
)

type SessionEventConsumerSuite struct {
	testutil.BaseServiceTestSuite
	consumer SessionEventConsumer
	billing  BillingService
}

func TestSessionEventConsumer(t *testing.T) {
	suite.Run(t, new(SessionEventConsumerSuite))
}

func (s *SessionEventConsumerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.billing = NewBillingService(params)
	s.consumer = NewSessionEventConsumer(params, s.billing)
}

func (s *SessionEventConsumerSuite) message(name string, payload any) *message.Message {
	raw, err := jsoniter.Marshal(payload)
	s.Require().NoError(err)

	body, err := jsoniter.Marshal(&events.Event{
		ID:          types.GenerateEventID(),
		EventName:   name,
		AggregateID: "agg",
		Timestamp:   time.Now().UTC(),
		Payload:     raw,
	})
	s.Require().NoError(err)

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(context.Background())
	return msg
}

func (s *SessionEventConsumerSuite) TestBillsCompletedSession() {
	sess := s.CreateCompletedSession("60", "40")

	err := s.consumer.ProcessMessage(s.message(events.EventSessionCompleted, &events.SessionCompleted{SessionID: sess.ID}))
	s.NoError(err)

	b, err := s.billing.GetBillingForSession(s.GetContext(), sess.ID)
	s.Require().NoError(err)
	s.True(b.FinalAmount.Equal(dec("100")))
	s.Equal(types.DefaultUserID, b.CreatedBy)

	// redelivery is harmless
	err = s.consumer.ProcessMessage(s.message(events.EventSessionCompleted, &events.SessionCompleted{SessionID: sess.ID}))
	s.NoError(err)
	s.Len(s.GetPublisher().EventsByName(events.EventSessionBillingCalculated), 1)
}

func (s *SessionEventConsumerSuite) TestIgnoresOtherMessages() {
	sess := s.CreateCompletedSession("60")

	s.NoError(s.consumer.ProcessMessage(s.message("session.started", &events.SessionCompleted{SessionID: sess.ID})))
	s.NoError(s.consumer.ProcessMessage(s.message(events.EventSessionCompleted, &events.SessionCompleted{})))
	s.NoError(s.consumer.ProcessMessage(message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	_, err := s.billing.GetBillingForSession(s.GetContext(), sess.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *SessionEventConsumerSuite) TestUnbillableSessionIsAcked() {
	sess := s.CreateSession(types.SessionStatusCancelled, "60")

	s.NoError(s.consumer.ProcessMessage(s.message(events.EventSessionCompleted, &events.SessionCompleted{SessionID: sess.ID})))

	_, err := s.billing.GetBillingForSession(s.GetContext(), sess.ID)
	s.True(ierr.IsNotFound(err))
}
