package publisher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/events"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/publisher"
	"github.com/policlinic/backoffice/internal/testutil"
)

type EventPublisherSuite struct {
	suite.Suite
	cfg       *config.Configuration
	pubSub    *testutil.InMemoryPubSub
	publisher publisher.EventPublisher
}

func TestEventPublisher(t *testing.T) {
	suite.Run(t, new(EventPublisherSuite))
}

func (s *EventPublisherSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.cfg.Event.PublishMaxElapsedTime = 300 * time.Millisecond
	s.pubSub = testutil.NewInMemoryPubSub()
	s.publisher = publisher.NewEventPublisher(s.cfg, logger.NewNoopLogger(), s.pubSub)
}

func (s *EventPublisherSuite) event() *events.Event {
	return &events.Event{
		ID:          "evt-1",
		EventName:   events.EventPaymentProcessed,
		AggregateID: "pay-1",
		Timestamp:   time.Now().UTC(),
		Payload:     jsoniter.RawMessage(`{"payment_id":"pay-1"}`),
	}
}

func (s *EventPublisherSuite) TestPublishWritesEnvelopeToTopic() {
	s.Require().NoError(s.publisher.Publish(context.Background(), s.event()))

	msgs := s.pubSub.GetMessages(s.cfg.Event.Topic)
	s.Require().Len(msgs, 1)
	s.Equal("evt-1", msgs[0].UUID)
	s.Equal(events.EventPaymentProcessed, msgs[0].Metadata.Get("event_name"))
	s.Equal("pay-1", msgs[0].Metadata.Get("aggregate_id"))
	s.NotEmpty(msgs[0].Metadata.Get("published_at"))

	var got events.Event
	s.Require().NoError(jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(msgs[0].Payload, &got))
	s.Equal("evt-1", got.ID)
	s.JSONEq(`{"payment_id":"pay-1"}`, string(got.Payload))
}

func (s *EventPublisherSuite) TestPublishGivesUpAfterMaxElapsedTime() {
	s.pubSub.SetPublishError(errors.New("broker unavailable"))

	err := s.publisher.Publish(context.Background(), s.event())
	s.Require().Error(err)
	s.True(ierr.IsSystem(err))
	s.Equal("evt-1", ierr.ReportableDetails(err)["event_id"])
	s.Empty(s.pubSub.GetMessages(s.cfg.Event.Topic))
}
