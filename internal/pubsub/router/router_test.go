package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/config"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/httpclient"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/pubsub"
	"github.com/policlinic/backoffice/internal/pubsub/memory"
	"github.com/policlinic/backoffice/internal/sentry"
)

const testTopic = "billing_events"

type RouterSuite struct {
	suite.Suite
	pubSub pubsub.PubSub
	router *Router
	cancel context.CancelFunc
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Event.Topic = testTopic
	cfg.Webhook.MaxRetries = 3
	cfg.Webhook.InitialInterval = 10 * time.Millisecond
	cfg.Webhook.MaxInterval = 20 * time.Millisecond
	cfg.Webhook.Multiplier = 2
	cfg.Webhook.MaxElapsedTime = time.Second

	log := logger.NewNoopLogger()
	s.pubSub = memory.NewPubSub(log)

	r, err := NewRouter(cfg, log, sentry.NewSentryService(cfg, log))
	s.Require().NoError(err)
	s.router = r
}

func (s *RouterSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
	s.NoError(s.router.Close())
	s.NoError(s.pubSub.Close())
}

func (s *RouterSuite) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		_ = s.router.Run(ctx)
	}()
	select {
	case <-s.router.Running():
	case <-time.After(2 * time.Second):
		s.FailNow("router did not start")
	}
}

func (s *RouterSuite) publish() {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set(pubsub.MetadataEventName, "invoice.created")
	msg.Metadata.Set(pubsub.MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	s.Require().NoError(s.pubSub.Publish(context.Background(), testTopic, msg))
}

func (s *RouterSuite) TestDeliversMessage() {
	var calls int32
	s.router.AddNoPublishHandler("test_handler", testTopic, s.pubSub, func(msg *message.Message) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	s.start()

	s.publish()

	s.Eventually(func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 10*time.Millisecond)
}

func (s *RouterSuite) TestRetriesTransientFailure() {
	var calls int32
	s.router.AddNoPublishHandler("test_handler", testTopic, s.pubSub, func(msg *message.Message) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	s.start()

	s.publish()

	s.Eventually(func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 10*time.Millisecond)
}

func (s *RouterSuite) TestDropsBusinessRuleFailure() {
	var calls int32
	s.router.AddNoPublishHandler("test_handler", testTopic, s.pubSub, func(msg *message.Message) error {
		atomic.AddInt32(&calls, 1)
		return ierr.NewError("session not completed").Mark(ierr.ErrInvalidState)
	})
	s.start()

	s.publish()

	s.Eventually(func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	s.Equal(int32(1), atomic.LoadInt32(&calls))
}

func (s *RouterSuite) TestShouldRetry() {
	log := logger.NewNoopLogger()

	s.True(shouldRetry(log, httpclient.NewError(503, nil)))
	s.True(shouldRetry(log, httpclient.NewError(429, nil)))
	s.False(shouldRetry(log, httpclient.NewError(400, nil)))
	s.False(shouldRetry(log, ierr.NewError("x").Mark(ierr.ErrConflict)))
	s.True(shouldRetry(log, errors.New("broker unavailable")))
}
