package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/api/dto"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/testutil"
	"github.com/policlinic/backoffice/internal/types"
)

// stalledPublisher blocks every publish until release is closed
type stalledPublisher struct {
	started chan string
	release chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, event *events.Event) error {
	p.started <- event.EventName
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return nil
}

type UnitOfWorkSuite struct {
	testutil.BaseServiceTestSuite
	publisher *stalledPublisher
	service   BillingService
}

func TestUnitOfWork(t *testing.T) {
	suite.Run(t, new(UnitOfWorkSuite))
}

func (s *UnitOfWorkSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.publisher = &stalledPublisher{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.EventPublisher = s.publisher
	s.service = NewBillingService(params)
}

func (s *UnitOfWorkSuite) TearDownTest() {
	select {
	case <-s.publisher.release:
	default:
		close(s.publisher.release)
	}
	s.BaseServiceTestSuite.TearDownTest()
}

func (s *UnitOfWorkSuite) discount(billingID, amount string) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := s.service.ApplyDiscount(s.GetContext(), dto.ApplyDiscountRequest{
			BillingID: billingID,
			AppliedBy: types.DefaultUserID,
			Amount:    dec(amount),
			Reason:    "courtesy",
		})
		done <- err
	}()
	return done
}

func (s *UnitOfWorkSuite) awaitPublish(want string) {
	select {
	case name := <-s.publisher.started:
		s.Equal(want, name)
	case <-time.After(2 * time.Second):
		s.FailNow("operation blocked behind a stalled publish", want)
	}
}

func (s *UnitOfWorkSuite) TestStalledPublishDoesNotHoldAggregateLock() {
	sess := s.CreateCompletedSession("100.00")
	created := make(chan error, 1)
	go func() {
		_, err := s.service.CreateSessionBilling(s.GetContext(), dto.CreateSessionBillingRequest{SessionID: sess.ID})
		created <- err
	}()
	s.awaitPublish(events.EventSessionBillingCalculated)

	billing, err := s.GetStores().BillingRepo.GetBySessionID(s.GetContext(), sess.ID)
	s.Require().NoError(err)

	first := s.discount(billing.ID, "10")
	s.awaitPublish(events.EventManualDiscountApplied)

	// both earlier publishes are still stalled
	second := s.discount(billing.ID, "15")
	s.awaitPublish(events.EventManualDiscountApplied)

	close(s.publisher.release)
	s.NoError(<-created)
	s.NoError(<-first)
	s.NoError(<-second)

	stored, err := s.service.GetBilling(s.GetContext(), billing.ID)
	s.Require().NoError(err)
	s.Len(stored.Discounts, 2)
	s.True(stored.FinalAmount.Equal(dec("75")))
}
