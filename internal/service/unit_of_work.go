package service

import (
	"context"

	"github.com/policlinic/backoffice/internal/domain/events"
	ierr "github.com/policlinic/backoffice/internal/errors"
)

// runUnitOfWork holds the per-aggregate locks for lockKeys while fn runs in a
// transaction, then publishes the events fn recorded once the transaction has
// committed and the locks are released. Nothing is published when fn fails.
func (p ServiceParams) runUnitOfWork(ctx context.Context, lockKeys []string, fn func(ctx context.Context, outbox *events.Outbox) error) error {
	outbox := events.NewOutbox()
	if err := p.commitLocked(ctx, lockKeys, outbox, fn); err != nil {
		return err
	}

	p.flush(ctx, outbox)
	return nil
}

func (p ServiceParams) commitLocked(ctx context.Context, lockKeys []string, outbox *events.Outbox, fn func(ctx context.Context, outbox *events.Outbox) error) error {
	unlock := p.Locker.Lock(lockKeys...)
	defer unlock()

	return p.DB.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, outbox)
	})
}

// flush publishes drained events. Publish failures are logged and reported,
// never returned, since the state change has already committed.
func (p ServiceParams) flush(ctx context.Context, outbox *events.Outbox) {
	for _, event := range outbox.Drain() {
		if err := p.EventPublisher.Publish(ctx, event); err != nil {
			p.Logger.WithContext(ctx).Errorw("failed to publish event",
				"error", err,
				"event_id", event.ID,
				"event_name", event.EventName,
				"aggregate_id", event.AggregateID,
			)
			p.Sentry.CaptureExceptionWithContext(ctx, err)
		}
	}
}

// recordEvent adds an event to the outbox. A payload that cannot be encoded
// is a programming error and aborts the unit of work.
func recordEvent(ctx context.Context, outbox *events.Outbox, name, aggregateID string, payload any) error {
	if err := outbox.Add(ctx, name, aggregateID, payload); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to record %s event", name).
			Mark(ierr.ErrSystem)
	}
	return nil
}

// collaboratorError marks failures of session and user lookups that are not
// already typed as ErrSystem
func collaboratorError(err error, hint string) error {
	if err == nil {
		return nil
	}
	if ierr.IsBusinessRule(err) || ierr.IsVersionConflict(err) || ierr.IsDatabase(err) || ierr.IsSystem(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrSystem)
}
