// Package lifecycle applies status transitions to admitted inquiries.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/logger"

	"github.com/google/uuid"
)

// Store opens the transaction that locks the inquiry row.
type Store interface {
	WithinTx(ctx context.Context, fn func(repository.TxStore) error) error
	GetInquiry(ctx context.Context, id uuid.UUID) (repository.Inquiry, error)
}

type Recorder interface {
	Incr(ctx context.Context, metric string)
}

// Actor is the staff member driving a transition.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// mayHandle reports whether the actor may act on inq.
func (a Actor) mayHandle(inq repository.Inquiry) bool {
	if a.IsAdmin {
		return true
	}
	return inq.AssignedBrokerID != nil && *inq.AssignedBrokerID == a.UserID
}

type Service struct {
	store   Store
	bus     events.Bus
	metrics Recorder
	log     *logger.Logger
	now     func() time.Time
}

func New(store Store, bus events.Bus, metrics Recorder, log *logger.Logger, now func() time.Time) *Service {
	if metrics == nil {
		metrics = (*monitoring.Counters)(nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, bus: bus, metrics: metrics, log: log, now: now}
}

// Get returns an inquiry to staff. Brokers only see inquiries routed to them.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (repository.Inquiry, error) {
	inq, err := s.store.GetInquiry(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Inquiry{}, apperr.NotFound("inquiry not found")
	}
	if err != nil {
		return repository.Inquiry{}, apperr.Wrap(apperr.KindInternal, "load inquiry", err)
	}
	if !actor.mayHandle(inq) {
		return repository.Inquiry{}, apperr.Forbidden("inquiry is not assigned to you")
	}
	return inq, nil
}

// Transition moves an inquiry to target. The row is locked for the
// read-check-write so concurrent transitions serialise.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target string, actor Actor) (repository.Inquiry, error) {
	next, err := domain.ParseStatus(target)
	if err != nil {
		return repository.Inquiry{}, apperr.FieldValidation(map[string]string{"status": "must be one of new, contacted, scheduled, completed, closed"})
	}

	var (
		previous domain.Status
		updated  repository.Inquiry
	)
	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		inq, err := tx.GetInquiryForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("inquiry not found")
		}
		if err != nil {
			return err
		}
		if !actor.mayHandle(inq) {
			return apperr.Forbidden("only an admin or the assigned broker may change this inquiry")
		}

		stamps, err := domain.Transition(inq.Status, next, inq.Timestamps(), s.now())
		if errors.Is(err, domain.ErrIllegalTransition) {
			return apperr.Conflict("status cannot change from " + inq.Status.String() + " to " + next.String()).
				WithCode(apperr.CodeIllegalTransition).
				WithDetails(map[string]string{"from": inq.Status.String(), "to": next.String()})
		}
		if err != nil {
			return err
		}

		previous = inq.Status
		updated, err = tx.UpdateStatus(ctx, id, repository.StatusUpdate{Status: next, Stamps: stamps})
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return repository.Inquiry{}, err
		}
		s.log.WithContext(ctx).Error("status transition failed", "inquiryId", id.String(), "error", err)
		return repository.Inquiry{}, apperr.Wrap(apperr.KindInternal, "status could not be updated", err).WithOp("lifecycle.Transition")
	}

	s.metrics.Incr(ctx, monitoring.MetricTransitioned)
	actorID := actor.UserID
	s.bus.Publish(ctx, events.InquiryStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		InquiryID: id,
		OldStatus: previous.String(),
		NewStatus: next.String(),
		ActorID:   &actorID,
	})
	return updated, nil
}
