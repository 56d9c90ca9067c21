// Package intake orchestrates inquiry admission: rate limiting, validation,
// duplicate detection, the persistence transaction and broker assignment.
package intake

import (
	"context"
	"errors"
	"fmt"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/admission"
	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/logger"

	"github.com/google/uuid"
)

// Store opens the admission transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(repository.TxStore) error) error
}

type RateLimiter interface {
	Check(ctx context.Context, ip, email string) error
}

type Gate interface {
	Check(ctx context.Context, s admission.Submission) (repository.Property, error)
}

type Detector interface {
	Detect(ctx context.Context, c admission.Candidate) (domain.DuplicateCheckResult, error)
}

// BrokerPicker chooses the handling broker for a property.
type BrokerPicker interface {
	Assign(ctx context.Context, property repository.Property) (assignment.Decision, error)
}

type Recorder interface {
	Incr(ctx context.Context, metric string)
}

// BrokerRef identifies the broker an inquiry was routed to.
type BrokerRef struct {
	ID     uuid.UUID
	Name   string
	Email  string
	Reason string
	Score  float64
}

// Result is a successful admission.
type Result struct {
	Inquiry        repository.Inquiry
	Broker         *BrokerRef
	DuplicateCheck domain.DuplicateCheckResult
}

type Deps struct {
	Store       Store
	Limiter     RateLimiter
	Gate        Gate
	Detector    Detector
	Picker      BrokerPicker
	Bus         events.Bus
	Metrics     Recorder
	Masker      *logger.PIIMasker
	Log         *logger.Logger
	PhoneRegion string
}

type Service struct {
	store       Store
	limiter     RateLimiter
	gate        Gate
	detector    Detector
	picker      BrokerPicker
	bus         events.Bus
	metrics     Recorder
	masker      *logger.PIIMasker
	log         *logger.Logger
	phoneRegion string
}

func New(d Deps) *Service {
	masker := d.Masker
	if masker == nil {
		masker = logger.NewPIIMasker("")
	}
	var metrics Recorder = (*monitoring.Counters)(nil)
	if d.Metrics != nil {
		metrics = d.Metrics
	}
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:       d.Store,
		limiter:     d.Limiter,
		gate:        d.Gate,
		detector:    d.Detector,
		picker:      d.Picker,
		bus:         d.Bus,
		metrics:     metrics,
		masker:      masker,
		log:         log,
		phoneRegion: d.PhoneRegion,
	}
}

// assignmentOutcome is the engine's pick and whether it was stored.
type assignmentOutcome struct {
	decision   *assignment.Decision
	failReason string
	failErr    error
}

// Submit runs the full admission pipeline for one submission. Validation,
// rate-limit and duplicate rejections happen before anything is written.
// Once the inquiry commits, assignment problems never undo it.
func (s *Service) Submit(ctx context.Context, raw admission.Submission) (Result, error) {
	sub := admission.Normalize(raw, s.phoneRegion)

	if err := s.limiter.Check(ctx, sub.IPAddress, sub.Email); err != nil {
		if apperr.HasCode(err, apperr.CodeRateLimitExceeded) {
			s.metrics.Incr(ctx, monitoring.MetricRateLimited)
			return Result{}, err
		}
		return Result{}, s.systemError(ctx, "rate limit check", err)
	}

	property, err := s.gate.Check(ctx, sub)
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			s.metrics.Incr(ctx, monitoring.MetricRejected)
			return Result{}, err
		}
		return Result{}, s.systemError(ctx, "validation", err)
	}

	candidate := sub.Candidate()
	dup, err := s.detector.Detect(ctx, candidate)
	if err != nil {
		return Result{}, s.systemError(ctx, "duplicate detection", err)
	}

	if dup.Action != domain.ActionAllow {
		masked := s.masker.Mask(sub.Email, sub.Phone, sub.IPAddress)
		s.log.WithContext(ctx).DuplicateDecision(string(dup.Action), dup.Checks, masked)
		if dup.Blocked() {
			s.metrics.Incr(ctx, monitoring.MetricBlocked)
			s.bus.Publish(ctx, events.DuplicatePrevented{
				BaseEvent:      events.NewBaseEvent(),
				PropertyID:     candidate.PropertyID,
				Action:         string(dup.Action),
				PositiveChecks: dup.Positive(),
				MaskedEmail:    masked.Email,
				IPHash:         masked.IPHash,
			})
			return Result{}, apperr.Conflict("this inquiry looks like a duplicate of a recent submission").
				WithCode(apperr.CodeDuplicateBlocked).
				WithDetails(dup.Summary())
		}
	}

	// Scoring reads the broker pool outside the transaction so a submission
	// never holds two pool connections at once. Counts may be slightly stale.
	pick := s.pick(ctx, property)

	var (
		inquiry repository.Inquiry
		outcome assignmentOutcome
	)
	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		params := repository.CreateInquiryParams{
			PropertyID: candidate.PropertyID,
			UserID:     sub.UserID,
			Name:       sub.Name,
			Email:      sub.Email,
			Phone:      sub.Phone,
			Message:    sub.Message,
			IPAddress:  sub.IPAddress,
			IsFlagged:  dup.Flagged(),
		}
		if dup.Flagged() {
			params.FlagReason = &dup
		}

		created, err := tx.CreateInquiry(ctx, params)
		if err != nil {
			return fmt.Errorf("create inquiry: %w", err)
		}

		client, err := resolveClient(ctx, tx, sub)
		if err != nil {
			return err
		}
		if err := tx.AttachClient(ctx, created.ID, client.ID); err != nil {
			return fmt.Errorf("attach client: %w", err)
		}
		created.ClientID = &client.ID

		if sub.UserID != nil {
			if err := tx.BackfillUser(ctx, sub.Email, *sub.UserID); err != nil {
				return fmt.Errorf("backfill user: %w", err)
			}
		}

		outcome = writeAssignment(ctx, tx, created.ID, pick)
		if outcome.decision != nil {
			id := outcome.decision.Broker.ID
			created.AssignedBrokerID = &id
		}

		inquiry = created
		return nil
	})
	if err != nil {
		return Result{}, s.systemError(ctx, "persist inquiry", err)
	}

	return s.admitted(ctx, inquiry, dup, outcome), nil
}

// resolveClient links the submission to the client owning its email,
// creating one when none exists.
func resolveClient(ctx context.Context, tx repository.TxStore, sub admission.Submission) (repository.Client, error) {
	client, err := tx.FindClientByEmail(ctx, sub.Email)
	if errors.Is(err, repository.ErrNotFound) {
		created, err := tx.CreateClient(ctx, repository.CreateClientParams{
			Email:  sub.Email,
			Name:   sub.Name,
			Phone:  sub.Phone,
			UserID: sub.UserID,
		})
		if err != nil {
			return repository.Client{}, fmt.Errorf("create client: %w", err)
		}
		return created, nil
	}
	if err != nil {
		return repository.Client{}, fmt.Errorf("find client: %w", err)
	}

	if client.UserID == nil && sub.UserID != nil {
		if err := tx.LinkClientUser(ctx, client.ID, *sub.UserID); err != nil {
			return repository.Client{}, fmt.Errorf("link client: %w", err)
		}
		client.UserID = sub.UserID
	}
	return client, nil
}

// pick runs the engine. An empty pool or engine failure is carried as a
// failed outcome; it never rejects the submission.
func (s *Service) pick(ctx context.Context, property repository.Property) assignmentOutcome {
	decision, err := s.picker.Assign(ctx, property)
	if errors.Is(err, assignment.ErrNoEligibleBroker) {
		return assignmentOutcome{failReason: events.AssignFailNoEligibleBroker}
	}
	if err != nil {
		return assignmentOutcome{failReason: events.AssignFailEngineError, failErr: err}
	}
	return assignmentOutcome{decision: &decision}
}

// writeAssignment stores the pick inside a savepoint so that a failed write
// leaves the inquiry itself intact.
func writeAssignment(ctx context.Context, tx repository.TxStore, inquiryID uuid.UUID, pick assignmentOutcome) assignmentOutcome {
	if pick.decision == nil {
		return pick
	}
	brokerID := pick.decision.Broker.ID
	err := tx.Savepoint(ctx, func(sp repository.TxStore) error {
		return sp.AssignBroker(ctx, inquiryID, &brokerID)
	})
	if err != nil {
		return assignmentOutcome{failReason: events.AssignFailWriteFailed, failErr: err}
	}
	return pick
}

func (s *Service) admitted(ctx context.Context, inq repository.Inquiry, dup domain.DuplicateCheckResult, outcome assignmentOutcome) Result {
	s.metrics.Incr(ctx, monitoring.MetricAdmitted)
	if inq.IsFlagged {
		s.metrics.Incr(ctx, monitoring.MetricFlagged)
	}

	s.bus.Publish(ctx, events.InquiryCreated{
		BaseEvent:        events.NewBaseEventAt(inq.CreatedAt),
		InquiryID:        inq.ID,
		PropertyID:       inq.PropertyID,
		ClientID:         inq.ClientID,
		AssignedBrokerID: inq.AssignedBrokerID,
		ContactName:      inq.Name,
		ContactEmail:     inq.Email,
		IsFlagged:        inq.IsFlagged,
	})

	result := Result{Inquiry: inq, DuplicateCheck: dup}

	if d := outcome.decision; d != nil {
		s.metrics.Incr(ctx, monitoring.MetricAssigned)
		score := d.Score.Composite
		s.bus.Publish(ctx, events.BrokerAssigned{
			BaseEvent:   events.NewBaseEvent(),
			InquiryID:   inq.ID,
			PropertyID:  inq.PropertyID,
			BrokerID:    d.Broker.ID,
			BrokerName:  d.Broker.Name,
			BrokerEmail: d.Broker.Email,
			Reason:      d.Reason,
			Score:       &score,
		})
		result.Broker = &BrokerRef{
			ID:     d.Broker.ID,
			Name:   d.Broker.Name,
			Email:  d.Broker.Email,
			Reason: d.Reason,
			Score:  score,
		}
		return result
	}

	s.metrics.Incr(ctx, monitoring.MetricUnassigned)
	s.log.WithContext(ctx).AssignmentFailed(inq.ID.String(), outcome.failReason, outcome.failErr)
	detail := ""
	if outcome.failErr != nil {
		detail = outcome.failErr.Error()
	}
	s.bus.Publish(ctx, events.AssignmentFailed{
		BaseEvent:  events.NewBaseEvent(),
		InquiryID:  inq.ID,
		PropertyID: inq.PropertyID,
		Reason:     outcome.failReason,
		Detail:     detail,
	})
	return result
}

func (s *Service) systemError(ctx context.Context, op string, err error) error {
	s.log.WithContext(ctx).DatabaseError(op, err)
	return apperr.Wrap(apperr.KindInternal, "inquiry could not be processed", err).WithOp(op)
}
