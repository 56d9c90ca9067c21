package assignment

import (
	"context"
	"errors"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/logger"

	"github.com/google/uuid"
)

// InquiryStore is the persistence surface used outside the admission
// transaction. Each write commits on its own.
type InquiryStore interface {
	GetInquiry(ctx context.Context, id uuid.UUID) (repository.Inquiry, error)
	ListOpenByBroker(ctx context.Context, brokerID uuid.UUID) ([]repository.Inquiry, error)
	GetProperty(ctx context.Context, id uuid.UUID) (repository.Property, error)
	GetBroker(ctx context.Context, id uuid.UUID) (repository.BrokerProfile, error)
	AssignBroker(ctx context.Context, inquiryID uuid.UUID, brokerID *uuid.UUID) error
}

// Recorder counts assignment outcomes.
type Recorder interface {
	Incr(ctx context.Context, metric string)
}

type Service struct {
	engine  *Engine
	store   InquiryStore
	bus     events.Bus
	metrics Recorder
	log     *logger.Logger
}

func NewService(engine *Engine, store InquiryStore, bus events.Bus, metrics Recorder, log *logger.Logger) *Service {
	if metrics == nil {
		metrics = (*monitoring.Counters)(nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{engine: engine, store: store, bus: bus, metrics: metrics, log: log}
}

// Outcome is the result of assigning one inquiry.
type Outcome struct {
	InquiryID      uuid.UUID  `json:"inquiryId"`
	PreviousBroker *uuid.UUID `json:"previousBrokerId,omitempty"`
	BrokerID       *uuid.UUID `json:"brokerId,omitempty"`
	BrokerName     string     `json:"brokerName,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Batch summarises a reassignment run.
type Batch struct {
	BrokerID   uuid.UUID `json:"brokerId"`
	Outcomes   []Outcome `json:"outcomes"`
	Reassigned int       `json:"reassigned"`
	Unassigned int       `json:"unassigned"`
	Failed     int       `json:"failed"`
}

// AssignInquiry runs the engine for an open inquiry that has no broker yet.
// An empty pool is reported in the outcome, not as an error.
func (s *Service) AssignInquiry(ctx context.Context, inquiryID uuid.UUID) (Outcome, error) {
	inq, err := s.store.GetInquiry(ctx, inquiryID)
	if errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, apperr.NotFound("inquiry not found")
	}
	if err != nil {
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "load inquiry", err)
	}
	if !inq.Status.IsOpen() {
		return Outcome{}, apperr.Conflict("inquiry is no longer open")
	}
	if inq.AssignedBrokerID != nil {
		return Outcome{}, apperr.Conflict("inquiry already has a broker").WithDetails(map[string]string{
			"brokerId": inq.AssignedBrokerID.String(),
		})
	}

	property, err := s.store.GetProperty(ctx, inq.PropertyID)
	if err != nil {
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "load property", err)
	}

	decision, err := s.engine.Assign(ctx, property)
	if errors.Is(err, ErrNoEligibleBroker) {
		s.unassigned(ctx, inq, events.AssignFailNoEligibleBroker, nil)
		return Outcome{InquiryID: inq.ID, Error: ErrNoEligibleBroker.Error()}, nil
	}
	if err != nil {
		s.unassigned(ctx, inq, events.AssignFailEngineError, err)
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "assignment failed", err)
	}

	brokerID := decision.Broker.ID
	if err := s.store.AssignBroker(ctx, inq.ID, &brokerID); err != nil {
		s.unassigned(ctx, inq, events.AssignFailWriteFailed, err)
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "save assignment", err)
	}

	s.assigned(ctx, inq, nil, decision, monitoring.MetricAssigned)
	return outcomeOf(inq.ID, nil, decision), nil
}

// ReassignBroker moves every open inquiry of brokerID to the best remaining
// broker. The listing-broker rule is skipped and property ownership is left
// alone. Each inquiry is written as soon as it is scored so that later
// inquiries in the batch see the updated workload.
func (s *Service) ReassignBroker(ctx context.Context, brokerID uuid.UUID) (Batch, error) {
	if _, err := s.store.GetBroker(ctx, brokerID); errors.Is(err, repository.ErrNotFound) {
		return Batch{}, apperr.NotFound("broker not found")
	} else if err != nil {
		return Batch{}, apperr.Wrap(apperr.KindInternal, "load broker", err)
	}

	open, err := s.store.ListOpenByBroker(ctx, brokerID)
	if err != nil {
		return Batch{}, apperr.Wrap(apperr.KindInternal, "list open inquiries", err)
	}

	batch := Batch{BrokerID: brokerID, Outcomes: make([]Outcome, 0, len(open))}
	for _, inq := range open {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		out := s.reassignOne(ctx, inq, brokerID)
		switch {
		case out.Error != "":
			batch.Failed++
		case out.BrokerID == nil:
			batch.Unassigned++
		default:
			batch.Reassigned++
		}
		batch.Outcomes = append(batch.Outcomes, out)
	}

	s.log.Info("broker reassignment finished",
		"broker_id", brokerID,
		"open", len(open),
		"reassigned", batch.Reassigned,
		"unassigned", batch.Unassigned,
		"failed", batch.Failed,
	)
	return batch, nil
}

func (s *Service) reassignOne(ctx context.Context, inq repository.Inquiry, from uuid.UUID) Outcome {
	previous := from
	property, err := s.store.GetProperty(ctx, inq.PropertyID)
	if err != nil {
		s.log.AssignmentFailed(inq.ID.String(), events.AssignFailEngineError, err)
		return Outcome{InquiryID: inq.ID, PreviousBroker: &previous, Error: "property lookup failed"}
	}

	decision, err := s.engine.AssignExcluding(ctx, property, from)
	if errors.Is(err, ErrNoEligibleBroker) {
		if err := s.store.AssignBroker(ctx, inq.ID, nil); err != nil {
			s.log.AssignmentFailed(inq.ID.String(), events.AssignFailWriteFailed, err)
			return Outcome{InquiryID: inq.ID, PreviousBroker: &previous, Error: "clear assignment failed"}
		}
		s.unassigned(ctx, inq, events.AssignFailNoEligibleBroker, nil)
		return Outcome{InquiryID: inq.ID, PreviousBroker: &previous}
	}
	if err != nil {
		s.unassigned(ctx, inq, events.AssignFailEngineError, err)
		return Outcome{InquiryID: inq.ID, PreviousBroker: &previous, Error: "scoring failed"}
	}

	brokerID := decision.Broker.ID
	if err := s.store.AssignBroker(ctx, inq.ID, &brokerID); err != nil {
		s.unassigned(ctx, inq, events.AssignFailWriteFailed, err)
		return Outcome{InquiryID: inq.ID, PreviousBroker: &previous, Error: "save assignment failed"}
	}

	s.assigned(ctx, inq, &previous, decision, monitoring.MetricReassigned)
	return outcomeOf(inq.ID, &previous, decision)
}

func (s *Service) assigned(ctx context.Context, inq repository.Inquiry, previous *uuid.UUID, d Decision, metric string) {
	score := d.Score.Composite
	s.metrics.Incr(ctx, metric)
	s.bus.Publish(ctx, events.BrokerAssigned{
		BaseEvent:      events.NewBaseEvent(),
		InquiryID:      inq.ID,
		PropertyID:     inq.PropertyID,
		PreviousBroker: previous,
		BrokerID:       d.Broker.ID,
		BrokerName:     d.Broker.Name,
		BrokerEmail:    d.Broker.Email,
		Reason:         d.Reason,
		Score:          &score,
	})
}

func (s *Service) unassigned(ctx context.Context, inq repository.Inquiry, reason string, cause error) {
	s.log.AssignmentFailed(inq.ID.String(), reason, cause)
	s.metrics.Incr(ctx, monitoring.MetricUnassigned)

	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	s.bus.Publish(ctx, events.AssignmentFailed{
		BaseEvent:  events.NewBaseEvent(),
		InquiryID:  inq.ID,
		PropertyID: inq.PropertyID,
		Reason:     reason,
		Detail:     detail,
	})
}

func outcomeOf(inquiryID uuid.UUID, previous *uuid.UUID, d Decision) Outcome {
	brokerID := d.Broker.ID
	score := d.Score.Composite
	return Outcome{
		InquiryID:      inquiryID,
		PreviousBroker: previous,
		BrokerID:       &brokerID,
		BrokerName:     d.Broker.Name,
		Reason:         d.Reason,
		Score:          &score,
	}
}
