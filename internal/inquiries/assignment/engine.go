// Package assignment picks the broker responsible for handling an inquiry.
// It reads the broker directory and derived metrics but only ever writes the
// inquiry's assigned broker, never property ownership.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoEligibleBroker means the pool is empty after filtering. The inquiry
// stays unassigned.
var ErrNoEligibleBroker = errors.New("no eligible broker")

const (
	metricsWindow = 30 * 24 * time.Hour
	metricsFanout = 8
	roleBroker    = "broker"
)

// BrokerDirectory exposes brokers and the aggregates needed to score them.
type BrokerDirectory interface {
	ListEligibleBrokers(ctx context.Context) ([]repository.BrokerProfile, error)
	GetBroker(ctx context.Context, id uuid.UUID) (repository.BrokerProfile, error)
	BrokerMetrics(ctx context.Context, brokerID uuid.UUID, since time.Time) (repository.BrokerMetrics, error)
}

// Decision is the engine's pick for one inquiry.
type Decision struct {
	Broker     repository.BrokerProfile
	Reason     string
	Score      domain.Score
	Candidates []domain.Score
}

type Engine struct {
	dir BrokerDirectory
	now func() time.Time
}

func NewEngine(dir BrokerDirectory, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{dir: dir, now: now}
}

// Assign chooses a broker for an inquiry on property. The listing broker
// wins outright when available; otherwise the best-scored eligible broker
// is returned. Returns ErrNoEligibleBroker when nobody qualifies.
func (e *Engine) Assign(ctx context.Context, property repository.Property) (Decision, error) {
	now := e.now()

	if property.ListingBrokerID != nil {
		decision, ok, err := e.listingBroker(ctx, *property.ListingBrokerID, property.Location, now)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return decision, nil
		}
	}

	return e.best(ctx, property.Location, uuid.Nil, now, events.AssignReasonScored)
}

// AssignExcluding scores the pool without the listing-broker rule and
// without the excluded broker.
func (e *Engine) AssignExcluding(ctx context.Context, property repository.Property, exclude uuid.UUID) (Decision, error) {
	return e.best(ctx, property.Location, exclude, e.now(), events.AssignReasonReassigned)
}

func (e *Engine) listingBroker(ctx context.Context, brokerID uuid.UUID, location string, now time.Time) (Decision, bool, error) {
	profile, err := e.dir.GetBroker(ctx, brokerID)
	if errors.Is(err, repository.ErrNotFound) {
		return Decision{}, false, nil
	}
	if err != nil {
		return Decision{}, false, fmt.Errorf("load listing broker: %w", err)
	}
	if profile.Role != roleBroker {
		return Decision{}, false, nil
	}

	snap, err := e.snapshot(ctx, profile, now)
	if err != nil {
		return Decision{}, false, err
	}
	if !domain.IsAvailable(snap, now) {
		return Decision{}, false, nil
	}

	score := domain.ScoreBroker(snap, location, now)
	return Decision{
		Broker:     profile,
		Reason:     events.AssignReasonListingBroker,
		Score:      score,
		Candidates: []domain.Score{score},
	}, true, nil
}

func (e *Engine) best(ctx context.Context, location string, exclude uuid.UUID, now time.Time, reason string) (Decision, error) {
	ranked, profiles, err := e.rankPool(ctx, location, exclude, now)
	if err != nil {
		return Decision{}, err
	}
	if len(ranked) == 0 {
		return Decision{}, ErrNoEligibleBroker
	}

	candidates := make([]domain.Score, len(ranked))
	for i, r := range ranked {
		candidates[i] = r.Score
	}
	winner := ranked[0]
	return Decision{
		Broker:     profiles[winner.Broker.ID],
		Reason:     reason,
		Score:      winner.Score,
		Candidates: candidates,
	}, nil
}

// rankPool loads every eligible broker's metrics concurrently and ranks them.
func (e *Engine) rankPool(ctx context.Context, location string, exclude uuid.UUID, now time.Time) ([]domain.Ranked, map[uuid.UUID]repository.BrokerProfile, error) {
	pool, err := e.dir.ListEligibleBrokers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list brokers: %w", err)
	}

	profiles := make(map[uuid.UUID]repository.BrokerProfile, len(pool))
	candidates := make([]repository.BrokerProfile, 0, len(pool))
	for _, b := range pool {
		if b.ID == exclude || !b.IsActive || !b.IsApproved || b.Role != roleBroker {
			continue
		}
		profiles[b.ID] = b
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return nil, profiles, nil
	}

	snaps := make([]domain.BrokerSnapshot, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metricsFanout)
	for i, b := range candidates {
		g.Go(func() error {
			snap, err := e.snapshot(gctx, b, now)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return domain.Rank(snaps, location, now), profiles, nil
}

func (e *Engine) snapshot(ctx context.Context, b repository.BrokerProfile, now time.Time) (domain.BrokerSnapshot, error) {
	m, err := e.dir.BrokerMetrics(ctx, b.ID, now.Add(-metricsWindow))
	if err != nil {
		return domain.BrokerSnapshot{}, fmt.Errorf("metrics for broker %s: %w", b.ID, err)
	}
	return domain.BrokerSnapshot{
		ID:                 b.ID,
		Name:               b.Name,
		Email:              b.Email,
		Active:             b.IsActive,
		Approved:           b.IsApproved,
		LastActivityAt:     b.LastActivityAt,
		PreferredLocations: b.PreferredLocations,
		OpenInquiries:      m.OpenInquiries,
		OpenClients:        m.OpenClients,
		AvgResponseHours:   m.AvgResponseHours,
		Completed30d:       m.Completed30d,
		Total30d:           m.Total30d,
	}, nil
}
