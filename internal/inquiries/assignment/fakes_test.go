package assignment

import (
	"context"
	"sync"
	"time"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"

	"github.com/google/uuid"
)

// world is an in-memory broker directory and inquiry store. Broker metrics
// are derived from the stored inquiries, like the SQL aggregates.
type world struct {
	mu         sync.Mutex
	brokers    map[uuid.UUID]repository.BrokerProfile
	history    map[uuid.UUID]repository.BrokerMetrics
	properties map[uuid.UUID]repository.Property
	inquiries  map[uuid.UUID]*repository.Inquiry
	order      []uuid.UUID
	metricsErr error
	writes     int
}

func newWorld() *world {
	return &world{
		brokers:    map[uuid.UUID]repository.BrokerProfile{},
		history:    map[uuid.UUID]repository.BrokerMetrics{},
		properties: map[uuid.UUID]repository.Property{},
		inquiries:  map[uuid.UUID]*repository.Inquiry{},
	}
}

func (w *world) addBroker(b repository.BrokerProfile) repository.BrokerProfile {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Role == "" {
		b.Role = "broker"
	}
	w.brokers[b.ID] = b
	return b
}

func (w *world) addProperty(p repository.Property) repository.Property {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	w.properties[p.ID] = p
	return p
}

func (w *world) addInquiry(inq repository.Inquiry) *repository.Inquiry {
	if inq.ID == uuid.Nil {
		inq.ID = uuid.New()
	}
	if inq.Status == "" {
		inq.Status = domain.StatusNew
	}
	w.inquiries[inq.ID] = &inq
	w.order = append(w.order, inq.ID)
	return &inq
}

func (w *world) ListEligibleBrokers(_ context.Context) ([]repository.BrokerProfile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]repository.BrokerProfile, 0, len(w.brokers))
	for _, b := range w.brokers {
		if b.Role == "broker" && b.IsActive && b.IsApproved {
			out = append(out, b)
		}
	}
	return out, nil
}

func (w *world) GetBroker(_ context.Context, id uuid.UUID) (repository.BrokerProfile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.brokers[id]
	if !ok {
		return repository.BrokerProfile{}, repository.ErrNotFound
	}
	return b, nil
}

func (w *world) BrokerMetrics(_ context.Context, brokerID uuid.UUID, _ time.Time) (repository.BrokerMetrics, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metricsErr != nil {
		return repository.BrokerMetrics{}, w.metricsErr
	}
	m := w.history[brokerID]
	for _, inq := range w.inquiries {
		if inq.AssignedBrokerID != nil && *inq.AssignedBrokerID == brokerID && inq.Status.IsOpen() {
			m.OpenInquiries++
		}
	}
	return m, nil
}

func (w *world) GetInquiry(_ context.Context, id uuid.UUID) (repository.Inquiry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	inq, ok := w.inquiries[id]
	if !ok {
		return repository.Inquiry{}, repository.ErrNotFound
	}
	return *inq, nil
}

func (w *world) ListOpenByBroker(_ context.Context, brokerID uuid.UUID) ([]repository.Inquiry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []repository.Inquiry
	for _, id := range w.order {
		inq := w.inquiries[id]
		if inq.AssignedBrokerID != nil && *inq.AssignedBrokerID == brokerID && inq.Status.IsOpen() {
			out = append(out, *inq)
		}
	}
	return out, nil
}

func (w *world) GetProperty(_ context.Context, id uuid.UUID) (repository.Property, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.properties[id]
	if !ok {
		return repository.Property{}, repository.ErrNotFound
	}
	return p, nil
}

func (w *world) AssignBroker(_ context.Context, inquiryID uuid.UUID, brokerID *uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	inq, ok := w.inquiries[inquiryID]
	if !ok {
		return repository.ErrNotFound
	}
	inq.AssignedBrokerID = brokerID
	w.writes++
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Incr(_ context.Context, metric string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[metric]++
}

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}
