package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/admission"
	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"

	"github.com/google/uuid"
)

// state is the committed content of the fake database.
type state struct {
	inquiries map[uuid.UUID]repository.Inquiry
	clients   map[string]repository.Client
}

func (s state) clone() state {
	out := state{
		inquiries: make(map[uuid.UUID]repository.Inquiry, len(s.inquiries)),
		clients:   make(map[string]repository.Client, len(s.clients)),
	}
	for k, v := range s.inquiries {
		out.inquiries[k] = v
	}
	for k, v := range s.clients {
		out.clients[k] = v
	}
	return out
}

// txDB stages writes on a copy of the committed state and swaps it in only
// when the transaction function succeeds.
type txDB struct {
	mu        sync.Mutex
	committed state
	now       time.Time

	failCreateClient error
	failAttach       error
	failAssign       error
	txCount          int
}

func newTxDB() *txDB {
	return &txDB{
		committed: state{inquiries: map[uuid.UUID]repository.Inquiry{}, clients: map[string]repository.Client{}},
		now:       time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func (db *txDB) WithinTx(ctx context.Context, fn func(repository.TxStore) error) error {
	db.mu.Lock()
	db.txCount++
	staged := db.committed.clone()
	db.mu.Unlock()

	if err := fn(&fakeTx{db: db, st: &staged}); err != nil {
		return err
	}

	db.mu.Lock()
	db.committed = staged
	db.mu.Unlock()
	return nil
}

func (db *txDB) inquiryCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.committed.inquiries)
}

func (db *txDB) onlyInquiry() repository.Inquiry {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, inq := range db.committed.inquiries {
		return inq
	}
	return repository.Inquiry{}
}

type fakeTx struct {
	db *txDB
	st *state
}

func (t *fakeTx) CreateInquiry(_ context.Context, p repository.CreateInquiryParams) (repository.Inquiry, error) {
	inq := repository.Inquiry{
		ID:         uuid.New(),
		PropertyID: p.PropertyID,
		UserID:     p.UserID,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Message:    p.Message,
		Status:     domain.StatusNew,
		IPAddress:  p.IPAddress,
		IsFlagged:  p.IsFlagged,
		FlagReason: p.FlagReason,
		CreatedAt:  t.db.now,
		UpdatedAt:  t.db.now,
	}
	t.st.inquiries[inq.ID] = inq
	return inq, nil
}

func (t *fakeTx) AttachClient(_ context.Context, inquiryID, clientID uuid.UUID) error {
	if t.db.failAttach != nil {
		return t.db.failAttach
	}
	inq, ok := t.st.inquiries[inquiryID]
	if !ok {
		return repository.ErrNotFound
	}
	inq.ClientID = &clientID
	t.st.inquiries[inquiryID] = inq
	return nil
}

func (t *fakeTx) FindClientByEmail(_ context.Context, email string) (repository.Client, error) {
	c, ok := t.st.clients[email]
	if !ok {
		return repository.Client{}, repository.ErrNotFound
	}
	return c, nil
}

func (t *fakeTx) CreateClient(_ context.Context, p repository.CreateClientParams) (repository.Client, error) {
	if t.db.failCreateClient != nil {
		return repository.Client{}, t.db.failCreateClient
	}
	if c, ok := t.st.clients[p.Email]; ok {
		return c, nil
	}
	c := repository.Client{ID: uuid.New(), Email: p.Email, Name: p.Name, Phone: p.Phone, UserID: p.UserID, CreatedAt: t.db.now}
	t.st.clients[p.Email] = c
	return c, nil
}

func (t *fakeTx) LinkClientUser(_ context.Context, clientID, userID uuid.UUID) error {
	for email, c := range t.st.clients {
		if c.ID == clientID && c.UserID == nil {
			c.UserID = &userID
			t.st.clients[email] = c
		}
	}
	return nil
}

func (t *fakeTx) BackfillUser(_ context.Context, email string, userID uuid.UUID) error {
	if c, ok := t.st.clients[email]; ok && c.UserID == nil {
		c.UserID = &userID
		t.st.clients[email] = c
	}
	for id, inq := range t.st.inquiries {
		if inq.Email == email && inq.UserID == nil {
			inq.UserID = &userID
			t.st.inquiries[id] = inq
		}
	}
	return nil
}

func (t *fakeTx) AssignBroker(_ context.Context, inquiryID uuid.UUID, brokerID *uuid.UUID) error {
	if t.db.failAssign != nil {
		return t.db.failAssign
	}
	inq, ok := t.st.inquiries[inquiryID]
	if !ok {
		return repository.ErrNotFound
	}
	inq.AssignedBrokerID = brokerID
	t.st.inquiries[inquiryID] = inq
	return nil
}

func (t *fakeTx) GetInquiryForUpdate(_ context.Context, id uuid.UUID) (repository.Inquiry, error) {
	inq, ok := t.st.inquiries[id]
	if !ok {
		return repository.Inquiry{}, repository.ErrNotFound
	}
	return inq, nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, id uuid.UUID, u repository.StatusUpdate) (repository.Inquiry, error) {
	return repository.Inquiry{}, errors.New("not used by intake")
}

func (t *fakeTx) Savepoint(ctx context.Context, fn func(repository.TxStore) error) error {
	nested := t.st.clone()
	if err := fn(&fakeTx{db: t.db, st: &nested}); err != nil {
		return err
	}
	*t.st = nested
	return nil
}

type stubLimiter struct{ err error }

func (s stubLimiter) Check(context.Context, string, string) error { return s.err }

type stubGate struct {
	property repository.Property
	err      error
	seen     *admission.Submission
}

func (s *stubGate) Check(_ context.Context, sub admission.Submission) (repository.Property, error) {
	s.seen = &sub
	return s.property, s.err
}

type stubDetector struct {
	result domain.DuplicateCheckResult
	err    error
}

func (s stubDetector) Detect(context.Context, admission.Candidate) (domain.DuplicateCheckResult, error) {
	if s.result.Action == "" {
		return domain.DuplicateCheckResult{Action: domain.ActionAllow}, s.err
	}
	return s.result, s.err
}

type stubPicker struct {
	decision assignment.Decision
	err      error
}

func (s stubPicker) Assign(context.Context, repository.Property) (assignment.Decision, error) {
	return s.decision, s.err
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
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

// connPool models a bounded connection pool. Callers block until a slot is
// free or ctx ends.
type connPool struct{ slots chan struct{} }

func newConnPool(size int) *connPool {
	return &connPool{slots: make(chan struct{}, size)}
}

func (p *connPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *connPool) release() { <-p.slots }

// pooledStore holds one pool slot for the whole transaction.
type pooledStore struct {
	pool *connPool
	db   *txDB
}

func (s pooledStore) WithinTx(ctx context.Context, fn func(repository.TxStore) error) error {
	if err := s.pool.acquire(ctx); err != nil {
		return err
	}
	defer s.pool.release()
	return s.db.WithinTx(ctx, fn)
}

// pooledPicker needs its own slot to read broker metrics.
type pooledPicker struct {
	pool     *connPool
	decision assignment.Decision
}

func (p pooledPicker) Assign(ctx context.Context, _ repository.Property) (assignment.Decision, error) {
	if err := p.pool.acquire(ctx); err != nil {
		return assignment.Decision{}, err
	}
	defer p.pool.release()
	time.Sleep(10 * time.Millisecond)
	return p.decision, nil
}

type fixedGate struct{ property repository.Property }

func (g fixedGate) Check(context.Context, admission.Submission) (repository.Property, error) {
	return g.property, nil
}
