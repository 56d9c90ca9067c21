package admission

import (
	"context"
	"strings"
	"time"

	"brokerage_intake/internal/inquiries/repository"

	"github.com/google/uuid"
)

type row struct {
	id         uuid.UUID
	propertyID uuid.UUID
	email      string
	phone      string
	message    string
	ip         string
	createdAt  time.Time
}

// memStore answers admission lookups from an in-memory slice of inquiries.
type memStore struct {
	rows       []row
	properties map[uuid.UUID]repository.Property
	err        error
}

func (m *memStore) add(r row) {
	if r.id == uuid.Nil {
		r.id = uuid.New()
	}
	m.rows = append(m.rows, r)
}

func (m *memStore) CountByIPSince(_ context.Context, ip string, since time.Time) (int, error) {
	n := 0
	for _, r := range m.rows {
		if r.ip == ip && !r.createdAt.Before(since) {
			n++
		}
	}
	return n, m.err
}

func (m *memStore) CountByEmailSince(_ context.Context, email string, since time.Time) (int, error) {
	n := 0
	for _, r := range m.rows {
		if r.email == email && !r.createdAt.Before(since) {
			n++
		}
	}
	return n, m.err
}

func (m *memStore) contactMatches(r row, email, phone string) bool {
	return r.email == email || (phone != "" && r.phone == phone)
}

func (m *memStore) CountByContactSince(_ context.Context, email, phone string, since time.Time) (int, error) {
	n := 0
	for _, r := range m.rows {
		if m.contactMatches(r, email, phone) && !r.createdAt.Before(since) {
			n++
		}
	}
	return n, m.err
}

func (m *memStore) FindExactMatch(_ context.Context, email, phone string, propertyID uuid.UUID, message string, since time.Time) (*repository.ContactMatch, error) {
	if m.err != nil {
		return nil, m.err
	}
	var best *repository.ContactMatch
	for _, r := range m.rows {
		if r.createdAt.Before(since) {
			continue
		}
		on := ""
		switch {
		case r.email == email:
			on = "email"
		case phone != "" && r.phone == phone:
			on = "phone"
		case r.propertyID == propertyID && r.message == message:
			on = "property_message"
		default:
			continue
		}
		if best == nil || r.createdAt.After(best.CreatedAt) {
			best = &repository.ContactMatch{InquiryID: r.id, MatchedOn: on, CreatedAt: r.createdAt}
		}
	}
	return best, nil
}

func (m *memStore) RecentMessagesByContact(_ context.Context, propertyID uuid.UUID, email, phone string, since time.Time) ([]repository.MessageSample, error) {
	var out []repository.MessageSample
	for _, r := range m.rows {
		if r.propertyID == propertyID && m.contactMatches(r, email, phone) && !r.createdAt.Before(since) {
			out = append(out, repository.MessageSample{InquiryID: r.id, Message: r.message, CreatedAt: r.createdAt})
		}
	}
	return out, m.err
}

func (m *memStore) PropertyActivitySince(_ context.Context, propertyID uuid.UUID, since time.Time) (repository.PropertyActivity, error) {
	var a repository.PropertyActivity
	contacts := map[string]struct{}{}
	for _, r := range m.rows {
		if r.propertyID == propertyID && !r.createdAt.Before(since) {
			a.Total++
			contacts[strings.Join([]string{r.email, r.phone}, "|")] = struct{}{}
		}
	}
	a.DistinctContacts = len(contacts)
	return a, m.err
}

func (m *memStore) GetProperty(_ context.Context, id uuid.UUID) (repository.Property, error) {
	if m.err != nil {
		return repository.Property{}, m.err
	}
	p, ok := m.properties[id]
	if !ok {
		return repository.Property{}, repository.ErrNotFound
	}
	return p, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
