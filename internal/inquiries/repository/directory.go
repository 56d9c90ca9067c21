package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roleBroker = "broker"

func (r *Repository) GetProperty(ctx context.Context, id uuid.UUID) (Property, error) {
	var p Property
	err := r.db.QueryRow(ctx, `
		SELECT id, title, status, location, listing_broker_id
		FROM properties WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Status, &p.Location, &p.ListingBrokerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return p, err
}

const brokerColumns = `id, name, email, role, is_approved, is_active, last_activity_at, preferred_locations`

func scanBroker(row pgx.Row) (BrokerProfile, error) {
	var b BrokerProfile
	err := row.Scan(&b.ID, &b.Name, &b.Email, &b.Role, &b.IsApproved, &b.IsActive, &b.LastActivityAt, &b.PreferredLocations)
	return b, err
}

// ListEligibleBrokers returns approved, active brokers ordered by id.
func (r *Repository) ListEligibleBrokers(ctx context.Context) ([]BrokerProfile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+brokerColumns+`
		FROM users
		WHERE role = $1 AND is_approved = true AND is_active = true
		ORDER BY id ASC`, roleBroker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brokers := make([]BrokerProfile, 0)
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return brokers, nil
}

// GetBroker returns any user with the broker role, regardless of state.
func (r *Repository) GetBroker(ctx context.Context, id uuid.UUID) (BrokerProfile, error) {
	b, err := scanBroker(r.db.QueryRow(ctx, `
		SELECT `+brokerColumns+` FROM users WHERE id = $1 AND role = $2`, id, roleBroker))
	if errors.Is(err, pgx.ErrNoRows) {
		return BrokerProfile{}, ErrNotFound
	}
	return b, err
}

// BrokerMetrics derives workload and performance aggregates for one broker.
// Response time runs from creation to first contact (or response) over
// inquiries created since the cutoff.
func (r *Repository) BrokerMetrics(ctx context.Context, brokerID uuid.UUID, since time.Time) (BrokerMetrics, error) {
	var m BrokerMetrics
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = ANY($3)),
			COUNT(DISTINCT COALESCE(client_id::text, email)) FILTER (WHERE status = ANY($3)),
			(AVG(EXTRACT(EPOCH FROM (COALESCE(contacted_at, responded_at) - created_at)) / 3600.0)
				FILTER (WHERE created_at >= $2 AND COALESCE(contacted_at, responded_at) IS NOT NULL))::float8,
			COUNT(*) FILTER (WHERE created_at >= $2 AND status = 'completed'),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM inquiries
		WHERE assigned_broker_id = $1`,
		brokerID, since, openStatusValues(),
	).Scan(&m.OpenInquiries, &m.OpenClients, &m.AvgResponseHours, &m.Completed30d, &m.Total30d)
	return m, err
}
