package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brokerage_intake/internal/inquiries/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inquiryColumns = `id, property_id, client_id, user_id, name, email, phone, message, status,
	assigned_broker_id, ip_address, is_flagged, flag_reason, created_at, updated_at,
	contacted_at, scheduled_at, responded_at`

func scanInquiry(row pgx.Row) (Inquiry, error) {
	var (
		inq        Inquiry
		status     string
		flagReason []byte
	)
	err := row.Scan(
		&inq.ID, &inq.PropertyID, &inq.ClientID, &inq.UserID, &inq.Name, &inq.Email, &inq.Phone, &inq.Message, &status,
		&inq.AssignedBrokerID, &inq.IPAddress, &inq.IsFlagged, &flagReason, &inq.CreatedAt, &inq.UpdatedAt,
		&inq.ContactedAt, &inq.ScheduledAt, &inq.RespondedAt,
	)
	if err != nil {
		return Inquiry{}, err
	}
	inq.Status = domain.Status(status)
	if len(flagReason) > 0 {
		var reason domain.DuplicateCheckResult
		if err := json.Unmarshal(flagReason, &reason); err != nil {
			return Inquiry{}, fmt.Errorf("decode flag_reason: %w", err)
		}
		inq.FlagReason = &reason
	}
	return inq, nil
}

func (r *Repository) CreateInquiry(ctx context.Context, params CreateInquiryParams) (Inquiry, error) {
	var flagReason []byte
	if params.FlagReason != nil {
		encoded, err := json.Marshal(params.FlagReason)
		if err != nil {
			return Inquiry{}, fmt.Errorf("encode flag_reason: %w", err)
		}
		flagReason = encoded
	}

	return scanInquiry(r.db.QueryRow(ctx, `
		INSERT INTO inquiries (property_id, user_id, name, email, phone, message, status, ip_address, is_flagged, flag_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+inquiryColumns,
		params.PropertyID, params.UserID, params.Name, params.Email, params.Phone, params.Message,
		string(domain.StatusNew), params.IPAddress, params.IsFlagged, flagReason,
	))
}

func (r *Repository) GetInquiry(ctx context.Context, id uuid.UUID) (Inquiry, error) {
	inq, err := scanInquiry(r.db.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, ErrNotFound
	}
	return inq, err
}

// GetInquiryForUpdate locks the row until the surrounding transaction ends.
func (r *Repository) GetInquiryForUpdate(ctx context.Context, id uuid.UUID) (Inquiry, error) {
	inq, err := scanInquiry(r.db.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, ErrNotFound
	}
	return inq, err
}

func (r *Repository) AttachClient(ctx context.Context, inquiryID, clientID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inquiries SET client_id = $2, updated_at = now()
		WHERE id = $1`, inquiryID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignBroker sets or clears the handling broker of an inquiry. It never
// touches the property's listing broker.
func (r *Repository) AssignBroker(ctx context.Context, inquiryID uuid.UUID, brokerID *uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inquiries SET assigned_broker_id = $2, updated_at = now()
		WHERE id = $1`, inquiryID, brokerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (Inquiry, error) {
	inq, err := scanInquiry(r.db.QueryRow(ctx, `
		UPDATE inquiries
		SET status = $2, contacted_at = $3, scheduled_at = $4, responded_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+inquiryColumns,
		id, string(update.Status), update.Stamps.ContactedAt, update.Stamps.ScheduledAt, update.Stamps.RespondedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, ErrNotFound
	}
	return inq, err
}

// ListOpenByBroker returns the broker's inquiries that still need handling,
// oldest first.
func (r *Repository) ListOpenByBroker(ctx context.Context, brokerID uuid.UUID) ([]Inquiry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inquiryColumns+`
		FROM inquiries
		WHERE assigned_broker_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC, id ASC`,
		brokerID, openStatusValues(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Inquiry, 0)
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inq)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// CountByIPSince counts submissions from ip created at or after since.
func (r *Repository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM inquiries WHERE ip_address = $1 AND created_at >= $2`,
		ip, since,
	).Scan(&n)
	return n, err
}

// CountByEmailSince counts submissions from email created at or after since.
func (r *Repository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM inquiries WHERE email = $1 AND created_at >= $2`,
		email, since,
	).Scan(&n)
	return n, err
}

// CountByContactSince counts submissions matching email or (non-empty) phone.
func (r *Repository) CountByContactSince(ctx context.Context, email, phone string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM inquiries
		WHERE created_at >= $3 AND (email = $1 OR ($2 <> '' AND phone = $2))`,
		email, phone, since,
	).Scan(&n)
	return n, err
}

// FindExactMatch returns the newest inquiry since the cutoff sharing the
// email, the phone, or the property together with the identical message.
func (r *Repository) FindExactMatch(ctx context.Context, email, phone string, propertyID uuid.UUID, message string, since time.Time) (*ContactMatch, error) {
	var m ContactMatch
	err := r.db.QueryRow(ctx, `
		SELECT id,
			CASE
				WHEN email = $1 THEN 'email'
				WHEN $2 <> '' AND phone = $2 THEN 'phone'
				ELSE 'property_message'
			END,
			created_at
		FROM inquiries
		WHERE created_at >= $5
			AND (email = $1 OR ($2 <> '' AND phone = $2) OR (property_id = $3 AND message = $4))
		ORDER BY created_at DESC
		LIMIT 1`,
		email, phone, propertyID, message, since,
	).Scan(&m.InquiryID, &m.MatchedOn, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecentMessagesByContact lists messages on the property since the cutoff
// from the same email or phone.
func (r *Repository) RecentMessagesByContact(ctx context.Context, propertyID uuid.UUID, email, phone string, since time.Time) ([]MessageSample, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, message, created_at
		FROM inquiries
		WHERE property_id = $1 AND created_at >= $4
			AND (email = $2 OR ($3 <> '' AND phone = $3))
		ORDER BY created_at DESC
		LIMIT 50`,
		propertyID, email, phone, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]MessageSample, 0)
	for rows.Next() {
		var s MessageSample
		if err := rows.Scan(&s.InquiryID, &s.Message, &s.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// PropertyActivitySince counts submissions and distinct (email, phone)
// contacts on a property since the cutoff.
func (r *Repository) PropertyActivitySince(ctx context.Context, propertyID uuid.UUID, since time.Time) (PropertyActivity, error) {
	var a PropertyActivity
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT (email, phone))
		FROM inquiries
		WHERE property_id = $1 AND created_at >= $2`,
		propertyID, since,
	).Scan(&a.Total, &a.DistinctContacts)
	return a, err
}

func openStatusValues() []string {
	open := domain.OpenStatuses()
	values := make([]string, len(open))
	for i, s := range open {
		values[i] = string(s)
	}
	return values
}
