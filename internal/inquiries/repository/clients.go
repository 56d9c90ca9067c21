package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) FindClientByEmail(ctx context.Context, email string) (Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, phone, user_id, created_at
		FROM clients WHERE email = $1`, email,
	).Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.UserID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// CreateClient inserts a client, or returns the existing row when a
// concurrent submission created one for the same email first.
func (r *Repository) CreateClient(ctx context.Context, params CreateClientParams) (Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (email, name, phone, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id, email, name, phone, user_id, created_at`,
		params.Email, params.Name, params.Phone, params.UserID,
	).Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.UserID, &c.CreatedAt)
	return c, err
}

// LinkClientUser links a client to a platform account if it has none yet.
func (r *Repository) LinkClientUser(ctx context.Context, clientID, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clients SET user_id = $2, updated_at = now()
		WHERE id = $1 AND user_id IS NULL`, clientID, userID)
	return err
}

// BackfillUser links every earlier unlinked client and inquiry row for the
// email to userID.
func (r *Repository) BackfillUser(ctx context.Context, email string, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE clients SET user_id = $2, updated_at = now()
		WHERE email = $1 AND user_id IS NULL`, email, userID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE inquiries SET user_id = $2, updated_at = now()
		WHERE email = $1 AND user_id IS NULL`, email, userID)
	return err
}
