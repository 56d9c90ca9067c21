package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStore is the write surface available inside a transaction.
type TxStore interface {
	CreateInquiry(ctx context.Context, params CreateInquiryParams) (Inquiry, error)
	AttachClient(ctx context.Context, inquiryID, clientID uuid.UUID) error
	FindClientByEmail(ctx context.Context, email string) (Client, error)
	CreateClient(ctx context.Context, params CreateClientParams) (Client, error)
	LinkClientUser(ctx context.Context, clientID, userID uuid.UUID) error
	BackfillUser(ctx context.Context, email string, userID uuid.UUID) error
	AssignBroker(ctx context.Context, inquiryID uuid.UUID, brokerID *uuid.UUID) error
	GetInquiryForUpdate(ctx context.Context, id uuid.UUID) (Inquiry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (Inquiry, error)
	// Savepoint runs fn in a nested transaction; a failure rolls back only
	// fn's writes.
	Savepoint(ctx context.Context, fn func(TxStore) error) error
}

type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
	tx   pgx.Tx
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithinTx runs fn in a single transaction, committing only if fn succeeds.
func (r *Repository) WithinTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{pool: r.pool, db: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Savepoint(ctx context.Context, fn func(TxStore) error) error {
	if r.tx == nil {
		return fn(r)
	}
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sp.Rollback(ctx) }()

	if err := fn(&Repository{pool: r.pool, db: sp, tx: sp}); err != nil {
		return err
	}
	return sp.Commit(ctx)
}

var _ TxStore = (*Repository)(nil)
