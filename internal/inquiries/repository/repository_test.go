package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"brokerage_intake/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

// openTestRepo connects to TEST_DATABASE_URL and applies the migrations.
// Every test seeds its own property and contacts, so runs can share a database.
func openTestRepo(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, databaseURL(url))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.RunMigrations(ctx, pool))

	return New(pool), pool
}

func uniqueEmail(tag string) string {
	return fmt.Sprintf("%s-%s@example.test", tag, uuid.NewString()[:8])
}

func uniquePhone() string {
	return fmt.Sprintf("+1555%07d", uuid.New().ID()%10000000)
}

func seedProperty(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO properties (title, status) VALUES ('Canal house', 'active') RETURNING id`,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (name, email) VALUES ('Test User', $1) RETURNING id`, uniqueEmail("user"),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

type seed struct {
	property uuid.UUID
	email    string
	phone    string
	message  string
	userID   *uuid.UUID
	at       time.Time
}

func seedInquiry(t *testing.T, pool *pgxpool.Pool, s seed) uuid.UUID {
	t.Helper()
	if s.message == "" {
		s.message = "Is this one still available?"
	}
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO inquiries (property_id, user_id, name, email, phone, message, created_at)
		VALUES ($1, $2, 'Jane Doe', $3, $4, $5, $6)
		RETURNING id`,
		s.property, s.userID, s.email, s.phone, s.message, s.at,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestCountByContactSinceMatchesEmailOrPhone(t *testing.T) {
	repo, pool := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	since := now.Add(-time.Hour)
	prop := seedProperty(t, pool)

	email, phone := uniqueEmail("jane"), uniquePhone()
	other := uniqueEmail("other")
	noPhone := uniqueEmail("nophone")

	seedInquiry(t, pool, seed{property: prop, email: email, phone: phone, at: now.Add(-10 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: other, phone: phone, at: now.Add(-20 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: email, phone: uniquePhone(), at: now.Add(-2 * time.Hour)})
	seedInquiry(t, pool, seed{property: prop, email: noPhone, phone: "", at: now.Add(-5 * time.Minute)})

	n, err := repo.CountByContactSince(ctx, email, phone, since)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "email match plus phone match inside the window")

	n, err = repo.CountByContactSince(ctx, noPhone, "", since)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "an empty phone must not match other rows without a phone")

	n, err = repo.CountByContactSince(ctx, uniqueEmail("nobody"), "", since)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindExactMatchReportsNewestMatchAndField(t *testing.T) {
	repo, pool := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	since := now.Add(-time.Hour)
	prop := seedProperty(t, pool)
	elsewhere := seedProperty(t, pool)

	emailA, phoneA := uniqueEmail("a"), uniquePhone()
	emailB, phoneB := uniqueEmail("b"), uniquePhone()
	stale := uniqueEmail("stale")

	first := seedInquiry(t, pool, seed{property: prop, email: emailA, phone: phoneA, at: now.Add(-30 * time.Minute)})
	second := seedInquiry(t, pool, seed{
		property: prop, email: emailB, phone: phoneB,
		message: "Can I view it on Saturday morning?", at: now.Add(-10 * time.Minute),
	})
	seedInquiry(t, pool, seed{property: elsewhere, email: uniqueEmail("blank"), phone: "", at: now.Add(-5 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: stale, at: now.Add(-3 * time.Hour)})

	m, err := repo.FindExactMatch(ctx, emailA, "", elsewhere, "unrelated", since)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, first, m.InquiryID)
	assert.Equal(t, "email", m.MatchedOn)

	m, err = repo.FindExactMatch(ctx, uniqueEmail("z"), phoneA, elsewhere, "unrelated", since)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, first, m.InquiryID)
	assert.Equal(t, "phone", m.MatchedOn)

	m, err = repo.FindExactMatch(ctx, emailA, phoneB, elsewhere, "unrelated", since)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, second, m.InquiryID, "newest match wins")
	assert.Equal(t, "phone", m.MatchedOn)

	m, err = repo.FindExactMatch(ctx, uniqueEmail("z"), "", prop, "Can I view it on Saturday morning?", since)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, second, m.InquiryID)
	assert.Equal(t, "property_message", m.MatchedOn)

	m, err = repo.FindExactMatch(ctx, uniqueEmail("z"), "", elsewhere, "unrelated", since)
	require.NoError(t, err)
	assert.Nil(t, m, "an empty phone must not match rows without a phone")

	m, err = repo.FindExactMatch(ctx, stale, "", elsewhere, "unrelated", since)
	require.NoError(t, err)
	assert.Nil(t, m, "rows before the cutoff are ignored")
}

func TestPropertyActivitySinceCountsDistinctContacts(t *testing.T) {
	repo, pool := openTestRepo(t)
	now := time.Now().UTC()
	prop := seedProperty(t, pool)

	emailA, emailB, phone := uniqueEmail("a"), uniqueEmail("b"), uniquePhone()
	seedInquiry(t, pool, seed{property: prop, email: emailA, phone: phone, at: now.Add(-5 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: emailA, phone: phone, at: now.Add(-6 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: emailA, phone: "", at: now.Add(-7 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: emailB, phone: phone, at: now.Add(-8 * time.Minute)})
	seedInquiry(t, pool, seed{property: prop, email: uniqueEmail("old"), phone: uniquePhone(), at: now.Add(-2 * time.Hour)})

	a, err := repo.PropertyActivitySince(context.Background(), prop, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 3, a.DistinctContacts)
}

func TestBackfillUserLinksOnlyUnlinkedRows(t *testing.T) {
	repo, pool := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	prop := seedProperty(t, pool)
	user, owner := seedUser(t, pool), seedUser(t, pool)

	email, otherEmail := uniqueEmail("jane"), uniqueEmail("other")
	client, err := repo.CreateClient(ctx, CreateClientParams{Email: email, Name: "Jane Doe"})
	require.NoError(t, err)

	open1 := seedInquiry(t, pool, seed{property: prop, email: email, at: now.Add(-3 * time.Hour)})
	open2 := seedInquiry(t, pool, seed{property: prop, email: email, at: now.Add(-2 * time.Hour)})
	owned := seedInquiry(t, pool, seed{property: prop, email: email, userID: &owner, at: now.Add(-time.Hour)})
	unrelated := seedInquiry(t, pool, seed{property: prop, email: otherEmail, at: now.Add(-time.Hour)})

	require.NoError(t, repo.BackfillUser(ctx, email, user))

	linkedClient, err := repo.FindClientByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, linkedClient.UserID)
	assert.Equal(t, client.ID, linkedClient.ID)
	assert.Equal(t, user, *linkedClient.UserID)

	userOf := func(id uuid.UUID) *uuid.UUID {
		inq, err := repo.GetInquiry(ctx, id)
		require.NoError(t, err)
		return inq.UserID
	}
	for _, id := range []uuid.UUID{open1, open2} {
		got := userOf(id)
		require.NotNil(t, got)
		assert.Equal(t, user, *got)
	}
	require.NotNil(t, userOf(owned))
	assert.Equal(t, owner, *userOf(owned), "an existing link is kept")
	assert.Nil(t, userOf(unrelated))
}
