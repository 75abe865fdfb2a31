//go:build integration

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/migrations"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/reconcile"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("subshare"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(storage))
	return storage
}

func createTestGroup(t *testing.T, s *Storage, emails ...string) *models.Group {
	t.Helper()
	due, err := models.ParseDate("2025-01-31")
	require.NoError(t, err)
	g, err := models.NewGroup(models.Caller{UserID: "owner-1", Email: "owner@x.com"}, "Netflix",
		decimal.RequireFromString("15.99"), due, emails, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.CreateGroup(context.Background(), g))
	return g
}

func TestIntegration_GroupLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	g := createTestGroup(t, s, "a@x.com", "b@x.com")

	got, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got.Emails())
	assert.True(t, got.Cost.Equal(decimal.RequireFromString("15.99")))

	_, added, err := s.AddInvitees(ctx, g.ID, "owner-1", []string{"b@x.com", "c@x.com"})
	require.NoError(t, err)
	assert.Len(t, added, 1)

	_, _, err = s.AddInvitees(ctx, g.ID, "intruder", []string{"d@x.com"})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, changed, err := s.AcceptInvite(ctx, g.ID, "b@x.com")
	require.NoError(t, err)
	assert.True(t, changed)

	p := &models.Payment{
		ID: uuid.NewString(), GroupID: g.ID, PayerID: "user-a", PayerEmail: "a@x.com",
		Amount: decimal.NewFromInt(5), Method: models.MethodManual, PaymentDate: time.Now().UTC(),
	}
	updated, newlyPaid, err := s.LogPayment(ctx, p, reconcile.Project)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, newlyPaid)
	assert.Equal(t, models.InviteePaid, updated.Invitees[0].Status)
	assert.Equal(t, models.InviteeAccepted, updated.Invitees[1].Status)

	paid, changed, err := s.MarkPaid(ctx, g.ID, "owner-1", "", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, paid.Paid)

	_, changed, err = s.MarkPaid(ctx, g.ID, "owner-1", "", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	payments, err := s.PaymentsForUser(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, p.ID, payments[0].ID)

	groups, err := s.ListGroupsForUser(ctx, "user-c", "c@x.com")
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestIntegration_ConcurrentPayments(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	const n = 10
	emails := make([]string, n)
	for i := range emails {
		emails[i] = fmt.Sprintf("user%d@x.com", i)
	}
	g := createTestGroup(t, s, emails...)

	var wg sync.WaitGroup
	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			p := &models.Payment{
				ID: uuid.NewString(), GroupID: g.ID, PayerID: email, PayerEmail: email,
				Amount: decimal.NewFromInt(1), Method: models.MethodManual, PaymentDate: time.Now().UTC(),
			}
			_, _, err := s.LogPayment(ctx, p, reconcile.Project)
			assert.NoError(t, err)
		}(email)
	}
	wg.Wait()

	got, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	for _, inv := range got.Invitees {
		assert.Equal(t, models.InviteePaid, inv.Status)
	}
	assert.Equal(t, int64(1+n), got.Version)
}

func TestIntegration_Users(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u := &models.User{ID: uuid.NewString(), Email: "a@x.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, u))

	err := s.CreateUser(ctx, &models.User{ID: uuid.NewString(), Email: "a@x.com", PasswordHash: "hash", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}
