package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/reconcile"
	"github.com/magabrotheeeer/subshare/internal/storage/memory"
)

type CacheMock struct{ mock.Mock }

func (m *CacheMock) GetDetails(ctx context.Context, groupID string) (*models.GroupDetails, bool, error) {
	args := m.Called(ctx, groupID)
	d, _ := args.Get(0).(*models.GroupDetails)
	return d, args.Bool(1), args.Error(2)
}

func (m *CacheMock) PutDetails(ctx context.Context, d *models.GroupDetails) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Bump(ctx context.Context, groupID string, version int64) error {
	return m.Called(ctx, groupID, version).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, groupID string) error {
	return m.Called(ctx, groupID).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	owner   = models.Caller{UserID: "owner-1", Email: "owner@x.com"}
	fixedAt = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
)

func newService(repo GroupRepository, cache Cache, pub Publisher) *SubscriptionService {
	return NewSubscriptionService(repo, cache, pub, newNoopLogger()).WithClock(func() time.Time { return fixedAt })
}

func createReq(invitees ...string) models.CreateGroupRequest {
	return models.CreateGroupRequest{
		ServiceName: "Netflix",
		Cost:        decimal.RequireFromString("15.99"),
		DueDate:     "2025-01-31",
		Invitees:    invitees,
	}
}

func TestSubscriptionService_Create(t *testing.T) {
	tests := []struct {
		name         string
		req          models.CreateGroupRequest
		wantErr      error
		wantInvitees []string
		wantEvent    bool
	}{
		{
			name:         "дубликаты схлопываются",
			req:          createReq("a@x.com", "b@x.com", "a@x.com"),
			wantInvitees: []string{"a@x.com", "b@x.com"},
			wantEvent:    true,
		},
		{
			name:         "без приглашенных событие не публикуется",
			req:          createReq(),
			wantInvitees: []string{},
		},
		{
			name: "нулевая стоимость",
			req: models.CreateGroupRequest{
				ServiceName: "Netflix", Cost: decimal.Zero, DueDate: "2025-01-31",
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "неверный формат даты",
			req: models.CreateGroupRequest{
				ServiceName: "Netflix", Cost: decimal.NewFromInt(1), DueDate: "31-01-2025",
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "пустое название",
			req: models.CreateGroupRequest{
				ServiceName: "", Cost: decimal.NewFromInt(1), DueDate: "2025-01-31",
			},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(PublisherMock)
			if tt.wantEvent {
				pub.On("Publish", mock.Anything, models.RoutingGroupCreated,
					mock.MatchedBy(func(e models.InvitationEvent) bool {
						return assert.ObjectsAreEqual(tt.wantInvitees, e.Emails) && e.Cost == "15.99"
					})).Return(nil).Once()
			}
			svc := newService(memory.New(), nil, pub)

			g, err := svc.Create(context.Background(), owner, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantInvitees, g.Emails())
			assert.Equal(t, owner.UserID, g.OwnerID)
			assert.Equal(t, fixedAt, g.CreatedAt)
			assert.False(t, g.Paid)
			pub.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_Invite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := new(CacheMock)
	pub := new(PublisherMock)
	svc := newService(store, cache, pub)

	pub.On("Publish", mock.Anything, models.RoutingGroupCreated, mock.Anything).Return(nil).Once()
	g, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)

	cache.On("Bump", mock.Anything, g.ID, g.Version+1).Return(nil).Once()
	pub.On("Publish", mock.Anything, models.RoutingMembersInvited,
		mock.MatchedBy(func(e models.InvitationEvent) bool {
			return assert.ObjectsAreEqual([]string{"b@x.com"}, e.Emails)
		})).Return(nil).Once()

	updated, err := svc.Invite(ctx, owner, g.ID, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, updated.Emails())

	again, err := svc.Invite(ctx, owner, g.ID, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, updated.Emails(), again.Emails())
	assert.Equal(t, updated.Version, again.Version)

	_, err = svc.Invite(ctx, models.Caller{UserID: "other", Email: "a@x.com"}, g.ID, []string{"c@x.com"})
	require.ErrorIs(t, err, apperr.ErrAuthorization)

	_, err = svc.Invite(ctx, owner, "missing", []string{"c@x.com"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	cache.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSubscriptionService_MarkAsPaid(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := new(PublisherMock)
	svc := newService(store, nil, pub)

	pub.On("Publish", mock.Anything, models.RoutingGroupCreated, mock.Anything).Return(nil).Once()
	g, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)

	_, err = svc.MarkAsPaid(ctx, models.Caller{UserID: "intruder", Email: "a@x.com"}, g.ID, "")
	require.ErrorIs(t, err, apperr.ErrAuthorization)

	pub.On("Publish", mock.Anything, models.RoutingGroupPaid,
		mock.MatchedBy(func(e models.GroupPaidEvent) bool {
			return e.PaidAt.Equal(fixedAt) && assert.ObjectsAreEqual([]string{"owner@x.com", "a@x.com"}, e.Recipients)
		})).Return(nil).Once()

	paid, err := svc.MarkAsPaid(ctx, owner, g.ID, "card")
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, models.InviteeInvited, paid.Invitees[0].Status)

	again, err := svc.MarkAsPaid(ctx, owner, g.ID, "")
	require.NoError(t, err)
	assert.True(t, again.Paid)
	assert.Equal(t, "card", again.PaidBy)

	payments, err := store.PaymentsForGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	pub.AssertExpectations(t)
}

func TestSubscriptionService_Accept(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New(), nil, nil)

	g, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, models.Caller{UserID: "user-a", Email: "a@x.com"}, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteeAccepted, accepted.Invitees[0].Status)

	_, err = svc.Accept(ctx, models.Caller{UserID: "user-z", Email: "z@x.com"}, g.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubscriptionService_Details(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, nil, nil)

	g, err := svc.Create(ctx, owner, createReq("a@x.com", "b@x.com"))
	require.NoError(t, err)

	_, _, err = store.LogPayment(ctx, &models.Payment{
		ID: uuid.NewString(), GroupID: g.ID, PayerEmail: "a@x.com",
		Amount: decimal.NewFromInt(8), Method: models.MethodManual, PaymentDate: fixedAt,
	}, reconcile.Project)
	require.NoError(t, err)

	d, err := svc.Details(ctx, models.Caller{UserID: "anyone", Email: "z@x.com"}, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteePaid, d.Group.Invitees[0].Status)
	assert.Equal(t, models.InviteeInvited, d.Group.Invitees[1].Status)
	assert.True(t, d.Summary.Collected.Equal(decimal.NewFromInt(8)))
	assert.True(t, d.Summary.Remaining.Equal(decimal.RequireFromString("7.99")))
	assert.Equal(t, []string{"b@x.com"}, d.Summary.Outstanding)
	assert.False(t, d.Group.Paid)

	_, err = svc.Details(ctx, owner, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubscriptionService_Details_ReappliesReconciliation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, nil, nil)

	g, err := svc.Create(ctx, owner, createReq())
	require.NoError(t, err)

	_, _, err = store.LogPayment(ctx, &models.Payment{
		ID: uuid.NewString(), GroupID: g.ID, PayerEmail: "late@x.com",
		Amount: decimal.NewFromInt(3), Method: models.MethodVenmo, PaymentDate: fixedAt,
	}, reconcile.Project)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, owner, g.ID, []string{"late@x.com"})
	require.NoError(t, err)

	d, err := svc.Details(ctx, owner, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteePaid, d.Group.Invitees[0].Status)
}

func TestSubscriptionService_Details_Cache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := new(CacheMock)
	svc := newService(store, cache, nil)

	g, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)

	t.Run("промах кэша заполняет его", func(t *testing.T) {
		cache.On("GetDetails", mock.Anything, g.ID).Return(nil, false, nil).Once()
		cache.On("PutDetails", mock.Anything, mock.MatchedBy(func(d *models.GroupDetails) bool {
			return d.Group.ID == g.ID && d.Group.Version == g.Version
		})).Return(true, nil).Once()

		d, err := svc.Details(ctx, owner, g.ID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, d.Group.ID)
	})

	t.Run("попадание в кэш не читает хранилище", func(t *testing.T) {
		cached := &models.GroupDetails{Group: &models.Group{ID: g.ID, ServiceName: "cached"}}
		cache.On("GetDetails", mock.Anything, g.ID).Return(cached, true, nil).Once()

		d, err := svc.Details(ctx, owner, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "cached", d.Group.ServiceName)
	})

	t.Run("ошибка кэша не ломает чтение", func(t *testing.T) {
		cache.On("GetDetails", mock.Anything, g.ID).Return(nil, false, errors.New("redis down")).Once()
		cache.On("PutDetails", mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

		d, err := svc.Details(ctx, owner, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "Netflix", d.Group.ServiceName)
	})

	cache.AssertExpectations(t)
}

func TestSubscriptionService_BumpFailureInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := new(CacheMock)
	svc := newService(store, cache, nil)

	g, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		invalidateErr error
	}{
		{name: "запись удалена"},
		{name: "удаление тоже не удалось", invalidateErr: errors.New("redis down")},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version := g.Version + int64(i) + 1
			cache.On("Bump", mock.Anything, g.ID, version).Return(errors.New("redis timeout")).Once()
			cache.On("Invalidate", mock.Anything, g.ID).Return(tt.invalidateErr).Once()

			email := []string{"b@x.com", "c@x.com"}[i]
			updated, err := svc.Invite(ctx, owner, g.ID, []string{email})
			require.NoError(t, err)
			assert.Equal(t, version, updated.Version)
		})
	}

	cache.AssertExpectations(t)
}

func TestSubscriptionService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New(), nil, nil)

	g1, err := svc.Create(ctx, owner, createReq("a@x.com"))
	require.NoError(t, err)
	other := models.Caller{UserID: "owner-2", Email: "two@x.com"}
	g2, err := svc.Create(ctx, other, createReq("a@x.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, createReq("b@x.com"))
	require.NoError(t, err)

	groups, err := svc.List(ctx, models.Caller{UserID: "user-a", Email: "a@x.com"})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, g1.ID, groups[0].ID)
	assert.Equal(t, g2.ID, groups[1].ID)

	groups, err = svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestSubscriptionService_PublishErrorIgnored(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := newService(memory.New(), nil, pub)

	g, err := svc.Create(context.Background(), owner, createReq("a@x.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
}
