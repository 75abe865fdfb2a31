// Package services содержит бизнес-логику групп совместной оплаты:
// создание, приглашение участников, подтверждение приглашений, отметку оплаты
// и чтение группы со сводкой по реестру платежей.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/metrics"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/reconcile"
)

// GroupRepository определяет методы хранилища групп.
// Изменяющие методы выполняются атомарно в пределах одной группы.
type GroupRepository interface {
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID, email string) ([]*models.Group, error)
	AddInvitees(ctx context.Context, groupID, ownerID string, emails []string) (*models.Group, []models.Invitee, error)
	MarkPaid(ctx context.Context, groupID, ownerID, paidBy string, at time.Time) (*models.Group, bool, error)
	AcceptInvite(ctx context.Context, groupID, email string) (*models.Group, bool, error)
	PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error)
}

// Cache кэш деталей группы с версионированием.
// Invalidate используется, когда Bump не удался после записи.
type Cache interface {
	GetDetails(ctx context.Context, groupID string) (*models.GroupDetails, bool, error)
	PutDetails(ctx context.Context, d *models.GroupDetails) (bool, error)
	Bump(ctx context.Context, groupID string, version int64) error
	Invalidate(ctx context.Context, groupID string) error
}

// Publisher публикует доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SubscriptionService реализует операции над группами.
// cache и publisher необязательны: nil отключает кэширование и события.
type SubscriptionService struct {
	repo      GroupRepository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo GroupRepository, cache Cache, publisher Publisher, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// Create создает группу, владельцем которой становится вызывающий.
func (s *SubscriptionService) Create(ctx context.Context, caller models.Caller, req models.CreateGroupRequest) (*models.Group, error) {
	due, err := models.ParseDate(req.DueDate)
	if err != nil {
		return nil, apperr.Validation("due_date must be in YYYY-MM-DD format")
	}
	g, err := models.NewGroup(caller, req.ServiceName, req.Cost, due, req.Invitees, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	metrics.GroupsCreated.Inc()
	metrics.InviteesAdded.Add(float64(len(g.Invitees)))
	s.log.Info("created subscription group", sl.GroupID(g.ID), slog.Int("invitees", len(g.Invitees)))

	if len(g.Invitees) > 0 {
		s.publish(ctx, models.RoutingGroupCreated, invitationEvent(g, g.Emails()))
	}
	return g, nil
}

// Invite добавляет участников в группу. Уже приглашенные email пропускаются.
func (s *SubscriptionService) Invite(ctx context.Context, caller models.Caller, groupID string, emails []string) (*models.Group, error) {
	g, added, err := s.repo.AddInvitees(ctx, groupID, caller.UserID, emails)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return g, nil
	}

	metrics.InviteesAdded.Add(float64(len(added)))
	s.bump(ctx, g)
	s.log.Info("invited members", sl.GroupID(g.ID), slog.Int("added", len(added)))

	addedEmails := make([]string, 0, len(added))
	for _, inv := range added {
		addedEmails = append(addedEmails, inv.Email)
	}
	s.publish(ctx, models.RoutingMembersInvited, invitationEvent(g, addedEmails))
	return g, nil
}

// Accept подтверждает приглашение вызывающего в группу.
func (s *SubscriptionService) Accept(ctx context.Context, caller models.Caller, groupID string) (*models.Group, error) {
	g, changed, err := s.repo.AcceptInvite(ctx, groupID, caller.Email)
	if err != nil {
		return nil, err
	}
	if changed {
		s.bump(ctx, g)
		s.log.Info("invitation accepted", sl.GroupID(g.ID))
	}
	return g, nil
}

// MarkAsPaid отмечает группу оплаченной. Повторный вызов возвращает группу без изменений.
// Реестр платежей и статусы участников не затрагиваются.
func (s *SubscriptionService) MarkAsPaid(ctx context.Context, caller models.Caller, groupID, paidBy string) (*models.Group, error) {
	g, changed, err := s.repo.MarkPaid(ctx, groupID, caller.UserID, paidBy, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return g, nil
	}

	metrics.GroupsPaid.Inc()
	s.bump(ctx, g)
	s.log.Info("group marked as paid", sl.GroupID(g.ID))

	recipients := append([]string{g.OwnerEmail}, g.Emails()...)
	s.publish(ctx, models.RoutingGroupPaid, models.GroupPaidEvent{
		GroupID:     g.ID,
		ServiceName: g.ServiceName,
		PaidAt:      *g.PaidAt,
		Recipients:  recipients,
	})
	return g, nil
}

// Details возвращает группу со статусами, пересчитанными по реестру, и сводку по платежам.
func (s *SubscriptionService) Details(ctx context.Context, _ models.Caller, groupID string) (*models.GroupDetails, error) {
	if d, ok := s.cached(ctx, groupID); ok {
		return d, nil
	}

	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.PaymentsForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	reconcile.Project(g, payments)
	d := &models.GroupDetails{Group: g, Summary: reconcile.Summarize(g, payments)}

	if s.cache != nil {
		if _, err := s.cache.PutDetails(ctx, d); err != nil {
			s.log.Warn("failed to cache group details", sl.GroupID(groupID), sl.Err(err))
		}
	}
	return d, nil
}

// List возвращает группы, где вызывающий владелец или приглашенный, в порядке создания.
func (s *SubscriptionService) List(ctx context.Context, caller models.Caller) ([]*models.Group, error) {
	return s.repo.ListGroupsForUser(ctx, caller.UserID, caller.Email)
}

func (s *SubscriptionService) cached(ctx context.Context, groupID string) (*models.GroupDetails, bool) {
	if s.cache == nil {
		return nil, false
	}
	d, found, err := s.cache.GetDetails(ctx, groupID)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("failed to read group details from cache", sl.GroupID(groupID), sl.Err(err))
		return nil, false
	}
	if !found {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return d, true
}

func (s *SubscriptionService) bump(ctx context.Context, g *models.Group) {
	if s.cache == nil {
		return
	}
	err := s.cache.Bump(ctx, g.ID, g.Version)
	if err == nil {
		return
	}
	s.log.Warn("failed to bump cached group version", sl.GroupID(g.ID), sl.Err(err))
	if err := s.cache.Invalidate(ctx, g.ID); err != nil {
		s.log.Error("failed to invalidate cached group details", sl.GroupID(g.ID), sl.Err(err))
	}
}

func (s *SubscriptionService) publish(ctx context.Context, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.log.Error("failed to publish event", slog.String("routing_key", key), sl.Err(err))
	}
}

func invitationEvent(g *models.Group, emails []string) models.InvitationEvent {
	return models.InvitationEvent{
		GroupID:     g.ID,
		ServiceName: g.ServiceName,
		OwnerEmail:  g.OwnerEmail,
		Cost:        g.Cost.StringFixed(2),
		DueDate:     g.DueDate.String(),
		Emails:      emails,
	}
}
