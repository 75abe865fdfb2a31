// Package payment содержит логику реестра платежей группы:
// запись платежа с пересчетом статусов участников и выборки по группе и плательщику.
package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/metrics"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/reconcile"
)

// Ledger определяет методы хранилища платежей.
// LogPayment добавляет платеж и применяет projector в одной атомарной операции над группой.
type Ledger interface {
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	LogPayment(ctx context.Context, p *models.Payment, project models.Projector) (*models.Group, []string, error)
	PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error)
	PaymentsForUser(ctx context.Context, email string) ([]*models.Payment, error)
}

// Cache сбрасывает закэшированные детали группы после изменения.
type Cache interface {
	Bump(ctx context.Context, groupID string, version int64) error
	Invalidate(ctx context.Context, groupID string) error
}

// Publisher публикует доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// PaymentService реализует операции реестра платежей.
type PaymentService struct {
	ledger    Ledger
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// New создает новый экземпляр PaymentService. cache и publisher могут быть nil.
func New(ledger Ledger, cache Cache, publisher Publisher, log *slog.Logger) *PaymentService {
	return &PaymentService{
		ledger:    ledger,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// Log записывает платеж в реестр группы и возвращает его вместе с обновленными статусами участников.
// Плательщиком считается вызывающий. Владелец группы может указать payer_email участника,
// от имени которого он фиксирует полученные деньги.
func (s *PaymentService) Log(ctx context.Context, caller models.Caller, req models.LogPaymentRequest) (*models.PaymentReceipt, error) {
	method, err := models.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateMoney("amount", req.Amount); err != nil {
		return nil, err
	}

	payer := caller.Email
	if req.PayerEmail != "" && req.PayerEmail != caller.Email {
		g, err := s.ledger.GetGroup(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		if !g.IsOwner(caller.UserID) {
			return nil, apperr.Authorization("only the group owner can log payments on behalf of others")
		}
		payer = req.PayerEmail
	}

	p := &models.Payment{
		ID:          uuid.NewString(),
		GroupID:     req.GroupID,
		PayerID:     caller.UserID,
		PayerEmail:  payer,
		Amount:      req.Amount,
		Method:      method,
		Details:     req.Details,
		PaymentDate: s.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g, newlyPaid, err := s.ledger.LogPayment(ctx, p, reconcile.Project)
	if err != nil {
		return nil, err
	}

	metrics.PaymentsLogged.WithLabelValues(string(method)).Inc()
	s.refreshCache(ctx, g)
	s.log.Info("payment logged",
		sl.GroupID(g.ID),
		slog.String("payment_id", p.ID),
		slog.String("method", string(method)),
		slog.Int("newly_paid", len(newlyPaid)),
	)

	if s.publisher != nil {
		event := models.PaymentEvent{
			GroupID:     g.ID,
			ServiceName: g.ServiceName,
			OwnerEmail:  g.OwnerEmail,
			PaymentID:   p.ID,
			PayerEmail:  p.PayerEmail,
			Amount:      p.Amount.StringFixed(2),
			Method:      string(p.Method),
			NewlyPaid:   newlyPaid,
		}
		if err := s.publisher.Publish(ctx, models.RoutingPaymentLogged, event); err != nil {
			s.log.Error("failed to publish event", slog.String("routing_key", models.RoutingPaymentLogged), sl.Err(err))
		}
	}

	return &models.PaymentReceipt{Payment: p, Invitees: g.Invitees}, nil
}

// ForGroup возвращает платежи группы по возрастанию даты.
func (s *PaymentService) ForGroup(ctx context.Context, _ models.Caller, groupID string) ([]*models.Payment, error) {
	return s.ledger.PaymentsForGroup(ctx, groupID)
}

// ForUser возвращает платежи вызывающего во всех группах.
func (s *PaymentService) ForUser(ctx context.Context, caller models.Caller) ([]*models.Payment, error) {
	return s.ledger.PaymentsForUser(ctx, caller.Email)
}

// refreshCache поднимает версию группы в кэше. Если это не удалось,
// запись удаляется, чтобы следующее чтение пошло в хранилище.
func (s *PaymentService) refreshCache(ctx context.Context, g *models.Group) {
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
