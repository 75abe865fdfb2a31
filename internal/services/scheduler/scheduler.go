// Package services содержит фоновые задачи: напоминания участникам
// о приближающемся сроке оплаты группы.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/metrics"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/reconcile"
)

// GroupRepository определяет методы хранилища, нужные планировщику.
type GroupRepository interface {
	DueGroups(ctx context.Context, day models.Date) ([]*models.Group, error)
	PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error)
}

// Publisher публикует доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService ищет неоплаченные группы с близким сроком и публикует напоминания.
type SchedulerService struct {
	repo      GroupRepository
	publisher Publisher
	daysAhead int
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// daysAhead задает, за сколько дней до срока отправляется напоминание.
func NewSchedulerService(repo GroupRepository, publisher Publisher, daysAhead int, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		daysAhead: daysAhead,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *SchedulerService) WithClock(now func() time.Time) *SchedulerService {
	s.now = now
	return s
}

// RunDueReminders публикует напоминания по группам со сроком через daysAhead дней,
// у которых остались неоплатившие участники. Возвращает число напоминаний.
func (s *SchedulerService) RunDueReminders(ctx context.Context) (int, error) {
	const op = "services.scheduler.RunDueReminders"
	day := models.NewDate(s.now().AddDate(0, 0, s.daysAhead))
	log := s.log.With(slog.String("op", op), slog.String("due_date", day.String()))

	groups, err := s.repo.DueGroups(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(groups) == 0 {
		log.Info("no groups due")
		return 0, nil
	}
	log.Info("found groups due", slog.Int("count", len(groups)))

	sent := 0
	for _, g := range groups {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		payments, err := s.repo.PaymentsForGroup(ctx, g.ID)
		if err != nil {
			log.Error("failed to load payments", sl.GroupID(g.ID), sl.Err(err))
			continue
		}
		reconcile.Project(g, payments)
		summary := reconcile.Summarize(g, payments)
		if len(summary.Outstanding) == 0 {
			continue
		}

		event := models.DueReminderEvent{
			GroupID:     g.ID,
			ServiceName: g.ServiceName,
			OwnerEmail:  g.OwnerEmail,
			DueDate:     g.DueDate.String(),
			Remaining:   summary.Remaining.StringFixed(2),
			Outstanding: summary.Outstanding,
		}
		if err := s.publisher.Publish(ctx, models.RoutingDueReminder, event); err != nil {
			log.Error("failed to publish reminder", sl.GroupID(g.ID), sl.Err(err))
			continue
		}
		metrics.RemindersSent.Inc()
		sent++
	}
	log.Info("due reminders published", slog.Int("sent", sent))
	return sent, nil
}

// Start запускает RunDueReminders по cron-расписанию spec в часовом поясе loc.
// Возвращает планировщик, который останавливается при отмене ctx.
func (s *SchedulerService) Start(ctx context.Context, spec string, loc *time.Location) (*cron.Cron, error) {
	const op = "services.scheduler.Start"
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		if _, err := s.RunDueReminders(ctx); err != nil {
			s.log.Error("due reminders run failed", sl.Err(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
