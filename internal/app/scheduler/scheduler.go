// Package scheduler собирает процесс напоминаний: по cron-расписанию ищет группы
// с близким сроком оплаты и публикует события для воркера уведомлений.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subshare/internal/config"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/rabbitmq"
	services "github.com/magabrotheeeer/subshare/internal/services/scheduler"
	"github.com/magabrotheeeer/subshare/internal/storage"
)

// App процесс напоминаний.
type App struct {
	cfg     config.Scheduler
	store   storage.Store
	conn    *amqp.Connection
	ch      *amqp.Channel
	service *services.SchedulerService
	logger  *slog.Logger
}

// New открывает хранилище и подключается к брокеру.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "scheduler.New"
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is required", op)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{cfg: cfg.Scheduler, store: store, logger: logger}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.conn = conn
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.NotificationQueues())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.ch = ch

	app.service = services.NewSchedulerService(store, rabbitmq.NewPublisher(ch, cfg.Exchange), cfg.DaysDue, logger)
	return app, nil
}

// Run запускает cron и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	const op = "scheduler.Run"
	defer a.close()

	loc, err := time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c, err := a.service.Start(ctx, a.cfg.Cron, loc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.logger.Info("scheduler started",
		slog.String("cron", a.cfg.Cron),
		slog.Int("days_due", a.cfg.DaysDue),
		slog.String("timezone", loc.String()),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("scheduler stopped")
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
