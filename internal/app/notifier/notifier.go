// Package notifier собирает воркер уведомлений: читает доменные события
// из очередей RabbitMQ и рассылает письма через SMTP.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subshare/internal/config"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/lib/smtp"
	"github.com/magabrotheeeer/subshare/internal/rabbitmq"
	services "github.com/magabrotheeeer/subshare/internal/services/sender"
)

// App воркер уведомлений.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	sender *services.SenderService
	logger *slog.Logger
}

// New подключается к брокеру и объявляет очереди уведомлений.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "notifier.New"
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is required", op)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		conn:   conn,
		ch:     ch,
		sender: services.NewSenderService(smtp.NewTransport(cfg.SMTP, logger), logger),
		logger: logger,
	}, nil
}

// Handlers сопоставляет очередям обработчики отправителя писем.
func Handlers(sender *services.SenderService) map[string]rabbitmq.Handler {
	return map[string]rabbitmq.Handler{
		rabbitmq.QueueInvitations: sender.SendInvitations,
		rabbitmq.QueueReminders:   sender.SendDueReminder,
		rabbitmq.QueuePayments:    sender.SendPaymentReceipt,
		rabbitmq.QueueSettled:     sender.SendGroupSettled,
	}
}

// Run запускает потребителей всех очередей и блокируется до отмены ctx
// или закрытия соединения брокером.
func (a *App) Run(ctx context.Context) error {
	const op = "notifier.Run"
	defer a.close()

	for queue, handler := range Handlers(a.sender) {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, queue, handler); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	a.logger.Info("notifier started", slog.Int("queues", len(rabbitmq.NotificationQueues())))

	closed := a.conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		a.logger.Info("notifier stopping")
		return nil
	case amqpErr := <-closed:
		if amqpErr == nil {
			return nil
		}
		return fmt.Errorf("%s: %w", op, amqpErr)
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
