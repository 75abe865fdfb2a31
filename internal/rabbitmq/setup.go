package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subshare/internal/models"
)

// Имена очередей воркера уведомлений.
const (
	QueueInvitations = "notifications.invites"
	QueueReminders   = "notifications.reminders"
	QueuePayments    = "notifications.payments"
	QueueSettled     = "notifications.settled"
)

// QueueConfig очередь и ключи маршрутизации, которыми она привязана к exchange.
type QueueConfig struct {
	QueueName   string
	RoutingKeys []string
}

// NotificationQueues возвращает очереди воркера уведомлений.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueInvitations, RoutingKeys: []string{models.RoutingGroupCreated, models.RoutingMembersInvited}},
		{QueueName: QueueReminders, RoutingKeys: []string{models.RoutingDueReminder}},
		{QueueName: QueuePayments, RoutingKeys: []string{models.RoutingPaymentLogged}},
		{QueueName: QueueSettled, RoutingKeys: []string{models.RoutingGroupPaid}},
	}
}

// SetupChannel открывает канал, объявляет direct exchange и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		for _, key := range q.RoutingKeys {
			if err := ch.QueueBind(q.QueueName, key, exchange, false, nil); err != nil {
				return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, key, err)
			}
		}
	}

	return ch, nil
}
