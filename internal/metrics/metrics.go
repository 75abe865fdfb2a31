// Package metrics регистрирует метрики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsCreated число созданных групп.
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "groups_created_total",
		Help:      "Number of subscription groups created.",
	})

	// InviteesAdded число добавленных приглашений.
	InviteesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "invitees_added_total",
		Help:      "Number of invitees added to groups.",
	})

	// PaymentsLogged число записанных платежей по способу оплаты.
	PaymentsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "payments_logged_total",
		Help:      "Number of payments appended to the ledger.",
	}, []string{"method"})

	// GroupsPaid число групп, отмеченных оплаченными.
	GroupsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "groups_paid_total",
		Help:      "Number of groups marked as paid.",
	})

	// CacheLookups обращения к кэшу деталей группы по результату (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "cache_lookups_total",
		Help:      "Group details cache lookups by result.",
	}, []string{"result"})

	// RemindersSent число опубликованных напоминаний о сроке оплаты.
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subshare",
		Name:      "due_reminders_total",
		Help:      "Number of due date reminders published.",
	})

	// HTTPRequestDuration длительность HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subshare",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
