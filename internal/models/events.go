package models

import "time"

// Ключи маршрутизации доменных событий.
const (
	RoutingGroupCreated   = "group.created"
	RoutingMembersInvited = "group.invited"
	RoutingGroupPaid      = "group.paid"
	RoutingPaymentLogged  = "payment.logged"
	RoutingDueReminder    = "group.due"
)

// InvitationEvent публикуется при создании группы и приглашении новых участников.
type InvitationEvent struct {
	GroupID     string   `json:"group_id"`
	ServiceName string   `json:"service_name"`
	OwnerEmail  string   `json:"owner_email"`
	Cost        string   `json:"cost"`
	DueDate     string   `json:"due_date"`
	Emails      []string `json:"emails"`
}

// PaymentEvent публикуется после записи платежа.
type PaymentEvent struct {
	GroupID     string   `json:"group_id"`
	ServiceName string   `json:"service_name"`
	OwnerEmail  string   `json:"owner_email"`
	PaymentID   string   `json:"payment_id"`
	PayerEmail  string   `json:"payer_email"`
	Amount      string   `json:"amount"`
	Method      string   `json:"method"`
	NewlyPaid   []string `json:"newly_paid,omitempty"`
}

// GroupPaidEvent публикуется, когда владелец отмечает группу оплаченной.
type GroupPaidEvent struct {
	GroupID     string    `json:"group_id"`
	ServiceName string    `json:"service_name"`
	PaidAt      time.Time `json:"paid_at"`
	Recipients  []string  `json:"recipients"`
}

// DueReminderEvent напоминание о приближающемся сроке оплаты.
type DueReminderEvent struct {
	GroupID     string   `json:"group_id"`
	ServiceName string   `json:"service_name"`
	OwnerEmail  string   `json:"owner_email"`
	DueDate     string   `json:"due_date"`
	Remaining   string   `json:"remaining"`
	Outstanding []string `json:"outstanding"`
}
