package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
)

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	MethodManual PaymentMethod = "manual"
	MethodVenmo  PaymentMethod = "venmo"
)

// ParsePaymentMethod разбирает способ оплаты без учета регистра.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodManual:
		return MethodManual, nil
	case MethodVenmo:
		return MethodVenmo, nil
	}
	return "", apperr.Validation("method must be one of: manual, venmo")
}

// Payment запись реестра платежей. После создания не изменяется и не удаляется.
type Payment struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	PayerEmail  string          `json:"payer_email"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Details     string          `json:"details,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
}

// Validate проверяет инварианты платежа.
func (p *Payment) Validate() error {
	if p.GroupID == "" {
		return apperr.Validation("group_id is required")
	}
	if p.PayerEmail == "" {
		return apperr.Validation("payer_email is required")
	}
	if err := ValidateMoney("amount", p.Amount); err != nil {
		return err
	}
	if _, err := ParsePaymentMethod(string(p.Method)); err != nil {
		return err
	}
	return nil
}

// Projector пересчитывает производное состояние группы по всем ее платежам
// и возвращает email участников, чей статус изменился.
type Projector func(g *Group, payments []*Payment) []string

// LogPaymentRequest используется для приема данных из JSON-запроса на запись платежа.
// PayerEmail может указать только владелец группы, записывая платеж участника.
type LogPaymentRequest struct {
	GroupID    string          `json:"group_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method" validate:"required"`
	Details    string          `json:"details,omitempty"`
	PayerEmail string          `json:"payer_email,omitempty" validate:"omitempty,email"`
}

// PaymentReceipt результат записи платежа: сам платеж и актуальные статусы участников.
type PaymentReceipt struct {
	Payment  *Payment  `json:"payment"`
	Invitees []Invitee `json:"invitees"`
}
