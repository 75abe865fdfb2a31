// Package models содержит доменные структуры сервиса совместной оплаты подписок:
// группу, приглашенных участников, платежи и пользователей,
// а также DTO для приема данных из JSON-запросов.
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
)

// InviteeStatus статус приглашенного участника.
type InviteeStatus string

const (
	// InviteeInvited участник приглашен, оплаты не было.
	InviteeInvited InviteeStatus = "Invited"
	// InviteeAccepted участник подтвердил приглашение.
	InviteeAccepted InviteeStatus = "Accepted"
	// InviteePaid в реестре есть платеж участника.
	InviteePaid InviteeStatus = "Paid"
)

func (s InviteeStatus) rank() int {
	switch s {
	case InviteeAccepted:
		return 1
	case InviteePaid:
		return 2
	default:
		return 0
	}
}

// Valid сообщает, является ли s известным статусом.
func (s InviteeStatus) Valid() bool {
	switch s {
	case InviteeInvited, InviteeAccepted, InviteePaid:
		return true
	}
	return false
}

// Advances сообщает, является ли переход s -> next движением вперед.
// Статусы только растут: Invited -> Accepted -> Paid, Invited -> Paid.
func (s InviteeStatus) Advances(next InviteeStatus) bool {
	return next.rank() > s.rank()
}

// Invitee участник группы, идентифицируется по email.
type Invitee struct {
	Email  string        `json:"email"`
	Status InviteeStatus `json:"status"`
}

// Group группа совместной оплаты подписки.
type Group struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	OwnerEmail  string          `json:"owner_email"`
	ServiceName string          `json:"service_name"`
	Cost        decimal.Decimal `json:"cost"`
	DueDate     Date            `json:"due_date"`
	Invitees    []Invitee       `json:"invitees"`
	Paid        bool            `json:"paid"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	PaidBy      string          `json:"paid_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Version     int64           `json:"version"`
}

// NewGroup проверяет входные данные и собирает новую группу владельца.
// Приглашения получают статус Invited, дубликаты и email владельца отбрасываются,
// порядок первого появления сохраняется.
func NewGroup(owner Caller, serviceName string, cost decimal.Decimal, due Date, emails []string, now time.Time) (*Group, error) {
	g := &Group{
		ID:          uuid.NewString(),
		OwnerID:     owner.UserID,
		OwnerEmail:  owner.Email,
		ServiceName: strings.TrimSpace(serviceName),
		Cost:        cost,
		DueDate:     due,
		Invitees:    []Invitee{},
		CreatedAt:   now.UTC(),
		Version:     1,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.AddInvitees(emails)
	return g, nil
}

// Validate проверяет инварианты группы.
func (g *Group) Validate() error {
	if g.OwnerID == "" {
		return apperr.Validation("owner is required")
	}
	if strings.TrimSpace(g.ServiceName) == "" {
		return apperr.Validation("service_name must not be empty")
	}
	if err := ValidateMoney("cost", g.Cost); err != nil {
		return err
	}
	if g.DueDate.IsZero() {
		return apperr.Validation("due_date is required")
	}
	seen := make(map[string]struct{}, len(g.Invitees))
	for _, inv := range g.Invitees {
		if _, ok := seen[inv.Email]; ok {
			return apperr.Validation("duplicate invitee " + inv.Email)
		}
		seen[inv.Email] = struct{}{}
	}
	return nil
}

// IsOwner сообщает, является ли пользователь владельцем группы.
func (g *Group) IsOwner(userID string) bool {
	return userID != "" && g.OwnerID == userID
}

// InviteeIndex возвращает позицию участника с точным совпадением email или -1.
func (g *Group) InviteeIndex(email string) int {
	return slices.IndexFunc(g.Invitees, func(inv Invitee) bool {
		return inv.Email == email
	})
}

// AddInvitees добавляет новые email в конец списка и возвращает добавленных участников.
// Уже приглашенные, пустые адреса и email владельца пропускаются без ошибки.
func (g *Group) AddInvitees(emails []string) []Invitee {
	var added []Invitee
	for _, email := range emails {
		if email == "" || email == g.OwnerEmail || g.InviteeIndex(email) >= 0 {
			continue
		}
		inv := Invitee{Email: email, Status: InviteeInvited}
		g.Invitees = append(g.Invitees, inv)
		added = append(added, inv)
	}
	return added
}

// SetInviteeStatus переводит участника в статус next, если это движение вперед.
func (g *Group) SetInviteeStatus(email string, next InviteeStatus) bool {
	i := g.InviteeIndex(email)
	if i < 0 || !g.Invitees[i].Status.Advances(next) {
		return false
	}
	g.Invitees[i].Status = next
	return true
}

// Accept отмечает приглашение участника как подтвержденное.
func (g *Group) Accept(email string) (bool, error) {
	if g.InviteeIndex(email) < 0 {
		return false, apperr.NotFound("invitation not found")
	}
	return g.SetInviteeStatus(email, InviteeAccepted), nil
}

// MarkPaid переводит группу в состояние Paid. Повторный вызов ничего не меняет и возвращает false.
func (g *Group) MarkPaid(paidBy string, at time.Time) bool {
	if g.Paid {
		return false
	}
	at = at.UTC()
	g.Paid = true
	g.PaidAt = &at
	g.PaidBy = paidBy
	return true
}

// Emails возвращает email всех участников в порядке приглашения.
func (g *Group) Emails() []string {
	emails := make([]string, 0, len(g.Invitees))
	for _, inv := range g.Invitees {
		emails = append(emails, inv.Email)
	}
	return emails
}

// Clone возвращает глубокую копию группы.
func (g *Group) Clone() *Group {
	c := *g
	c.Invitees = slices.Clone(g.Invitees)
	if c.Invitees == nil {
		c.Invitees = []Invitee{}
	}
	if g.PaidAt != nil {
		at := *g.PaidAt
		c.PaidAt = &at
	}
	return &c
}

// Summary сводка по сбору денег в группе, вычисляется из реестра платежей.
type Summary struct {
	Collected   decimal.Decimal `json:"collected"`
	Remaining   decimal.Decimal `json:"remaining"`
	PaidCount   int             `json:"paid_count"`
	Outstanding []string        `json:"outstanding"`
}

// GroupDetails группа вместе со сводкой по платежам.
type GroupDetails struct {
	Group   *Group  `json:"group"`
	Summary Summary `json:"summary"`
}

// CreateGroupRequest используется для приема данных из JSON-запроса на создание группы.
type CreateGroupRequest struct {
	ServiceName string          `json:"service_name" validate:"required"`
	Cost        decimal.Decimal `json:"cost"`
	DueDate     string          `json:"due_date" validate:"required"`
	Invitees    []string        `json:"invitees" validate:"dive,email"`
}

// InviteRequest запрос на приглашение участников.
type InviteRequest struct {
	Invitees []string `json:"invitees" validate:"required,min=1,dive,email"`
}

// MarkPaidRequest тело запроса на отметку группы оплаченной, все поля опциональны.
type MarkPaidRequest struct {
	PaidBy string `json:"paid_by,omitempty"`
}
