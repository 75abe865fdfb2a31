// Package reconcile проецирует реестр платежей группы на статусы приглашенных участников.
// Функции пакета чистые: одинаковые входные данные всегда дают одинаковый результат.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subshare/internal/models"
)

// Apply переводит в статус Paid каждого участника, для email которого в payments
// есть хотя бы один платеж с положительной суммой. Сравнение email точное.
// Остальные статусы не меняются, Paid никогда не откатывается.
// Возвращает email участников, чей статус изменился.
func Apply(invitees []models.Invitee, payments []*models.Payment) []string {
	if len(invitees) == 0 || len(payments) == 0 {
		return nil
	}

	payers := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		if p.Amount.IsPositive() {
			payers[p.PayerEmail] = struct{}{}
		}
	}

	var changed []string
	for i := range invitees {
		if _, ok := payers[invitees[i].Email]; !ok {
			continue
		}
		if invitees[i].Status.Advances(models.InviteePaid) {
			invitees[i].Status = models.InviteePaid
			changed = append(changed, invitees[i].Email)
		}
	}
	return changed
}

// Project применяет Apply к участникам группы. Подходит как models.Projector.
func Project(g *models.Group, payments []*models.Payment) []string {
	return Apply(g.Invitees, payments)
}

var _ models.Projector = Project

// Summarize считает собранную сумму, остаток и список должников.
// Флаг оплаты группы из сводки не выводится.
func Summarize(g *models.Group, payments []*models.Payment) models.Summary {
	collected := decimal.Zero
	for _, p := range payments {
		if p.GroupID == g.ID && p.Amount.IsPositive() {
			collected = collected.Add(p.Amount)
		}
	}

	remaining := g.Cost.Sub(collected)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	s := models.Summary{
		Collected:   collected,
		Remaining:   remaining,
		Outstanding: []string{},
	}
	for _, inv := range g.Invitees {
		if inv.Status == models.InviteePaid {
			s.PaidCount++
			continue
		}
		s.Outstanding = append(s.Outstanding, inv.Email)
	}
	return s
}
