package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

const paymentColumns = `id, group_id, payer_id, payer_email, amount, method, details, payment_date`

const (
	insertPaymentQuery = `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	groupPaymentsQuery = `SELECT ` + paymentColumns + ` FROM payments
		WHERE group_id = $1
		ORDER BY payment_date, seq`
	userPaymentsQuery = `SELECT ` + paymentColumns + ` FROM payments
		WHERE payer_email = $1
		ORDER BY payment_date, seq`
	groupExistsQuery = `SELECT EXISTS (SELECT 1 FROM subscription_groups WHERE id = $1)`
)

func queryPayments(ctx context.Context, q querier, query string, arg string) ([]*models.Payment, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.GroupID, &p.PayerID, &p.PayerEmail, &p.Amount,
			&p.Method, &p.Details, &p.PaymentDate); err != nil {
			return nil, err
		}
		p.PaymentDate = p.PaymentDate.UTC()
		result = append(result, &p)
	}
	return result, rows.Err()
}

// LogPayment добавляет платеж в реестр и в той же транзакции пересчитывает
// статусы участников через project по всем платежам группы.
func (s *Storage) LogPayment(ctx context.Context, p *models.Payment, project models.Projector) (*models.Group, []string, error) {
	const op = "storage.LogPayment"
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	var changed []string
	g, err := s.lockedUpdate(ctx, p.GroupID, func(tx *sql.Tx, g *models.Group) error {
		if _, err := tx.ExecContext(ctx, insertPaymentQuery,
			p.ID, p.GroupID, p.PayerID, p.PayerEmail, p.Amount, p.Method, p.Details, p.PaymentDate); err != nil {
			return err
		}
		payments, err := queryPayments(ctx, tx, groupPaymentsQuery, p.GroupID)
		if err != nil {
			return err
		}
		if project != nil {
			changed = project(g, payments)
		}
		for _, email := range changed {
			status := g.Invitees[g.InviteeIndex(email)].Status
			if _, err := tx.ExecContext(ctx, updateInviteeQuery, g.ID, email, status); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, bumpVersionQuery, g.ID); err != nil {
			return err
		}
		g.Version++
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, changed, nil
}

// PaymentsForGroup возвращает платежи группы по возрастанию даты.
func (s *Storage) PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error) {
	const op = "storage.PaymentsForGroup"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx, groupExistsQuery, groupID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("group not found"))
	}

	payments, err := queryPayments(ctx, s.DB, groupPaymentsQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// PaymentsForUser возвращает платежи плательщика с данным email по всем группам.
func (s *Storage) PaymentsForUser(ctx context.Context, email string) ([]*models.Payment, error) {
	const op = "storage.PaymentsForUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	payments, err := queryPayments(ctx, s.DB, userPaymentsQuery, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}
