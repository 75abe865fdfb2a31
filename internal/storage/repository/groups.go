package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

const groupColumns = `id, owner_id, owner_email, service_name, cost, due_date,
	paid, paid_at, paid_by, version, created_at`

const (
	insertGroupQuery = `INSERT INTO subscription_groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	insertInviteeQuery = `INSERT INTO group_invitees (group_id, position, email, status)
		VALUES ($1, $2, $3, $4)`
	selectGroupQuery       = `SELECT ` + groupColumns + ` FROM subscription_groups WHERE id = $1`
	selectGroupForUpdate   = selectGroupQuery + ` FOR UPDATE`
	selectInviteesQuery    = `SELECT email, status FROM group_invitees WHERE group_id = $1 ORDER BY position`
	bumpVersionQuery       = `UPDATE subscription_groups SET version = version + 1 WHERE id = $1`
	updateInviteeQuery     = `UPDATE group_invitees SET status = $3 WHERE group_id = $1 AND email = $2`
	markPaidQuery          = `UPDATE subscription_groups SET paid = TRUE, paid_at = $2, paid_by = $3, version = version + 1 WHERE id = $1`
	listGroupsForUserQuery = `SELECT ` + groupColumns + ` FROM subscription_groups g
		WHERE g.owner_id = $1
		   OR EXISTS (SELECT 1 FROM group_invitees i WHERE i.group_id = g.id AND i.email = $2)
		ORDER BY g.seq`
	dueGroupsQuery = `SELECT ` + groupColumns + ` FROM subscription_groups
		WHERE NOT paid AND due_date = $1
		ORDER BY seq`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		g      models.Group
		paidAt sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.OwnerID, &g.OwnerEmail, &g.ServiceName, &g.Cost, &g.DueDate,
		&g.Paid, &paidAt, &g.PaidBy, &g.Version, &g.CreatedAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		at := paidAt.Time.UTC()
		g.PaidAt = &at
	}
	g.Invitees = []models.Invitee{}
	return &g, nil
}

func loadInvitees(ctx context.Context, q querier, g *models.Group) error {
	rows, err := q.QueryContext(ctx, selectInviteesQuery, g.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var inv models.Invitee
		if err := rows.Scan(&inv.Email, &inv.Status); err != nil {
			return err
		}
		g.Invitees = append(g.Invitees, inv)
	}
	return rows.Err()
}

func getGroup(ctx context.Context, q querier, query, id string) (*models.Group, error) {
	g, err := scanGroup(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, err
	}
	if err := loadInvitees(ctx, q, g); err != nil {
		return nil, err
	}
	return g, nil
}

func insertInvitees(ctx context.Context, tx *sql.Tx, groupID string, from int, invitees []models.Invitee) error {
	for i, inv := range invitees {
		if _, err := tx.ExecContext(ctx, insertInviteeQuery, groupID, from+i, inv.Email, inv.Status); err != nil {
			return err
		}
	}
	return nil
}

// CreateGroup сохраняет новую группу вместе с приглашенными.
func (s *Storage) CreateGroup(ctx context.Context, g *models.Group) error {
	const op = "storage.CreateGroup"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if err := g.Validate(); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertGroupQuery,
			g.ID, g.OwnerID, g.OwnerEmail, g.ServiceName, g.Cost, g.DueDate,
			g.Paid, g.PaidAt, g.PaidBy, g.Version, g.CreatedAt); err != nil {
			return err
		}
		return insertInvitees(ctx, tx, g.ID, 0, g.Invitees)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetGroup возвращает группу с приглашенными по ID.
func (s *Storage) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	const op = "storage.GetGroup"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	g, err := getGroup(ctx, s.DB, selectGroupQuery, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// lockedUpdate блокирует строку группы и выполняет fn в той же транзакции.
func (s *Storage) lockedUpdate(ctx context.Context, id string, fn func(tx *sql.Tx, g *models.Group) error) (*models.Group, error) {
	var g *models.Group
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		g, err = getGroup(ctx, tx, selectGroupForUpdate, id)
		if err != nil {
			return err
		}
		return fn(tx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// AddInvitees добавляет новых участников в конец списка. Доступно только владельцу.
func (s *Storage) AddInvitees(ctx context.Context, groupID, ownerID string, emails []string) (*models.Group, []models.Invitee, error) {
	const op = "storage.AddInvitees"
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var added []models.Invitee
	g, err := s.lockedUpdate(ctx, groupID, func(tx *sql.Tx, g *models.Group) error {
		if !g.IsOwner(ownerID) {
			return apperr.Authorization("only the group owner can invite members")
		}
		from := len(g.Invitees)
		added = g.AddInvitees(emails)
		if len(added) == 0 {
			return nil
		}
		if err := insertInvitees(ctx, tx, g.ID, from, added); err != nil {
			return err
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
	return g, added, nil
}

// MarkPaid переводит группу в Paid. Повторный вызов успешен и ничего не меняет.
func (s *Storage) MarkPaid(ctx context.Context, groupID, ownerID, paidBy string, at time.Time) (*models.Group, bool, error) {
	const op = "storage.MarkPaid"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var changed bool
	g, err := s.lockedUpdate(ctx, groupID, func(tx *sql.Tx, g *models.Group) error {
		if !g.IsOwner(ownerID) {
			return apperr.Authorization("only the group owner can mark the group as paid")
		}
		if changed = g.MarkPaid(paidBy, at); !changed {
			return nil
		}
		if _, err := tx.ExecContext(ctx, markPaidQuery, g.ID, *g.PaidAt, g.PaidBy); err != nil {
			return err
		}
		g.Version++
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return g, changed, nil
}

// AcceptInvite подтверждает приглашение участника с данным email.
func (s *Storage) AcceptInvite(ctx context.Context, groupID, email string) (*models.Group, bool, error) {
	const op = "storage.AcceptInvite"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var changed bool
	g, err := s.lockedUpdate(ctx, groupID, func(tx *sql.Tx, g *models.Group) error {
		var err error
		if changed, err = g.Accept(email); err != nil || !changed {
			return err
		}
		if _, err := tx.ExecContext(ctx, updateInviteeQuery, g.ID, email, models.InviteeAccepted); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, bumpVersionQuery, g.ID); err != nil {
			return err
		}
		g.Version++
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return g, changed, nil
}

func (s *Storage) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result := []*models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for _, g := range result {
		if err := loadInvitees(ctx, s.DB, g); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ListGroupsForUser возвращает группы, где пользователь владелец или приглашен, в порядке создания.
func (s *Storage) ListGroupsForUser(ctx context.Context, userID, email string) ([]*models.Group, error) {
	const op = "storage.ListGroupsForUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	groups, err := s.queryGroups(ctx, listGroupsForUserQuery, userID, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}

// DueGroups возвращает неоплаченные группы со сроком оплаты day.
func (s *Storage) DueGroups(ctx context.Context, day models.Date) ([]*models.Group, error) {
	const op = "storage.DueGroups"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	groups, err := s.queryGroups(ctx, dueGroupsQuery, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}
