// Package storage выбирает хранилище групп, платежей и пользователей по конфигу.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subshare/internal/config"
	"github.com/magabrotheeeer/subshare/internal/migrations"
	"github.com/magabrotheeeer/subshare/internal/models"
	"github.com/magabrotheeeer/subshare/internal/storage/memory"
	"github.com/magabrotheeeer/subshare/internal/storage/repository"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Store объединяет методы хранилища, которые используют сервисы.
type Store interface {
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID, email string) ([]*models.Group, error)
	AddInvitees(ctx context.Context, groupID, ownerID string, emails []string) (*models.Group, []models.Invitee, error)
	MarkPaid(ctx context.Context, groupID, ownerID, paidBy string, at time.Time) (*models.Group, bool, error)
	AcceptInvite(ctx context.Context, groupID, email string) (*models.Group, bool, error)
	DueGroups(ctx context.Context, day models.Date) ([]*models.Group, error)

	LogPayment(ctx context.Context, p *models.Payment, project models.Projector) (*models.Group, []string, error)
	PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error)
	PaymentsForUser(ctx context.Context, email string) ([]*models.Payment, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserName(ctx context.Context, id, name string) (*models.User, error)

	Ready(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*repository.Storage)(nil)
)

// Open открывает хранилище. Для postgres применяет миграции и ждет готовности схемы.
func Open(ctx context.Context, cfg config.Storage, log *slog.Logger) (Store, error) {
	const op = "storage.Open"
	switch cfg.Driver {
	case DriverMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	case DriverPostgres:
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := waitForDB(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("connected to postgres storage")
		return db, nil
	}
	return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = db.Ready(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}
