// Package memory реализует хранилище групп, платежей и пользователей в памяти процесса.
// Используется для локального запуска (storage.driver: memory) и в тестах сервисов.
//
// Каждая изменяющая операция над группой выполняется под мьютексом этой группы
// и работает с копией: изменения становятся видны только после успешного завершения.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Store хранилище в памяти.
type Store struct {
	mu sync.RWMutex

	groups   map[string]*models.Group
	order    []string
	payments []*models.Payment
	users    map[string]*models.User

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New создает пустое хранилище.
func New() *Store {
	return &Store{
		groups: make(map[string]*models.Group),
		users:  make(map[string]*models.User),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) groupLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) load(id string) (*models.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

func (s *Store) save(g *models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g.Clone()
}

// mutate выполняет fn над копией группы под ее мьютексом.
// Копия сохраняется, только если fn вернула changed=true без ошибки.
func (s *Store) mutate(ctx context.Context, id string, fn func(g *models.Group) (bool, error)) (*models.Group, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l := s.groupLock(id)
	l.Lock()
	defer l.Unlock()

	g, ok := s.load(id)
	if !ok {
		return nil, false, apperr.NotFound("group not found")
	}
	changed, err := fn(g)
	if err != nil {
		return nil, false, err
	}
	if changed {
		g.Version++
		s.save(g)
	}
	return g, changed, nil
}

// CreateGroup сохраняет новую группу.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	const op = "memory.CreateGroup"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[g.ID]; exists {
		return apperr.Conflict("group already exists", nil)
	}
	s.groups[g.ID] = g.Clone()
	s.order = append(s.order, g.ID)
	return nil
}

// GetGroup возвращает копию группы.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, ok := s.load(id)
	if !ok {
		return nil, apperr.NotFound("group not found")
	}
	return g, nil
}

// ListGroupsForUser возвращает группы, где пользователь владелец или приглашен по email,
// в порядке создания.
func (s *Store) ListGroupsForUser(ctx context.Context, userID, email string) ([]*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Group{}
	for _, id := range s.order {
		g := s.groups[id]
		if g.IsOwner(userID) || (email != "" && g.InviteeIndex(email) >= 0) {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

// AddInvitees добавляет участников. Доступно только владельцу группы.
func (s *Store) AddInvitees(ctx context.Context, groupID, ownerID string, emails []string) (*models.Group, []models.Invitee, error) {
	var added []models.Invitee
	g, _, err := s.mutate(ctx, groupID, func(g *models.Group) (bool, error) {
		if !g.IsOwner(ownerID) {
			return false, apperr.Authorization("only the group owner can invite members")
		}
		added = g.AddInvitees(emails)
		return len(added) > 0, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, added, nil
}

// MarkPaid переводит группу в Paid. Повторный вызов успешен и ничего не меняет.
func (s *Store) MarkPaid(ctx context.Context, groupID, ownerID, paidBy string, at time.Time) (*models.Group, bool, error) {
	return s.mutate(ctx, groupID, func(g *models.Group) (bool, error) {
		if !g.IsOwner(ownerID) {
			return false, apperr.Authorization("only the group owner can mark the group as paid")
		}
		return g.MarkPaid(paidBy, at), nil
	})
}

// AcceptInvite подтверждает приглашение участника с данным email.
func (s *Store) AcceptInvite(ctx context.Context, groupID, email string) (*models.Group, bool, error) {
	return s.mutate(ctx, groupID, func(g *models.Group) (bool, error) {
		return g.Accept(email)
	})
}

// DueGroups возвращает неоплаченные группы со сроком оплаты day.
func (s *Store) DueGroups(ctx context.Context, day models.Date) ([]*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Group{}
	for _, id := range s.order {
		g := s.groups[id]
		if !g.Paid && g.DueDate.Equal(day) {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

// LogPayment добавляет платеж в реестр и под тем же мьютексом группы
// пересчитывает статусы участников через project.
func (s *Store) LogPayment(ctx context.Context, p *models.Payment, project models.Projector) (*models.Group, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	l := s.groupLock(p.GroupID)
	l.Lock()
	defer l.Unlock()

	g, ok := s.load(p.GroupID)
	if !ok {
		return nil, nil, apperr.NotFound("group not found")
	}
	stored := *p
	var changed []string
	if project != nil {
		changed = project(g, append(s.paymentsFor(p.GroupID), &stored))
	}
	g.Version++

	s.mu.Lock()
	s.groups[g.ID] = g.Clone()
	s.payments = append(s.payments, &stored)
	s.mu.Unlock()
	return g, changed, nil
}

func (s *Store) paymentsFor(groupID string) []*models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Payment
	for _, p := range s.payments {
		if p.GroupID == groupID {
			c := *p
			result = append(result, &c)
		}
	}
	return result
}

// PaymentsForGroup возвращает платежи группы по возрастанию даты,
// при равных датах в порядке записи.
func (s *Store) PaymentsForGroup(ctx context.Context, groupID string) ([]*models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.load(groupID); !ok {
		return nil, apperr.NotFound("group not found")
	}
	return sortByDate(s.paymentsFor(groupID)), nil
}

// PaymentsForUser возвращает все платежи плательщика с данным email по всем группам.
func (s *Store) PaymentsForUser(ctx context.Context, email string) ([]*models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var result []*models.Payment
	for _, p := range s.payments {
		if p.PayerEmail == email {
			c := *p
			result = append(result, &c)
		}
	}
	s.mu.RUnlock()
	return sortByDate(result), nil
}

func sortByDate(payments []*models.Payment) []*models.Payment {
	if payments == nil {
		return []*models.Payment{}
	}
	slices.SortStableFunc(payments, func(a, b *models.Payment) int {
		return a.PaymentDate.Compare(b.PaymentDate)
	})
	return payments
}

// CreateUser сохраняет пользователя. Email должен быть уникальным.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.Conflict("user with this email already exists", nil)
		}
	}
	c := *u
	s.users[u.ID] = &c
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	c := *u
	return &c, nil
}

// UpdateUserName меняет имя пользователя.
func (s *Store) UpdateUserName(ctx context.Context, id, name string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	u.Name = name
	c := *u
	return &c, nil
}

// Ready всегда успешен: хранилище в памяти доступно, пока жив процесс.
func (s *Store) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (s *Store) Close() error {
	return nil
}
