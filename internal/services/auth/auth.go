// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/lib/jwt"
	"github.com/magabrotheeeer/subshare/internal/lib/password"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя. Занятый email возвращает apperr.ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error

	// GetUserByEmail возвращает пользователя по email или apperr.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserName(ctx context.Context, id, name string) (*models.User, error)
}

// AuthService отвечает за регистрацию, вход и проверку JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		now:      time.Now,
	}
}

// Register создает пользователя с хэшированным паролем и сразу выдает ему токен.
func (s *AuthService) Register(ctx context.Context, req models.SignupRequest) (*models.User, string, error) {
	const op = "services.auth.Register"
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, "", apperr.Validation("password is not acceptable")
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return user, token, nil
}

// Login проверяет пароль пользователя и выдает JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "services.auth.Login"
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ValidateToken проверяет JWT и возвращает идентичность вызывающего.
func (s *AuthService) ValidateToken(_ context.Context, token string) (models.Caller, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.Caller{}, err
	}
	return models.Caller{UserID: claims.UserID(), Email: claims.Email}, nil
}

// Profile возвращает профиль вызывающего.
func (s *AuthService) Profile(ctx context.Context, caller models.Caller) (*models.User, error) {
	return s.users.GetUserByID(ctx, caller.UserID)
}

// UpdateProfile меняет имя вызывающего. Пароль и email через профиль не меняются.
func (s *AuthService) UpdateProfile(ctx context.Context, caller models.Caller, req models.UpdateProfileRequest) (*models.User, error) {
	if req.Password != nil {
		return nil, apperr.Validation("password update not allowed via this endpoint")
	}
	if req.Email != nil {
		return nil, apperr.Validation("email update not allowed via this endpoint")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	return s.users.UpdateUserName(ctx, caller.UserID, name)
}
