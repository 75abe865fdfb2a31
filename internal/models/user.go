package models

import "time"

// User зарегистрированный пользователь.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Caller идентичность вызывающего, полученная из bearer-токена.
// Передается в каждую операцию сервиса явно.
type Caller struct {
	UserID string
	Email  string
}

// SignupRequest запрос на регистрацию.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest запрос на вход.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest запрос на изменение профиля. Менять можно только имя;
// Password и Email нужны, чтобы отклонить попытку их изменить.
type UpdateProfileRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Password *string `json:"password,omitempty"`
	Email    *string `json:"email,omitempty"`
}
