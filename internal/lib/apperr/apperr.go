// Package apperr описывает доменные ошибки сервиса: ошибки валидации,
// отсутствие сущности, попытки выполнить действие без прав и конфликты.
// Слой HTTP сопоставляет вид ошибки с кодом ответа.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид доменной ошибки.
type Kind string

const (
	// KindValidation некорректные или отсутствующие поля запроса.
	KindValidation Kind = "validation"
	// KindNotFound неизвестная группа, платеж или пользователь.
	KindNotFound Kind = "not_found"
	// KindAuthorization действие доступно только владельцу группы.
	KindAuthorization Kind = "authorization"
	// KindConflict зарезервировано: конфликт состояния (например, занятый email).
	KindConflict Kind = "conflict"
)

// Error доменная ошибка с видом и человекочитаемым сообщением.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по виду: errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// Sentinel-значения для errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrConflict      = &Error{Kind: KindConflict}
)

// Validation создает ошибку валидации.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NotFound создает ошибку отсутствия сущности.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Authorization создает ошибку отказа в доступе.
func Authorization(msg string) error {
	return &Error{Kind: KindAuthorization, Msg: msg}
}

// Conflict создает ошибку конфликта, оборачивая причину.
func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

// KindOf возвращает вид доменной ошибки из цепочки err и признак того, что она найдена.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Message возвращает сообщение доменной ошибки без технических подробностей обертки.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
