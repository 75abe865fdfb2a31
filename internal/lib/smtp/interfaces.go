// Package smtp отправляет письма уведомлений через SMTP-сервер.
package smtp

import "io"

// Client сессия SMTP, в рамках которой отправляется одно письмо уведомления:
// отправитель, получатели, тело письма и завершение сессии.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer открывает сессию для каждого письма о группе
// и знает адрес, от имени которого уходят уведомления.
type Mailer interface {
	Connect() (Client, error)
	From() string
}

var _ Mailer = (*Transport)(nil)
