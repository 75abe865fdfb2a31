// Package services отправляет e-mail уведомления по доменным событиям групп:
// приглашения, напоминания о сроке, квитанции о платежах и закрытие сбора.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/lib/smtp"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// ErrNoRecipients возвращается для события без адресатов.
var ErrNoRecipients = errors.New("no recipients")

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport smtp.Mailer
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.Mailer, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendInvitations отправляет приглашения в группу.
func (s *SenderService) SendInvitations(body []byte) error {
	var message models.InvitationEvent
	if err := s.decode(body, &message); err != nil {
		return err
	}

	subject := fmt.Sprintf("Приглашение разделить подписку %s", message.ServiceName)
	bodyText := fmt.Sprintf("Здравствуйте!\n\n%s приглашает вас разделить стоимость подписки %s.\n"+
		"Общая стоимость: %s, срок оплаты: %s.\n\nID группы: %s",
		message.OwnerEmail, message.ServiceName, message.Cost, message.DueDate, message.GroupID)

	return s.sendEmail(message.Emails, subject, bodyText)
}

// SendDueReminder напоминает неоплатившим участникам о сроке оплаты.
func (s *SenderService) SendDueReminder(body []byte) error {
	var message models.DueReminderEvent
	if err := s.decode(body, &message); err != nil {
		return err
	}

	subject := fmt.Sprintf("Напоминание об оплате %s", message.ServiceName)
	bodyText := fmt.Sprintf("Здравствуйте!\n\nСрок оплаты подписки %s наступает %s.\n"+
		"Осталось собрать: %s. Пожалуйста, переведите свою часть владельцу группы %s.",
		message.ServiceName, message.DueDate, message.Remaining, message.OwnerEmail)

	return s.sendEmail(message.Outstanding, subject, bodyText)
}

// SendPaymentReceipt сообщает владельцу и плательщику о записанном платеже.
func (s *SenderService) SendPaymentReceipt(body []byte) error {
	var message models.PaymentEvent
	if err := s.decode(body, &message); err != nil {
		return err
	}

	to := []string{message.OwnerEmail}
	if message.PayerEmail != "" && message.PayerEmail != message.OwnerEmail {
		to = append(to, message.PayerEmail)
	}
	subject := fmt.Sprintf("Платеж по подписке %s", message.ServiceName)
	bodyText := fmt.Sprintf("Здравствуйте!\n\nЗаписан платеж %s (%s) от %s в группе %s.",
		message.Amount, message.Method, message.PayerEmail, message.ServiceName)

	return s.sendEmail(to, subject, bodyText)
}

// SendGroupSettled сообщает всем участникам, что владелец оплатил подписку.
func (s *SenderService) SendGroupSettled(body []byte) error {
	var message models.GroupPaidEvent
	if err := s.decode(body, &message); err != nil {
		return err
	}

	subject := fmt.Sprintf("Подписка %s оплачена", message.ServiceName)
	bodyText := fmt.Sprintf("Здравствуйте!\n\nВладелец группы отметил подписку %s оплаченной %s.",
		message.ServiceName, message.PaidAt.Format("2006-01-02 15:04"))

	return s.sendEmail(message.Recipients, subject, bodyText)
}

func (s *SenderService) decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	return nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	if len(to) == 0 {
		s.log.Warn("skipping email without recipients", slog.String("subject", subject))
		return ErrNoRecipients
	}
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
