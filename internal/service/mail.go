package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is a plain text email
type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(m Message) error
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	From   string
	Dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if username == "" {
		username = from
	}

	return &SMTPMailer{
		From:   from,
		Dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (s *SMTPMailer) Send(msg Message) error {
	if msg.To == s.From {
		return errors.New("invalid email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}

// LogMailer only logs outgoing mail. Used when no relay is configured.
type LogMailer struct{}

func (LogMailer) Send(m Message) error {
	zap.L().Debug("Mail delivery disabled, dropping message",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)

	return nil
}

func WelcomeMessage(email, name string) Message {
	return Message{
		To:      email,
		Subject: "Thanks for joining in!",
		Body:    fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name),
	}
}

func CancelationMessage(email, name string) Message {
	return Message{
		To:      email,
		Subject: "Sorry to see you go!",
		Body:    fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name),
	}
}

// Notify sends msg in the background. Failures are logged and never reach
// the request that triggered the mail.
func Notify(m Mailer, msg Message) {
	if m == nil {
		return
	}

	go func() {
		if err := m.Send(msg); err != nil {
			zap.L().Warn("Failed to send mail",
				zap.Error(err),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
			)
		}
	}()
}
