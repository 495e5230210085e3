package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	from string
	send func(msgs ...*gomail.Message) error
}

func NewSMTPService(cfg SMTPConfig) Service {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &smtpService{from: cfg.From, send: d.DialAndSend}
}

// NewWithSender delivers through an existing gomail sender.
func NewWithSender(from string, sender gomail.Sender) Service {
	return &smtpService{
		from: from,
		send: func(msgs ...*gomail.Message) error { return gomail.Send(sender, msgs...) },
	}
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type nopService struct{}

// NewNopService drops every message. Used when SMTP is disabled.
func NewNopService() Service {
	return nopService{}
}

func (nopService) SendCustom(context.Context, string, string, string) error {
	return nil
}
