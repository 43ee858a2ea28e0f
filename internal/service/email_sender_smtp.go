package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"
)

type SMTPEmailSender struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AppBaseURL string
	ResetPath  string
}

func NewSMTPEmailSender(host string, port int, username, password, from, appBaseURL string) *SMTPEmailSender {
	return &SMTPEmailSender{
		Host:       host,
		Port:       port,
		Username:   username,
		Password:   password,
		From:       from,
		AppBaseURL: strings.TrimRight(appBaseURL, "/"),
		ResetPath:  "/reset-password",
	}
}

func (s *SMTPEmailSender) SendVerificationCode(ctx context.Context, email string, name string, code string) error {
	return s.send(ctx, email, verificationMessage(name, code))
}

func (s *SMTPEmailSender) SendPasswordReset(ctx context.Context, email string, token string) error {
	return s.send(ctx, email, resetMessage(resetLink(s.AppBaseURL, s.ResetPath, token)))
}

func (s *SMTPEmailSender) send(ctx context.Context, to string, msg mailMessage) error {
	if s.Host == "" || s.From == "" {
		return ErrEmailNotConfigured
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	mail := mailyak.New(fmt.Sprintf("%s:%d", s.Host, s.Port), auth)
	mail.To(to)
	mail.From(s.From)
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTML)
	mail.Plain().Set(msg.Text)

	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		return nil
	}
}
