package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

var ErrEmailNotConfigured = errors.New("email sender not configured")

type ResendEmailSender struct {
	client     *resend.Client
	From       string
	AppBaseURL string
	ResetPath  string
}

func NewResendEmailSender(apiKey string, from string, appBaseURL string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendEmailSender{}
	}
	return &ResendEmailSender{
		client:     resend.NewClient(apiKey),
		From:       from,
		AppBaseURL: strings.TrimRight(appBaseURL, "/"),
		ResetPath:  "/reset-password",
	}
}

func (s *ResendEmailSender) SendVerificationCode(ctx context.Context, email string, name string, code string) error {
	msg := verificationMessage(name, code)
	return s.send(ctx, email, msg)
}

func (s *ResendEmailSender) SendPasswordReset(ctx context.Context, email string, token string) error {
	msg := resetMessage(resetLink(s.AppBaseURL, s.ResetPath, token))
	return s.send(ctx, email, msg)
}

func (s *ResendEmailSender) send(ctx context.Context, to string, msg mailMessage) error {
	if s.client == nil {
		return ErrEmailNotConfigured
	}
	params := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.client.Emails.Send(params)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("resend: %w", err)
		}
		return nil
	}
}
