package service

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

type mailMessage struct {
	Subject string
	HTML    string
	Text    string
}

func verificationMessage(name string, code string) mailMessage {
	greeting := "Hi"
	if strings.TrimSpace(name) != "" {
		greeting = "Hi " + strings.TrimSpace(name)
	}
	return mailMessage{
		Subject: "Your Jobly verification code",
		HTML: fmt.Sprintf(
			"<p>%s,</p><p>Your verification code is <strong>%s</strong>. It expires in 15 minutes.</p>",
			html.EscapeString(greeting), code,
		),
		Text: fmt.Sprintf("%s,\n\nYour verification code is %s. It expires in 15 minutes.\n", greeting, code),
	}
}

func resetMessage(link string) mailMessage {
	return mailMessage{
		Subject: "Reset your Jobly password",
		HTML: fmt.Sprintf(
			"<p>Click to reset your password:</p><p><a href=\"%s\">Reset Password</a></p><p>The link expires in one hour.</p>",
			html.EscapeString(link),
		),
		Text: fmt.Sprintf("Reset your password: %s\nThe link expires in one hour.\n", link),
	}
}

func resetLink(base string, path string, token string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return token
	}
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s%s?token=%s", base, path, url.QueryEscape(token))
}
