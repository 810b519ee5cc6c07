// Package mail delivers outbound email for the auth core. The only message
// kind today is the password-reset link.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// SMTPMailer implements session.Mailer over plain SMTP with optional AUTH.
type SMTPMailer struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

// NewSMTPMailerFromEnv builds an SMTPMailer from environment variables.
//
// Required:
//   - PROMODESK_SMTP_ADDR (host:port)
//   - PROMODESK_SMTP_FROM
//
// Optional:
//   - PROMODESK_SMTP_USER / PROMODESK_SMTP_PASS (enables PLAIN auth)
//
// Returns (nil, nil) when SMTP is not configured; callers fall back to the
// noop mailer.
func NewSMTPMailerFromEnv() (*SMTPMailer, error) {
	addr := strings.TrimSpace(os.Getenv("PROMODESK_SMTP_ADDR"))
	if addr == "" {
		return nil, nil
	}
	from := strings.TrimSpace(os.Getenv("PROMODESK_SMTP_FROM"))
	if from == "" {
		return nil, fmt.Errorf("mail: PROMODESK_SMTP_FROM required when SMTP is configured")
	}

	m := &SMTPMailer{addr: addr, from: from}

	user := strings.TrimSpace(os.Getenv("PROMODESK_SMTP_USER"))
	pass := os.Getenv("PROMODESK_SMTP_PASS")
	if user != "" {
		host := addr
		if i := strings.LastIndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		m.auth = smtp.PlainAuth("", user, pass, host)
	}

	return m, nil
}

// SendPasswordReset emails a reset link. The link embeds the signed token;
// neither the token nor the link is ever logged here.
func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, link string) error {
	subject := "Reset your promodesk password"
	body := fmt.Sprintf(
		"A password reset was requested for your promodesk account.\r\n\r\n"+
			"Open the link below within one hour to choose a new password:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, you can ignore this email.\r\n",
		link,
	)

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}
