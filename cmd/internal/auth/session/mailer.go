package session

import "context"

// Mailer delivers password-reset links. Delivery may fail independently of the
// reset flow's own persistence; the reset record is always saved before a send
// is attempted so a failed delivery can be retried via a resend.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// NoopMailer drops mail on the floor. Default until a provider is wired.
type NoopMailer struct{}

// SendPasswordReset implements Mailer.
func (NoopMailer) SendPasswordReset(_ context.Context, _, _ string) error { return nil }
