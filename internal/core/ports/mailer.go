package ports

import "context"

// MailMessage is a single outgoing email.
type MailMessage struct {
	To       string
	FromName string
	Subject  string
	Text     string
	HTML     string
}

// Mailer delivers email through the configured transport.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
