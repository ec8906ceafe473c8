package mailer

import "context"

// Email is a single transactional message.
type Email struct {
	ToName   string
	ToEmail  string
	Subject  string
	HTMLBody string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}
