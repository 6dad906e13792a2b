package email

import "context"

// EmailSender delivers the plain-text booking and split-payment notices built
// by notify.EmailNotifier. SESClient is the production implementation; tests
// substitute an in-memory capture.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
	// SendFrom overrides the configured From address; an empty sender keeps it.
	SendFrom(ctx context.Context, recipient, subject, body, sender string) error
}
