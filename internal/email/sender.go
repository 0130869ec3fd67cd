package email

import "context"

// Sender provides a testable abstraction over SES delivery.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
	SendFrom(ctx context.Context, recipients []string, subject, body, sender string) error
}
