package email

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const dispatchTimeout = 10 * time.Second

func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	// Detach cancellation so handler-scoped contexts don't abort async sends.
	parent = context.WithoutCancel(parent)
	return context.WithTimeout(parent, timeout)
}

// Dispatch sends a message asynchronously. Delivery failures are logged and
// never surfaced to the caller: email is a side effect of an already
// committed state change, not part of it.
func Dispatch(ctx context.Context, sender Sender, recipients []string, msg Message, logger *zerolog.Logger) {
	if sender == nil || len(recipients) == 0 {
		return
	}
	if msg.Subject == "" || msg.Body == "" {
		return
	}

	go func() {
		sendCtx, cancel := newEmailContext(ctx, dispatchTimeout)
		defer cancel()
		if err := sender.Send(sendCtx, recipients, msg.Subject, msg.Body); err != nil && logger != nil {
			logger.Error().Err(err).Strs("recipients", recipients).Str("subject", msg.Subject).Msg("Failed to send email")
		}
	}()
}
