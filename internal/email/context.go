package email

import (
	"context"
	"time"
)

// sendContext bounds one notification delivery. Booking and payment handlers
// return before the mail goes out, so the request's cancellation is dropped
// while its values (logger, request id) are kept.
func sendContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
