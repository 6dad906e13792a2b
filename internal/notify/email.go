package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/email"
)

// EmailNotifier delivers events to the booking's contact address.
type EmailNotifier struct {
	sender   email.EmailSender
	currency string
}

func NewEmailNotifier(sender email.EmailSender, currency string) *EmailNotifier {
	return &EmailNotifier{sender: sender, currency: currency}
}

func (n *EmailNotifier) BookingConfirmed(ctx context.Context, event BookingEvent) {
	n.send(ctx, event.ContactEmail, email.BuildBookingConfirmed(n.details(event)))
}

func (n *EmailNotifier) BookingCancelled(ctx context.Context, event BookingEvent) {
	n.send(ctx, event.ContactEmail, email.BuildBookingCancelled(n.details(event)))
}

func (n *EmailNotifier) SplitPaymentCompleted(ctx context.Context, event SplitEvent) {
	n.send(ctx, event.Booking.ContactEmail, email.BuildSplitPaymentCompleted(n.details(event.Booking)))
}

func (n *EmailNotifier) send(ctx context.Context, recipient string, message email.Message) {
	if n == nil || recipient == "" {
		return
	}
	logger := log.Ctx(ctx)
	email.SendAsync(ctx, n.sender, recipient, message, logger)
}

func (n *EmailNotifier) details(event BookingEvent) email.BookingDetails {
	return email.BookingDetails{
		BookingID:   event.BookingID,
		CourtName:   event.CourtName,
		Date:        event.Date,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		CheckInCode: event.CheckInCode,
		AmountCents: event.AmountCents,
		Currency:    n.currency,
		Reason:      event.Reason,
	}
}
