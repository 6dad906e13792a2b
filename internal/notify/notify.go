// Package notify emits fire-and-forget booking notifications. Delivery
// failures are logged by the notifier and never reach the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/courtledger/internal/db/generated"
)

type BookingEvent struct {
	BookingID    int64
	CourtID      int64
	CourtName    string
	Date         string
	StartTime    string
	EndTime      string
	CheckInCode  string
	ContactEmail string
	AmountCents  int64
	Reason       string
}

// EventFromBooking copies the fields notifications need out of a stored booking.
func EventFromBooking(b dbgen.Booking) BookingEvent {
	event := BookingEvent{
		BookingID:   b.ID,
		CourtID:     b.CourtID,
		Date:        b.BookingDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		CheckInCode: b.CheckInCode,
		AmountCents: b.TotalAmountCents,
	}
	if b.ContactEmail.Valid {
		event.ContactEmail = b.ContactEmail.String
	}
	if b.CancellationReason.Valid {
		event.Reason = b.CancellationReason.String
	}
	return event
}

type SplitEvent struct {
	SplitPaymentID int64
	Booking        BookingEvent
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, event BookingEvent)
	BookingCancelled(ctx context.Context, event BookingEvent)
	SplitPaymentCompleted(ctx context.Context, event SplitEvent)
}

// LogNotifier records events in the request log. It is the fallback when e-mail is disabled.
type LogNotifier struct{}

func (LogNotifier) BookingConfirmed(ctx context.Context, event BookingEvent) {
	log.Ctx(ctx).Info().Int64("booking_id", event.BookingID).Msg("Booking confirmed")
}

func (LogNotifier) BookingCancelled(ctx context.Context, event BookingEvent) {
	log.Ctx(ctx).Info().Int64("booking_id", event.BookingID).Str("reason", event.Reason).Msg("Booking cancelled")
}

func (LogNotifier) SplitPaymentCompleted(ctx context.Context, event SplitEvent) {
	log.Ctx(ctx).Info().
		Int64("split_payment_id", event.SplitPaymentID).
		Int64("booking_id", event.Booking.BookingID).
		Msg("Split payment completed")
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) BookingConfirmed(ctx context.Context, event BookingEvent) {
	for _, n := range m {
		n.BookingConfirmed(ctx, event)
	}
}

func (m Multi) BookingCancelled(ctx context.Context, event BookingEvent) {
	for _, n := range m {
		n.BookingCancelled(ctx, event)
	}
}

func (m Multi) SplitPaymentCompleted(ctx context.Context, event SplitEvent) {
	for _, n := range m {
		n.SplitPaymentCompleted(ctx, event)
	}
}
