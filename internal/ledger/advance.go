package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/models"
)

// AdvanceOutcome describes what a gateway status update did to a payment.
type AdvanceOutcome string

const (
	AdvanceApplied        AdvanceOutcome = "applied"
	AdvanceStale          AdvanceOutcome = "stale"
	AdvanceOverpayment    AdvanceOutcome = "overpayment"
	AdvanceAmountMismatch AdvanceOutcome = "amount_mismatch"
)

type AdvanceResult struct {
	Outcome AdvanceOutcome
	Status  models.PaymentStatus
}

// Settled reports whether the payment now counts towards the ledger.
func (r AdvanceResult) Settled() bool {
	return r.Outcome == AdvanceApplied && r.Status == models.PaymentCompleted
}

// AdvanceTx moves payment to target with the gateway's canonical data. The
// move is guarded on the payment's current status and only ever goes up in
// rank, so a replayed or out-of-order update is reported as stale. A
// completion whose amount disagrees with the payment, or that would push
// the booking past what it owes, fails the payment instead.
func AdvanceTx(ctx context.Context, q dbgen.Querier, payment dbgen.Payment, target models.PaymentStatus, canonical gateway.Payment, now time.Time) (AdvanceResult, error) {
	current := models.PaymentStatus(payment.Status)
	if !current.CanAdvanceTo(target) {
		return AdvanceResult{Outcome: AdvanceStale, Status: current}, nil
	}

	outcome := AdvanceApplied
	var reason sql.NullString
	if target == models.PaymentCompleted {
		if canonical.AmountCents > 0 && canonical.AmountCents != payment.AmountCents {
			outcome = AdvanceAmountMismatch
			reason = sql.NullString{String: fmt.Sprintf("gateway amount %d does not match %d", canonical.AmountCents, payment.AmountCents), Valid: true}
		} else {
			booking, err := q.GetBooking(ctx, payment.BookingID)
			if err != nil {
				return AdvanceResult{}, fmt.Errorf("load booking: %w", err)
			}
			summary, err := Compute(ctx, q, booking)
			if err != nil {
				return AdvanceResult{}, err
			}
			if payment.AmountCents > summary.PendingCents {
				outcome = AdvanceOverpayment
				reason = sql.NullString{String: fmt.Sprintf("amount %d exceeds pending %d", payment.AmountCents, summary.PendingCents), Valid: true}
			}
		}
		if outcome != AdvanceApplied {
			target = models.PaymentFailed
			log.Ctx(ctx).Error().
				Str("component", "ledger").
				Int64("payment_id", payment.ID).
				Int64("booking_id", payment.BookingID).
				Str("external_payment_id", canonical.ID).
				Str("reason", reason.String).
				Msg("Gateway settled a payment the ledger cannot accept; refund it at the gateway")
		}
	}
	if target == models.PaymentFailed && !reason.Valid && canonical.StatusDetail != "" {
		reason = sql.NullString{String: canonical.StatusDetail, Valid: true}
	}

	updated, err := q.AdvancePaymentStatus(ctx, dbgen.AdvancePaymentStatusParams{
		Status:              string(target),
		ExternalPaymentID:   sql.NullString{String: canonical.ID, Valid: canonical.ID != ""},
		ExternalPaymentData: sql.NullString{String: string(canonical.Raw), Valid: len(canonical.Raw) > 0},
		FailureReason:       reason,
		UpdatedAt:           now,
		ID:                  payment.ID,
		FromStatus:          string(current),
	})
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("advance payment: %w", err)
	}
	if updated == 0 {
		return AdvanceResult{Outcome: AdvanceStale, Status: current}, nil
	}
	return AdvanceResult{Outcome: outcome, Status: target}, nil
}

// MarkUnpaidFailedTx flags the booking's payment status failed when nothing
// has been paid and no payment is still in flight.
func MarkUnpaidFailedTx(ctx context.Context, q dbgen.Querier, bookingID int64, now time.Time) error {
	booking, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking.PaymentStatus != string(models.LedgerPending) {
		return nil
	}
	open, err := q.SumOpenPayments(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("sum open payments: %w", err)
	}
	if open > 0 {
		return nil
	}
	return q.UpdateBookingPaymentStatus(ctx, dbgen.UpdateBookingPaymentStatusParams{
		PaymentStatus: string(models.LedgerFailed),
		UpdatedAt:     now,
		ID:            bookingID,
	})
}
