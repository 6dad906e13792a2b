package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
)

type RefundParams struct {
	PaymentID   int64
	// AmountCents of zero refunds the whole payment.
	AmountCents int64
	Reason      string
	ActorID     int64
}

type RefundResult struct {
	Payment         dbgen.Payment `json:"payment"`
	Booking         dbgen.Booking `json:"-"`
	RefundedCents   int64         `json:"refunded_cents"`
	GatewayRefundID string        `json:"gateway_refund_id,omitempty"`
}

// Refund returns money for a completed payment. A refund cancels the booking
// and any open split plan. Payments settled through the gateway are refunded
// there first; if that fails nothing is written. The refund is claimed before
// the gateway call, so concurrent requests for one payment reach the gateway
// at most once.
func (l *Ledger) Refund(ctx context.Context, params RefundParams) (RefundResult, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "ledger_refund").
		Int64("payment_id", params.PaymentID).
		Logger()

	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		reason = "refunded"
	}
	actor := sql.NullInt64{Int64: params.ActorID, Valid: params.ActorID > 0}

	var (
		payment dbgen.Payment
		amount  int64
	)
	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		var err error
		payment, err = q.GetPayment(ctx, params.PaymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("payment %d: %w", params.PaymentID, models.ErrNotFound)
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if payment.Status != string(models.PaymentCompleted) {
			return fmt.Errorf("payment %d is %s: %w", payment.ID, payment.Status, models.ErrRefundNotAllowed)
		}
		amount = params.AmountCents
		if amount == 0 {
			amount = payment.AmountCents
		}
		if amount < 0 || amount > payment.AmountCents {
			return fmt.Errorf("refund %d of %d: %w", amount, payment.AmountCents, models.ErrInvalidPaymentAmount)
		}
		claimed, err := q.ClaimPaymentRefund(ctx, dbgen.ClaimPaymentRefundParams{
			PaymentID:   payment.ID,
			AmountCents: amount,
			ClaimedBy:   actor,
			ClaimedAt:   l.now(),
		})
		if err != nil {
			return fmt.Errorf("claim refund: %w", err)
		}
		if claimed == 0 {
			return fmt.Errorf("payment %d already has a refund in progress: %w", payment.ID, models.ErrRefundNotAllowed)
		}
		return nil
	})
	if err != nil {
		return RefundResult{}, err
	}

	result := RefundResult{RefundedCents: amount}
	if payment.ExternalPaymentID.Valid {
		if l.gateway == nil {
			l.releaseRefundClaim(ctx, payment.ID)
			return RefundResult{}, fmt.Errorf("no gateway configured: %w", models.ErrGatewayUnavailable)
		}
		refund, err := l.gateway.Refund(ctx, payment.ExternalPaymentID.String, amount)
		if err != nil {
			logger.Error().Err(err).Msg("Gateway refund failed")
			l.releaseRefundClaim(ctx, payment.ID)
			if errors.Is(err, models.ErrGatewayUnavailable) {
				return RefundResult{}, err
			}
			return RefundResult{}, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
		}
		result.GatewayRefundID = refund.ID
	}

	now := l.now()
	err = l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		refunded, err := q.RefundPayment(ctx, dbgen.RefundPaymentParams{
			RefundedAmountCents: sql.NullInt64{Int64: amount, Valid: true},
			RefundReason:        sql.NullString{String: reason, Valid: true},
			RefundedBy:          actor,
			RefundedAt:          now,
			ID:                  payment.ID,
		})
		if err != nil {
			return fmt.Errorf("refund payment: %w", err)
		}
		if refunded == 0 {
			return fmt.Errorf("payment %d changed state: %w", payment.ID, models.ErrRefundNotAllowed)
		}
		if err := q.CompletePaymentRefundClaim(ctx, dbgen.CompletePaymentRefundClaimParams{
			GatewayRefundID: sql.NullString{String: result.GatewayRefundID, Valid: result.GatewayRefundID != ""},
			CompletedAt:     sql.NullTime{Time: now, Valid: true},
			PaymentID:       payment.ID,
		}); err != nil {
			return fmt.Errorf("complete refund claim: %w", err)
		}
		if err := q.MarkBookingRefunded(ctx, dbgen.MarkBookingRefundedParams{
			Reason:      sql.NullString{String: reason, Valid: true},
			CancelledBy: actor,
			Now:         now,
			ID:          payment.BookingID,
		}); err != nil {
			return fmt.Errorf("mark booking refunded: %w", err)
		}
		if _, err := CancelSplitPlanTx(ctx, q, payment.BookingID, now); err != nil {
			return err
		}
		if result.Payment, err = q.GetPayment(ctx, payment.ID); err != nil {
			return fmt.Errorf("reload payment: %w", err)
		}
		result.Booking, err = q.GetBooking(ctx, payment.BookingID)
		return err
	})
	if err != nil {
		if result.GatewayRefundID != "" {
			// The claim stays so a retry cannot refund at the gateway again.
			logger.Error().Err(err).Str("gateway_refund_id", result.GatewayRefundID).Msg("Gateway refunded but ledger write failed")
		} else {
			l.releaseRefundClaim(ctx, payment.ID)
		}
		return RefundResult{}, err
	}

	l.metrics.Refunded()
	logger.Info().Int64("booking_id", payment.BookingID).Int64("amount_cents", amount).Msg("Payment refunded")
	l.notifier.BookingCancelled(ctx, notify.EventFromBooking(result.Booking))
	return result, nil
}

// releaseRefundClaim lets a later request retry a refund that moved no money.
func (l *Ledger) releaseRefundClaim(ctx context.Context, paymentID int64) {
	if err := l.db.Queries.ReleasePaymentRefundClaim(context.WithoutCancel(ctx), paymentID); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("payment_id", paymentID).Msg("Failed to release refund claim")
	}
}

// CancelSplitPlanTx cancels the booking's open split plan and its unpaid shares.
// It reports whether a plan was cancelled.
func CancelSplitPlanTx(ctx context.Context, q dbgen.Querier, bookingID int64, now time.Time) (bool, error) {
	plan, err := q.GetSplitPaymentByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load split payment: %w", err)
	}
	cancelled, err := q.CancelSplitPayment(ctx, dbgen.CancelSplitPaymentParams{UpdatedAt: now, ID: plan.ID})
	if err != nil {
		return false, fmt.Errorf("cancel split payment: %w", err)
	}
	if cancelled == 0 {
		return false, nil
	}
	if _, err := q.CancelOpenSplitParticipants(ctx, dbgen.CancelOpenSplitParticipantsParams{
		UpdatedAt:      now,
		SplitPaymentID: plan.ID,
	}); err != nil {
		return false, fmt.Errorf("cancel split participants: %w", err)
	}
	return true, nil
}
