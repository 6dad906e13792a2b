package split

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/models"
)

const participantPaymentMethod = "gateway"

// Checkout is a gateway checkout for one participant's share.
type Checkout struct {
	PaymentID         int64  `json:"payment_id"`
	ExternalReference string `json:"external_reference"`
	CheckoutURL       string `json:"checkout_url"`
	AmountCents       int64  `json:"amount_cents"`
}

// InitiateParticipantPayment opens a gateway checkout for a participant's
// share. An open checkout for the same share is returned as is. The pending
// payment row is committed before the gateway call so a webhook can always
// resolve the reference it carries.
func (o *Orchestrator) InitiateParticipantPayment(ctx context.Context, splitPaymentID, participantID int64) (Checkout, error) {
	if o.gateway == nil {
		return Checkout{}, fmt.Errorf("no gateway configured: %w", models.ErrGatewayUnavailable)
	}
	logger := log.Ctx(ctx).With().
		Str("component", "split_checkout").
		Int64("split_payment_id", splitPaymentID).
		Int64("participant_id", participantID).
		Logger()

	now := o.now()
	var (
		checkout Checkout
		existing bool
		outcome  Outcome
		plan     dbgen.SplitPayment
		booking  dbgen.Booking
	)
	err := o.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		var participant dbgen.SplitPaymentParticipant
		var err error
		plan, participant, err = loadShare(ctx, q, splitPaymentID, participantID)
		if err != nil {
			return err
		}
		var closed bool
		if outcome, closed, err = checkOpen(ctx, q, plan, now); err != nil || closed {
			return err
		}
		if !models.ParticipantStatus(participant.Status).IsPayable() {
			outcome = OutcomeNotPayable
			return nil
		}

		if participant.PaymentID.Valid {
			payment, err := q.GetPayment(ctx, participant.PaymentID.Int64)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("load participant payment: %w", err)
			}
			status := models.PaymentStatus(payment.Status)
			if err == nil && !status.IsTerminal() && payment.CheckoutUrl.Valid {
				checkout = Checkout{
					PaymentID:         payment.ID,
					ExternalReference: payment.ExternalReference.String,
					CheckoutURL:       payment.CheckoutUrl.String,
					AmountCents:       payment.AmountCents,
				}
				existing = true
				return nil
			}
		}

		booking, err = q.GetBooking(ctx, plan.BookingID)
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		ref := ExternalReference(plan.ID, participant.ID)
		payment, err := q.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:         plan.BookingID,
			AmountCents:       participant.AmountCents,
			Method:            participantPaymentMethod,
			Status:            string(models.PaymentPending),
			Note:              "split share",
			ExternalReference: sql.NullString{String: ref, Valid: true},
			Now:               now,
		})
		if err != nil {
			return fmt.Errorf("create participant payment: %w", err)
		}
		attached, err := q.AttachParticipantPayment(ctx, dbgen.AttachParticipantPaymentParams{
			PaymentID: sql.NullInt64{Int64: payment.ID, Valid: true},
			UpdatedAt: now,
			ID:        participant.ID,
		})
		if err != nil {
			return fmt.Errorf("attach participant payment: %w", err)
		}
		if attached == 0 {
			return models.ErrParticipantNotPayable
		}
		checkout = Checkout{PaymentID: payment.ID, ExternalReference: ref, AmountCents: payment.AmountCents}
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}
	if err := OutcomeError(outcome); err != nil {
		return Checkout{}, err
	}
	if existing {
		return checkout, nil
	}

	expiresAt := plan.ExpiresAt
	preference, err := o.gateway.CreatePreference(ctx, gateway.PreferenceRequest{
		ExternalReference: checkout.ExternalReference,
		NotificationURL:   o.opts.SplitNotificationURL,
		PayerEmail:        booking.ContactEmail.String,
		Items: []gateway.PreferenceItem{{
			Title:          fmt.Sprintf("Court booking #%d share", plan.BookingID),
			Quantity:       1,
			UnitPriceCents: checkout.AmountCents,
			Currency:       o.opts.Currency,
		}},
		ExpiresAt: &expiresAt,
	})
	if err != nil {
		logger.Error().Err(err).Int64("payment_id", checkout.PaymentID).Msg("Failed to create gateway checkout")
		if _, failErr := o.db.Queries.FailPayment(ctx, dbgen.FailPaymentParams{
			FailureReason: sql.NullString{String: err.Error(), Valid: true},
			UpdatedAt:     o.now(),
			ID:            checkout.PaymentID,
		}); failErr != nil {
			logger.Error().Err(failErr).Msg("Failed to mark checkout payment failed")
		}
		if errors.Is(err, models.ErrGatewayUnavailable) {
			return Checkout{}, err
		}
		return Checkout{}, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	if err := o.db.Queries.SetPaymentCheckout(ctx, dbgen.SetPaymentCheckoutParams{
		CheckoutUrl: sql.NullString{String: preference.InitPoint, Valid: preference.InitPoint != ""},
		UpdatedAt:   o.now(),
		ID:          checkout.PaymentID,
	}); err != nil {
		return Checkout{}, fmt.Errorf("store checkout url: %w", err)
	}
	checkout.CheckoutURL = preference.InitPoint
	logger.Info().Int64("payment_id", checkout.PaymentID).Msg("Participant checkout created")
	return checkout, nil
}
