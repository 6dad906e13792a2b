package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/models"
)

const gatewayMethod = "gateway"

type InitiateParams struct {
	BookingID   int64
	// AmountCents of zero charges everything not already paid or in flight.
	AmountCents int64
	PayerEmail  string
}

// Checkout is a pending gateway payment and where to pay it.
type Checkout struct {
	PaymentID         int64  `json:"payment_id"`
	ExternalReference string `json:"external_reference"`
	CheckoutURL       string `json:"checkout_url"`
	AmountCents       int64  `json:"amount_cents"`
}

// InitiatePayment opens a gateway checkout for a full-payment booking. The
// pending payment row is committed first and its id is the external
// reference the gateway echoes back. A gateway failure marks the row failed.
func (l *Ledger) InitiatePayment(ctx context.Context, params InitiateParams) (Checkout, error) {
	if l.gateway == nil {
		return Checkout{}, fmt.Errorf("no gateway configured: %w", models.ErrGatewayUnavailable)
	}
	if params.AmountCents < 0 {
		return Checkout{}, fmt.Errorf("amount %d: %w", params.AmountCents, models.ErrInvalidPaymentAmount)
	}
	logger := log.Ctx(ctx).With().
		Str("component", "ledger_checkout").
		Int64("booking_id", params.BookingID).
		Logger()

	now := l.now()
	var (
		checkout Checkout
		booking  dbgen.Booking
	)
	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		var err error
		booking, err = loadPayableBooking(ctx, q, params.BookingID)
		if err != nil {
			return err
		}
		if booking.PaymentType == string(models.PaymentTypeSplit) {
			return models.Invalid("booking_id", "is paid through its split payment")
		}
		summary, err := Compute(ctx, q, booking)
		if err != nil {
			return err
		}
		open, err := q.SumOpenPayments(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("sum open payments: %w", err)
		}
		available := summary.PendingCents - open
		amount := params.AmountCents
		if amount == 0 {
			amount = available
		}
		if amount <= 0 || amount > available {
			return fmt.Errorf("amount %d with %d chargeable: %w", amount, available, models.ErrInvalidPaymentAmount)
		}

		payment, err := q.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:   booking.ID,
			AmountCents: amount,
			Method:      gatewayMethod,
			Status:      string(models.PaymentPending),
			Now:         now,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		ref := strconv.FormatInt(payment.ID, 10)
		if err := q.SetPaymentExternalReference(ctx, dbgen.SetPaymentExternalReferenceParams{
			ExternalReference: sql.NullString{String: ref, Valid: true},
			UpdatedAt:         now,
			ID:                payment.ID,
		}); err != nil {
			return fmt.Errorf("set external reference: %w", err)
		}
		checkout = Checkout{PaymentID: payment.ID, ExternalReference: ref, AmountCents: amount}
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}

	payer := params.PayerEmail
	if payer == "" && booking.ContactEmail.Valid {
		payer = booking.ContactEmail.String
	}
	preference, err := l.gateway.CreatePreference(ctx, gateway.PreferenceRequest{
		ExternalReference: checkout.ExternalReference,
		NotificationURL:   l.opts.NotificationURL,
		PayerEmail:        payer,
		Items: []gateway.PreferenceItem{{
			Title:          fmt.Sprintf("Court booking #%d", booking.ID),
			Quantity:       1,
			UnitPriceCents: checkout.AmountCents,
			Currency:       l.opts.Currency,
		}},
	})
	if err != nil {
		logger.Error().Err(err).Int64("payment_id", checkout.PaymentID).Msg("Failed to create gateway checkout")
		if _, failErr := l.db.Queries.FailPayment(ctx, dbgen.FailPaymentParams{
			FailureReason: sql.NullString{String: err.Error(), Valid: true},
			UpdatedAt:     l.now(),
			ID:            checkout.PaymentID,
		}); failErr != nil {
			logger.Error().Err(failErr).Msg("Failed to mark checkout payment failed")
		}
		if errors.Is(err, models.ErrGatewayUnavailable) {
			return Checkout{}, err
		}
		return Checkout{}, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	if err := l.db.Queries.SetPaymentCheckout(ctx, dbgen.SetPaymentCheckoutParams{
		CheckoutUrl: sql.NullString{String: preference.InitPoint, Valid: preference.InitPoint != ""},
		UpdatedAt:   l.now(),
		ID:          checkout.PaymentID,
	}); err != nil {
		return Checkout{}, fmt.Errorf("store checkout url: %w", err)
	}
	checkout.CheckoutURL = preference.InitPoint
	logger.Info().Int64("payment_id", checkout.PaymentID).Int64("amount_cents", checkout.AmountCents).Msg("Checkout created")
	return checkout, nil
}

// PaymentView is a payment with its booking's ledger.
type PaymentView struct {
	ID            int64    `json:"id"`
	BookingID     int64    `json:"booking_id"`
	AmountCents   int64    `json:"amount_cents"`
	Method        string   `json:"method"`
	Status        string   `json:"status"`
	IsDeposit     bool     `json:"is_deposit"`
	ExternalID    string   `json:"external_payment_id,omitempty"`
	CheckoutURL   string   `json:"checkout_url,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
	RefundedCents int64    `json:"refunded_cents,omitempty"`
	BookingLedger *Summary `json:"booking_ledger,omitempty"`
}

// PaymentStatus returns a payment with its booking's current ledger.
func (l *Ledger) PaymentStatus(ctx context.Context, paymentID int64) (PaymentView, error) {
	payment, err := l.db.Queries.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PaymentView{}, fmt.Errorf("payment %d: %w", paymentID, models.ErrNotFound)
		}
		return PaymentView{}, fmt.Errorf("load payment: %w", err)
	}
	summary, err := l.Summary(ctx, payment.BookingID)
	if err != nil {
		return PaymentView{}, err
	}
	view := NewPaymentView(payment)
	view.BookingLedger = &summary
	return view, nil
}

func NewPaymentView(payment dbgen.Payment) PaymentView {
	return PaymentView{
		ID:            payment.ID,
		BookingID:     payment.BookingID,
		AmountCents:   payment.AmountCents,
		Method:        payment.Method,
		Status:        payment.Status,
		IsDeposit:     payment.IsDeposit,
		ExternalID:    payment.ExternalPaymentID.String,
		CheckoutURL:   payment.CheckoutUrl.String,
		FailureReason: payment.FailureReason.String,
		RefundedCents: payment.RefundedAmountCents.Int64,
	}
}
