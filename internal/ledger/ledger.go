// Package ledger keeps the money model of a single booking: what is owed,
// what has been paid, and the payment status derived from the two.
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
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
)

// Summary is the ledger of one booking in cents.
type Summary struct {
	BookingID        int64               `json:"booking_id"`
	BookingCents     int64               `json:"booking_cents"`
	ConsumptionCents int64               `json:"consumption_cents"`
	TotalOwedCents   int64               `json:"total_owed_cents"`
	DepositCents     int64               `json:"deposit_cents"`
	DeclaredCents    int64               `json:"declared_cents"`
	PendingCents     int64               `json:"pending_cents"`
	Status           models.LedgerStatus `json:"status"`
}

func (s Summary) PaidCents() int64 {
	return s.DepositCents + s.DeclaredCents
}

// Compute derives the ledger for booking from its completed payments and
// consumption charges. Run it on the transaction that will act on the result.
func Compute(ctx context.Context, q dbgen.Querier, booking dbgen.Booking) (Summary, error) {
	consumptions, err := q.SumConsumptionsForBooking(ctx, booking.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("sum consumptions: %w", err)
	}
	paid, err := q.SumCompletedPayments(ctx, booking.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("sum payments: %w", err)
	}

	summary := Summary{
		BookingID:        booking.ID,
		BookingCents:     booking.TotalAmountCents,
		ConsumptionCents: consumptions,
		TotalOwedCents:   booking.TotalAmountCents + consumptions,
		DepositCents:     paid.DepositCents,
		DeclaredCents:    paid.DeclaredCents,
	}
	summary.PendingCents = max(0, summary.TotalOwedCents-summary.PaidCents())

	switch {
	case summary.PendingCents == 0:
		summary.Status = models.LedgerCompleted
	case summary.PaidCents() > 0:
		summary.Status = models.LedgerPartial
	default:
		summary.Status = models.LedgerPending
	}
	return summary, nil
}

// SyncTx recomputes the ledger and stores the derived payment status on the
// booking. A fully paid pending booking is confirmed; confirmed reports that.
// Refunded bookings keep their status.
func SyncTx(ctx context.Context, q dbgen.Querier, bookingID int64, now time.Time) (summary Summary, confirmed bool, err error) {
	booking, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, false, fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
		}
		return Summary{}, false, fmt.Errorf("load booking: %w", err)
	}
	summary, err = Compute(ctx, q, booking)
	if err != nil {
		return Summary{}, false, err
	}
	if booking.PaymentStatus == string(models.LedgerRefunded) {
		summary.Status = models.LedgerRefunded
		return summary, false, nil
	}

	if summary.Status == models.LedgerCompleted {
		updated, err := q.ConfirmPaidBooking(ctx, dbgen.ConfirmPaidBookingParams{Now: now, ID: bookingID})
		if err != nil {
			return Summary{}, false, fmt.Errorf("confirm booking: %w", err)
		}
		if updated > 0 {
			return summary, booking.Status == string(models.BookingPending), nil
		}
	}
	if booking.PaymentStatus == string(summary.Status) {
		return summary, false, nil
	}
	if err := q.UpdateBookingPaymentStatus(ctx, dbgen.UpdateBookingPaymentStatusParams{
		PaymentStatus: string(summary.Status),
		UpdatedAt:     now,
		ID:            bookingID,
	}); err != nil {
		return Summary{}, false, fmt.Errorf("update payment status: %w", err)
	}
	return summary, false, nil
}

type Options struct {
	Currency        string
	NotificationURL string
}

// Ledger runs ledger operations that own their transaction.
type Ledger struct {
	db       *db.DB
	gateway  gateway.Client
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
}

func New(database *db.DB, gw gateway.Client, notifier notify.Notifier, m *metrics.Metrics, opts Options) (*Ledger, error) {
	if database == nil {
		return nil, errors.New("ledger requires a database")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Ledger{
		db:       database,
		gateway:  gw,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Summary returns the current ledger of a booking.
func (l *Ledger) Summary(ctx context.Context, bookingID int64) (Summary, error) {
	booking, err := l.db.Queries.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
		}
		return Summary{}, fmt.Errorf("load booking: %w", err)
	}
	summary, err := Compute(ctx, l.db.Queries, booking)
	if err != nil {
		return Summary{}, err
	}
	if booking.PaymentStatus == string(models.LedgerRefunded) {
		summary.Status = models.LedgerRefunded
	}
	return summary, nil
}

type RegisterParams struct {
	BookingID   int64
	AmountCents int64
	Method      string
	Note        string
}

// RegisterPayment records a declared payment. The amount is checked against
// the pending amount on the same transaction as the insert, so concurrent
// declarations cannot jointly exceed what is owed.
func (l *Ledger) RegisterPayment(ctx context.Context, params RegisterParams) (dbgen.Payment, Summary, error) {
	method := strings.TrimSpace(params.Method)
	if method == "" {
		return dbgen.Payment{}, Summary{}, models.Invalid("method", "is required")
	}
	if params.AmountCents <= 0 {
		return dbgen.Payment{}, Summary{}, fmt.Errorf("amount %d: %w", params.AmountCents, models.ErrInvalidPaymentAmount)
	}

	now := l.now()
	var (
		payment   dbgen.Payment
		summary   Summary
		confirmed bool
		booking   dbgen.Booking
	)
	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		var err error
		booking, err = loadPayableBooking(ctx, q, params.BookingID)
		if err != nil {
			return err
		}
		current, err := Compute(ctx, q, booking)
		if err != nil {
			return err
		}
		if params.AmountCents > current.PendingCents {
			return fmt.Errorf("amount %d exceeds pending %d: %w", params.AmountCents, current.PendingCents, models.ErrInvalidPaymentAmount)
		}
		payment, err = q.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:   booking.ID,
			AmountCents: params.AmountCents,
			Method:      method,
			Status:      string(models.PaymentCompleted),
			Note:        strings.TrimSpace(params.Note),
			Now:         now,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		summary, confirmed, err = SyncTx(ctx, q, booking.ID, now)
		if err != nil {
			return err
		}
		if confirmed {
			booking, err = q.GetBooking(ctx, booking.ID)
		}
		return err
	})
	if err != nil {
		return dbgen.Payment{}, Summary{}, err
	}

	l.metrics.PaymentRecorded(method)
	log.Ctx(ctx).Info().
		Str("component", "ledger").
		Int64("booking_id", booking.ID).
		Int64("payment_id", payment.ID).
		Int64("amount_cents", payment.AmountCents).
		Int64("pending_cents", summary.PendingCents).
		Msg("Payment registered")
	if confirmed {
		l.notifier.BookingConfirmed(ctx, notify.EventFromBooking(booking))
	}
	return payment, summary, nil
}

// loadPayableBooking returns the booking unless it can no longer take payments.
func loadPayableBooking(ctx context.Context, q dbgen.Querier, bookingID int64) (dbgen.Booking, error) {
	booking, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Booking{}, fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
		}
		return dbgen.Booking{}, fmt.Errorf("load booking: %w", err)
	}
	if booking.Status == string(models.BookingCancelled) {
		return dbgen.Booking{}, fmt.Errorf("booking %d: %w", bookingID, models.ErrAlreadyCancelled)
	}
	if booking.PaymentStatus == string(models.LedgerRefunded) {
		return dbgen.Booking{}, fmt.Errorf("booking %d was refunded: %w", bookingID, models.ErrInvalidPaymentAmount)
	}
	return booking, nil
}
