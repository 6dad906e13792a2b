package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/gateway/gatewaytest"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
	"github.com/codr1/courtledger/internal/testutil"
)

type ledgerFixture struct {
	db       *db.DB
	facility testutil.Facility
	booking  dbgen.Booking
	ledger   *Ledger
	gateway  *gatewaytest.Fake
	recorder *notify.Recorder
}

func newLedgerFixture(t *testing.T, totalCents int64) *ledgerFixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database, "UTC", totalCents)
	booking := testutil.SeedBooking(t, database, facility, testutil.BookingSeed{TotalCents: totalCents, ContactEmail: "player@example.com"})
	fake := gatewaytest.New()
	recorder := &notify.Recorder{}
	l, err := New(database, fake, recorder, nil, Options{Currency: "USD", NotificationURL: "https://courts.test/payments/webhook"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &ledgerFixture{db: database, facility: facility, booking: booking, ledger: l, gateway: fake, recorder: recorder}
}

func (f *ledgerFixture) reloadBooking(t *testing.T) dbgen.Booking {
	t.Helper()
	booking, err := f.db.Queries.GetBooking(context.Background(), f.booking.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	return booking
}

func TestComputeIncludesConsumptionsAndDeposit(t *testing.T) {
	f := newLedgerFixture(t, 4000)
	ctx := context.Background()
	testutil.SeedConsumption(t, f.db, f.booking.ID, "balls", 500)
	if _, err := f.db.Queries.CreatePayment(ctx, dbgen.CreatePaymentParams{
		BookingID: f.booking.ID, AmountCents: 1000, Method: "cash", Status: string(models.PaymentCompleted), IsDeposit: true, Now: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := f.db.Queries.CreatePayment(ctx, dbgen.CreatePaymentParams{
		BookingID: f.booking.ID, AmountCents: 700, Method: "card", Status: string(models.PaymentFailed), Now: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	summary, err := Compute(ctx, f.db.Queries, f.booking)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := Summary{
		BookingID:        f.booking.ID,
		BookingCents:     4000,
		ConsumptionCents: 500,
		TotalOwedCents:   4500,
		DepositCents:     1000,
		DeclaredCents:    0,
		PendingCents:     3500,
		Status:           models.LedgerPartial,
	}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestRegisterPaymentRejectsOverPending(t *testing.T) {
	f := newLedgerFixture(t, 3000)
	ctx := context.Background()

	if _, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 1000, Method: "cash"}); err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	summary, err := f.ledger.Summary(ctx, f.booking.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	tests := []struct {
		name   string
		amount int64
		method string
		want   error
	}{
		{"pending plus one", summary.PendingCents + 1, "cash", models.ErrInvalidPaymentAmount},
		{"zero", 0, "cash", models.ErrInvalidPaymentAmount},
		{"negative", -5, "cash", models.ErrInvalidPaymentAmount},
		{"missing method", 100, " ", models.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: tc.amount, Method: tc.method})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if booking := f.reloadBooking(t); booking.PaymentStatus != string(models.LedgerPartial) {
		t.Fatalf("payment status = %s, want partial", booking.PaymentStatus)
	}
}

func TestRegisterPaymentSettlesAndConfirms(t *testing.T) {
	f := newLedgerFixture(t, 2000)

	_, summary, err := f.ledger.RegisterPayment(context.Background(), RegisterParams{BookingID: f.booking.ID, AmountCents: 2000, Method: "cash", Note: "front desk"})
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	if summary.PendingCents != 0 || summary.Status != models.LedgerCompleted {
		t.Fatalf("summary = %+v", summary)
	}
	booking := f.reloadBooking(t)
	if booking.Status != string(models.BookingConfirmed) || booking.PaymentStatus != string(models.LedgerCompleted) || !booking.ConfirmedAt.Valid {
		t.Fatalf("booking = %s/%s", booking.Status, booking.PaymentStatus)
	}
	if confirmed, _, _ := f.recorder.Counts(); confirmed != 1 {
		t.Fatalf("confirmed notifications = %d, want 1", confirmed)
	}
}

func TestRegisterPaymentConcurrentStaysWithinTotal(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 300, Method: "cash"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, models.ErrInvalidPaymentAmount):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("succeeded = %d, want 3", succeeded)
	}
	summary, err := f.ledger.Summary(ctx, f.booking.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.PaidCents() != 900 || summary.PaidCents() > summary.TotalOwedCents {
		t.Fatalf("paid = %d of %d", summary.PaidCents(), summary.TotalOwedCents)
	}
}

func TestRegisterPaymentOnCancelledBooking(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	if _, err := f.db.Queries.CancelBooking(ctx, dbgen.CancelBookingParams{
		CancellationReason: sql.NullString{String: "rain", Valid: true},
		CancelledAt:        sql.NullTime{Time: time.Now().UTC(), Valid: true},
		ID:                 f.booking.ID,
		FromStatus:         string(models.BookingPending),
	}); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	_, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 100, Method: "cash"})
	if !errors.Is(err, models.ErrAlreadyCancelled) {
		t.Fatalf("err = %v, want ErrAlreadyCancelled", err)
	}
}

func TestRefund(t *testing.T) {
	f := newLedgerFixture(t, 1500)
	ctx := context.Background()
	payment, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 1500, Method: "cash"})
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}

	if _, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID, AmountCents: 1600}); !errors.Is(err, models.ErrInvalidPaymentAmount) {
		t.Fatalf("oversized refund err = %v", err)
	}

	result, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID, Reason: "court flooded", ActorID: 9})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if result.RefundedCents != 1500 || result.Payment.Status != string(models.PaymentRefunded) {
		t.Fatalf("refund result = %+v", result)
	}
	if len(f.gateway.Refunds) != 0 {
		t.Fatalf("cash refund reached the gateway: %v", f.gateway.Refunds)
	}
	booking := f.reloadBooking(t)
	if booking.Status != string(models.BookingCancelled) || booking.PaymentStatus != string(models.LedgerRefunded) {
		t.Fatalf("booking = %s/%s", booking.Status, booking.PaymentStatus)
	}
	if booking.CancellationReason.String != "court flooded" {
		t.Fatalf("cancellation reason = %q", booking.CancellationReason.String)
	}
	if _, cancelled, _ := f.recorder.Counts(); cancelled != 1 {
		t.Fatalf("cancelled notifications = %d", cancelled)
	}

	if _, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID}); !errors.Is(err, models.ErrRefundNotAllowed) {
		t.Fatalf("second refund err = %v, want ErrRefundNotAllowed", err)
	}
}

func TestRefundThroughGateway(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	checkout, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	payment, err := f.db.Queries.GetPayment(ctx, checkout.PaymentID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	f.gateway.SetPayment("mp-1", gateway.StatusApproved, checkout.ExternalReference, 1000)
	canonical, _ := f.gateway.GetPayment(ctx, "mp-1")
	if _, err := AdvanceTx(ctx, f.db.Queries, payment, models.PaymentCompleted, canonical, time.Now().UTC()); err != nil {
		t.Fatalf("AdvanceTx: %v", err)
	}

	f.gateway.Err = models.ErrGatewayUnavailable
	if _, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID}); !errors.Is(err, models.ErrGatewayUnavailable) {
		t.Fatalf("refund with gateway down err = %v", err)
	}
	if p, _ := f.db.Queries.GetPayment(ctx, payment.ID); p.Status != string(models.PaymentCompleted) {
		t.Fatalf("payment status after failed refund = %s", p.Status)
	}

	f.gateway.Err = nil
	result, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID, AmountCents: 400})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if result.GatewayRefundID == "" || len(f.gateway.Refunds) != 1 || f.gateway.Refunds[0] != "mp-1" {
		t.Fatalf("gateway refunds = %v", f.gateway.Refunds)
	}
}

func TestRefundConcurrentRequestsReachGatewayOnce(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	checkout, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	payment, err := f.db.Queries.GetPayment(ctx, checkout.PaymentID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	f.gateway.SetPayment("mp-2", gateway.StatusApproved, checkout.ExternalReference, 1000)
	canonical, _ := f.gateway.GetPayment(ctx, "mp-2")
	if _, err := AdvanceTx(ctx, f.db.Queries, payment, models.PaymentCompleted, canonical, time.Now().UTC()); err != nil {
		t.Fatalf("AdvanceTx: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID, Reason: "double click"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, models.ErrRefundNotAllowed):
				t.Errorf("Refund: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("successful refunds = %d, want 1", succeeded)
	}
	if len(f.gateway.Refunds) != 1 {
		t.Fatalf("gateway refunds = %v, want exactly one", f.gateway.Refunds)
	}
	var refundID sql.NullString
	if err := f.db.QueryRowContext(ctx,
		"SELECT gateway_refund_id FROM payment_refund_claims WHERE payment_id = ?", payment.ID,
	).Scan(&refundID); err != nil {
		t.Fatalf("load refund claim: %v", err)
	}
	if !refundID.Valid || refundID.String == "" {
		t.Fatalf("refund claim has no gateway refund id")
	}
}

func TestRefundCancelsOpenSplitPlan(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	splitID := testutil.SeedSplitPlan(t, f.db, f.booking.ID, 1000, 2)
	payment, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 500, Method: "cash"})
	if err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}

	if _, err := f.ledger.Refund(ctx, RefundParams{PaymentID: payment.ID}); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	got, err := f.db.Queries.GetSplitPayment(ctx, splitID)
	if err != nil {
		t.Fatalf("GetSplitPayment: %v", err)
	}
	if got.Status != string(models.SplitCancelled) {
		t.Fatalf("split status = %s, want cancelled", got.Status)
	}
}

func TestInitiatePayment(t *testing.T) {
	f := newLedgerFixture(t, 2500)
	ctx := context.Background()

	checkout, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID, AmountCents: 1000})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if checkout.CheckoutURL == "" || checkout.AmountCents != 1000 {
		t.Fatalf("checkout = %+v", checkout)
	}
	pref := f.gateway.Preferences[0]
	if pref.ExternalReference != checkout.ExternalReference || pref.PayerEmail != "player@example.com" || pref.Items[0].Currency != "USD" {
		t.Fatalf("preference = %+v", pref)
	}

	// 1500 remains chargeable while the first checkout is open.
	if _, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID, AmountCents: 1600}); !errors.Is(err, models.ErrInvalidPaymentAmount) {
		t.Fatalf("over-open err = %v", err)
	}
	rest, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID})
	if err != nil {
		t.Fatalf("InitiatePayment rest: %v", err)
	}
	if rest.AmountCents != 1500 {
		t.Fatalf("rest amount = %d, want 1500", rest.AmountCents)
	}
}

func TestInitiatePaymentGatewayFailureMarksFailed(t *testing.T) {
	f := newLedgerFixture(t, 2500)
	ctx := context.Background()
	f.gateway.Err = errors.New("connection reset")

	_, err := f.ledger.InitiatePayment(ctx, InitiateParams{BookingID: f.booking.ID})
	if !errors.Is(err, models.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	payments, err := f.db.Queries.ListPaymentsForBooking(ctx, f.booking.ID)
	if err != nil {
		t.Fatalf("ListPaymentsForBooking: %v", err)
	}
	if len(payments) != 1 || payments[0].Status != string(models.PaymentFailed) || payments[0].FailureReason.String != "connection reset" {
		t.Fatalf("payments = %+v", payments)
	}
}

func TestAdvanceTxIsMonotonic(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	now := time.Now().UTC()
	payment, err := f.db.Queries.CreatePayment(ctx, dbgen.CreatePaymentParams{
		BookingID: f.booking.ID, AmountCents: 1000, Method: "gateway", Status: string(models.PaymentPending), Now: now,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	canonical := gateway.Payment{ID: "mp-9", Status: gateway.StatusApproved, AmountCents: 1000, Raw: []byte(`{"id":"mp-9"}`)}

	result, err := AdvanceTx(ctx, f.db.Queries, payment, models.PaymentCompleted, canonical, now)
	if err != nil || !result.Settled() {
		t.Fatalf("first advance = %+v, %v", result, err)
	}
	payment, _ = f.db.Queries.GetPayment(ctx, payment.ID)
	if payment.ExternalPaymentID.String != "mp-9" || payment.ExternalPaymentData.String != `{"id":"mp-9"}` {
		t.Fatalf("payment gateway fields = %+v", payment)
	}

	for _, target := range []models.PaymentStatus{models.PaymentProcessing, models.PaymentFailed, models.PaymentCompleted} {
		result, err := AdvanceTx(ctx, f.db.Queries, payment, target, canonical, now)
		if err != nil {
			t.Fatalf("AdvanceTx(%s): %v", target, err)
		}
		if result.Outcome != AdvanceStale {
			t.Fatalf("AdvanceTx(%s) outcome = %s, want stale", target, result.Outcome)
		}
	}
}

func TestAdvanceTxRejectsOverpayment(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	now := time.Now().UTC()
	if _, _, err := f.ledger.RegisterPayment(ctx, RegisterParams{BookingID: f.booking.ID, AmountCents: 800, Method: "cash"}); err != nil {
		t.Fatalf("RegisterPayment: %v", err)
	}
	payment, err := f.db.Queries.CreatePayment(ctx, dbgen.CreatePaymentParams{
		BookingID: f.booking.ID, AmountCents: 500, Method: "gateway", Status: string(models.PaymentProcessing), Now: now,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	result, err := AdvanceTx(ctx, f.db.Queries, payment, models.PaymentCompleted, gateway.Payment{ID: "mp-2", AmountCents: 500}, now)
	if err != nil {
		t.Fatalf("AdvanceTx: %v", err)
	}
	if result.Outcome != AdvanceOverpayment || result.Status != models.PaymentFailed {
		t.Fatalf("result = %+v", result)
	}
	summary, err := f.ledger.Summary(ctx, f.booking.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.PaidCents() != 800 {
		t.Fatalf("paid = %d, want 800", summary.PaidCents())
	}
}

func TestCancelSplitPlanTxCancelsOpenShares(t *testing.T) {
	f := newLedgerFixture(t, 1000)
	ctx := context.Background()
	now := time.Now().UTC()
	splitID := testutil.SeedSplitPlan(t, f.db, f.booking.ID, 1000, 2)

	cancelled, err := CancelSplitPlanTx(ctx, f.db.Queries, f.booking.ID, now)
	if err != nil || !cancelled {
		t.Fatalf("CancelSplitPlanTx = %v, %v", cancelled, err)
	}
	again, err := CancelSplitPlanTx(ctx, f.db.Queries, f.booking.ID, now)
	if err != nil || again {
		t.Fatalf("second CancelSplitPlanTx = %v, %v", again, err)
	}
	participants, err := f.db.Queries.ListSplitParticipants(ctx, splitID)
	if err != nil {
		t.Fatalf("ListSplitParticipants: %v", err)
	}
	for _, p := range participants {
		if p.Status != string(models.ParticipantCancelled) {
			t.Fatalf("participant %d status %q", p.ID, p.Status)
		}
	}
}
