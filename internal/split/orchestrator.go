package split

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
)

// Outcome describes what applying a participant payment did.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeCompleted   Outcome = "completed"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeExpired     Outcome = "expired"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeNotPayable  Outcome = "not_payable"
)

// Result is the state after a participant update. Booking is set whenever
// the plan's progress was recorded; Confirmed reports that this update
// promoted it.
type Result struct {
	Outcome          Outcome
	Split            dbgen.SplitPayment
	Participant      dbgen.SplitPaymentParticipant
	PaidParticipants int64
	Booking          *dbgen.Booking
	Confirmed        bool
	PendingCents     int64
}

type Options struct {
	Currency             string
	SplitNotificationURL string
}

type Orchestrator struct {
	db       *db.DB
	gateway  gateway.Client
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
}

func NewOrchestrator(database *db.DB, gw gateway.Client, notifier notify.Notifier, m *metrics.Metrics, opts Options) (*Orchestrator, error) {
	if database == nil {
		return nil, errors.New("split orchestrator requires a database")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Orchestrator{
		db:       database,
		gateway:  gw,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the time source. Tests use it to control expiry.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// OnParticipantPaidTx marks a share paid and recounts paid shares inside the
// caller's transaction. Reaching the participant total completes the plan;
// the ledger decides whether the booking is promoted. Re-applying to a paid
// share changes nothing.
// Expired and cancelled plans are reported through Result.Outcome, not as
// errors, so the caller can still commit what it recorded.
func OnParticipantPaidTx(ctx context.Context, q dbgen.Querier, splitPaymentID, participantID int64, now time.Time) (Result, error) {
	plan, participant, err := loadShare(ctx, q, splitPaymentID, participantID)
	if err != nil {
		return Result{}, err
	}
	result := Result{Split: plan, Participant: participant, PaidParticipants: plan.PaidParticipants}

	switch status := models.ParticipantStatus(participant.Status); {
	case status == models.ParticipantPaid:
		result.Outcome = OutcomeAlreadyPaid
		return result, nil
	case !status.IsPayable():
		result.Outcome = OutcomeNotPayable
		return result, nil
	}

	if outcome, closed, err := checkOpen(ctx, q, plan, now); err != nil || closed {
		result.Outcome = outcome
		return result, err
	}

	marked, err := q.MarkParticipantPaid(ctx, dbgen.MarkParticipantPaidParams{
		PaidAt:         now,
		ID:             participantID,
		SplitPaymentID: splitPaymentID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("mark participant paid: %w", err)
	}
	if marked == 0 {
		result.Outcome = OutcomeAlreadyPaid
		return result, nil
	}
	result.Participant.Status = string(models.ParticipantPaid)
	result.Participant.PaidAt = sql.NullTime{Time: now, Valid: true}

	return settleProgress(ctx, q, result, now)
}

// settleProgress recounts paid shares and records plan progress, completing
// the plan at its participant total. The booking's payment state is then
// derived from the ledger, so a completed plan with a balance due leaves the
// booking partial.
func settleProgress(ctx context.Context, q dbgen.Querier, result Result, now time.Time) (Result, error) {
	plan := result.Split
	paid, err := q.CountPaidParticipants(ctx, plan.ID)
	if err != nil {
		return Result{}, fmt.Errorf("count paid participants: %w", err)
	}
	result.PaidParticipants = paid
	result.Split.PaidParticipants = paid

	if paid < plan.TotalParticipants {
		if _, err := q.UpdateSplitPaymentProgress(ctx, dbgen.UpdateSplitPaymentProgressParams{
			PaidParticipants: paid,
			Status:           string(progressStatus(paid)),
			UpdatedAt:        now,
			ID:               plan.ID,
		}); err != nil {
			return Result{}, fmt.Errorf("update split progress: %w", err)
		}
		result.Split.Status = string(progressStatus(paid))
		if result.Outcome == "" {
			result.Outcome = OutcomeApplied
		}
		return syncBooking(ctx, q, result, now)
	}

	completed, err := q.CompleteSplitPayment(ctx, dbgen.CompleteSplitPaymentParams{
		PaidParticipants: paid,
		CompletedAt:      now,
		ID:               plan.ID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("complete split payment: %w", err)
	}
	if completed == 0 {
		result.Outcome = OutcomeAlreadyPaid
		return result, nil
	}
	result.Split.Status = string(models.SplitCompleted)
	result.Split.CompletedAt = sql.NullTime{Time: now, Valid: true}
	result.Outcome = OutcomeCompleted
	return syncBooking(ctx, q, result, now)
}

func syncBooking(ctx context.Context, q dbgen.Querier, result Result, now time.Time) (Result, error) {
	summary, confirmed, err := ledger.SyncTx(ctx, q, result.Split.BookingID, now)
	if err != nil {
		return Result{}, err
	}
	booking, err := q.GetBooking(ctx, result.Split.BookingID)
	if err != nil {
		return Result{}, fmt.Errorf("reload booking: %w", err)
	}
	result.Booking = &booking
	result.Confirmed = confirmed
	result.PendingCents = summary.PendingCents
	return result, nil
}

// OnParticipantFailedTx records a rejected share payment. Paid shares are left alone.
func OnParticipantFailedTx(ctx context.Context, q dbgen.Querier, splitPaymentID, participantID int64, now time.Time) (Result, error) {
	plan, participant, err := loadShare(ctx, q, splitPaymentID, participantID)
	if err != nil {
		return Result{}, err
	}
	result := Result{Split: plan, Participant: participant, PaidParticipants: plan.PaidParticipants, Outcome: OutcomeNotPayable}
	updated, err := q.MarkParticipantFailed(ctx, dbgen.MarkParticipantFailedParams{
		UpdatedAt:      now,
		ID:             participantID,
		SplitPaymentID: splitPaymentID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("mark participant failed: %w", err)
	}
	if updated > 0 {
		result.Participant.Status = string(models.ParticipantFailed)
		result.Outcome = OutcomeApplied
	}
	return result, nil
}

// OnParticipantPaid applies a settled share in its own transaction and emits
// the completion notification after commit.
func (o *Orchestrator) OnParticipantPaid(ctx context.Context, splitPaymentID, participantID int64) (Result, error) {
	var result Result
	err := o.db.RunInTx(ctx, func(txdb *db.DB) error {
		var err error
		result, err = OnParticipantPaidTx(ctx, txdb.Queries, splitPaymentID, participantID, o.now())
		return err
	})
	if err != nil {
		return Result{}, err
	}
	o.Observe(ctx, result)
	return result, OutcomeError(result.Outcome)
}

// Observe logs and notifies for a committed result.
func (o *Orchestrator) Observe(ctx context.Context, result Result) {
	logger := log.Ctx(ctx).With().
		Str("component", "split_orchestrator").
		Int64("split_payment_id", result.Split.ID).
		Int64("participant_id", result.Participant.ID).
		Str("outcome", string(result.Outcome)).
		Logger()

	switch result.Outcome {
	case OutcomeCompleted:
		logger.Info().Int64("paid_participants", result.PaidParticipants).Msg("Split payment completed")
		o.metrics.SplitOutcome(string(models.SplitCompleted))
		if result.PendingCents > 0 {
			logger.Warn().Int64("pending_cents", result.PendingCents).Msg("Split payment completed with a balance due")
		}
		if result.Booking != nil {
			o.notifier.SplitPaymentCompleted(ctx, notify.SplitEvent{SplitPaymentID: result.Split.ID, Booking: notify.EventFromBooking(*result.Booking)})
		}
	case OutcomeExpired:
		logger.Warn().Msg("Share payment arrived for an expired split payment")
		o.metrics.SplitOutcome(string(models.SplitExpired))
	case OutcomeApplied:
		logger.Info().Int64("paid_participants", result.PaidParticipants).Msg("Split participant updated")
	default:
		logger.Debug().Msg("Split participant update was a no-op")
	}
	if result.Confirmed && result.Booking != nil {
		o.notifier.BookingConfirmed(ctx, notify.EventFromBooking(*result.Booking))
	}
}

// OutcomeError maps outcomes that reject a payment to their domain error.
func OutcomeError(outcome Outcome) error {
	switch outcome {
	case OutcomeExpired:
		return models.ErrSplitPaymentExpired
	case OutcomeCancelled:
		return models.ErrSplitPaymentCancelled
	case OutcomeNotPayable:
		return models.ErrParticipantNotPayable
	}
	return nil
}

// ExpireOverdue marks every open plan past its deadline as expired.
func (o *Orchestrator) ExpireOverdue(ctx context.Context) (int, error) {
	var expired []dbgen.ExpireOverdueSplitPaymentsRow
	err := o.db.RunInTx(ctx, func(txdb *db.DB) error {
		var err error
		expired, err = txdb.Queries.ExpireOverdueSplitPayments(ctx, o.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expire split payments: %w", err)
	}

	logger := log.Ctx(ctx).With().Str("component", "split_orchestrator").Logger()
	for _, row := range expired {
		o.metrics.SplitOutcome(string(models.SplitExpired))
		logger.Info().Int64("split_payment_id", row.ID).Int64("booking_id", row.BookingID).Msg("Split payment expired")
	}
	return len(expired), nil
}

// Get loads a plan by invite code, expiring it first if its deadline passed.
func (o *Orchestrator) GetByInviteCode(ctx context.Context, inviteCode string) (Plan, error) {
	var plan Plan
	err := o.db.RunInTx(ctx, func(txdb *db.DB) error {
		split, err := txdb.Queries.GetSplitPaymentByInviteCode(ctx, inviteCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("split payment %q: %w", inviteCode, models.ErrNotFound)
			}
			return fmt.Errorf("load split payment: %w", err)
		}
		if _, _, err := checkOpen(ctx, txdb.Queries, split, o.now()); err != nil {
			return err
		}
		plan, err = loadPlan(ctx, txdb.Queries, split.ID)
		return err
	})
	return plan, err
}

func (o *Orchestrator) GetPlan(ctx context.Context, splitPaymentID int64) (Plan, error) {
	return loadPlan(ctx, o.db.Queries, splitPaymentID)
}

// CancelParticipant removes an unpaid share from an open plan. Only the
// organizer or staff may do this, and a plan keeps at least two shares.
// Dropping the share may complete the plan; the dropped amount stays owed on
// the booking's ledger.
func (o *Orchestrator) CancelParticipant(ctx context.Context, actorID int64, isStaff bool, splitPaymentID, participantID int64) (Result, error) {
	now := o.now()
	var result Result
	err := o.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		plan, participant, err := loadShare(ctx, q, splitPaymentID, participantID)
		if err != nil {
			return err
		}
		if !isStaff && plan.OrganizerID != actorID {
			return models.ErrForbidden
		}
		result = Result{Split: plan, Participant: participant, PaidParticipants: plan.PaidParticipants}

		if outcome, closed, err := checkOpen(ctx, q, plan, now); err != nil || closed {
			result.Outcome = outcome
			return err
		}
		cancelled, err := q.CancelSplitParticipant(ctx, dbgen.CancelSplitParticipantParams{
			UpdatedAt:      now,
			ID:             participantID,
			SplitPaymentID: splitPaymentID,
		})
		if err != nil {
			return fmt.Errorf("cancel participant: %w", err)
		}
		if cancelled == 0 {
			return models.ErrParticipantNotPayable
		}
		reduced, err := q.DecrementSplitTotalParticipants(ctx, dbgen.DecrementSplitTotalParticipantsParams{
			UpdatedAt: now,
			ID:        splitPaymentID,
		})
		if err != nil {
			return fmt.Errorf("reduce participant total: %w", err)
		}
		if reduced == 0 {
			return fmt.Errorf("plan needs at least %d shares: %w", MinParticipants, models.ErrInvalidParticipantCount)
		}
		result.Participant.Status = string(models.ParticipantCancelled)
		result.Split.TotalParticipants--
		result.Outcome = OutcomeApplied

		result, err = settleProgress(ctx, q, result, now)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	o.Observe(ctx, result)
	return result, OutcomeError(result.Outcome)
}

// checkOpen reports whether the plan can still take payments, expiring it
// when its deadline has passed. closed is true when it cannot.
func checkOpen(ctx context.Context, q dbgen.Querier, plan dbgen.SplitPayment, now time.Time) (Outcome, bool, error) {
	switch models.SplitStatus(plan.Status) {
	case models.SplitCancelled:
		return OutcomeCancelled, true, nil
	case models.SplitExpired:
		return OutcomeExpired, true, nil
	case models.SplitCompleted:
		return OutcomeAlreadyPaid, true, nil
	}
	if now.After(plan.ExpiresAt) {
		if _, err := q.ExpireSplitPayment(ctx, dbgen.ExpireSplitPaymentParams{UpdatedAt: now, ID: plan.ID}); err != nil {
			return "", true, fmt.Errorf("expire split payment: %w", err)
		}
		return OutcomeExpired, true, nil
	}
	return "", false, nil
}

func loadShare(ctx context.Context, q dbgen.Querier, splitPaymentID, participantID int64) (dbgen.SplitPayment, dbgen.SplitPaymentParticipant, error) {
	plan, err := q.GetSplitPayment(ctx, splitPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.SplitPayment{}, dbgen.SplitPaymentParticipant{}, fmt.Errorf("split payment %d: %w", splitPaymentID, models.ErrUnknownReference)
		}
		return dbgen.SplitPayment{}, dbgen.SplitPaymentParticipant{}, fmt.Errorf("load split payment: %w", err)
	}
	participant, err := q.GetSplitParticipant(ctx, dbgen.GetSplitParticipantParams{
		ID:             participantID,
		SplitPaymentID: splitPaymentID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.SplitPayment{}, dbgen.SplitPaymentParticipant{}, fmt.Errorf("participant %d: %w", participantID, models.ErrUnknownReference)
		}
		return dbgen.SplitPayment{}, dbgen.SplitPaymentParticipant{}, fmt.Errorf("load participant: %w", err)
	}
	return plan, participant, nil
}

func loadPlan(ctx context.Context, q dbgen.Querier, splitPaymentID int64) (Plan, error) {
	split, err := q.GetSplitPayment(ctx, splitPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, fmt.Errorf("split payment %d: %w", splitPaymentID, models.ErrNotFound)
		}
		return Plan{}, fmt.Errorf("load split payment: %w", err)
	}
	participants, err := q.ListSplitParticipants(ctx, splitPaymentID)
	if err != nil {
		return Plan{}, fmt.Errorf("list participants: %w", err)
	}
	return Plan{Split: split, Participants: participants}, nil
}

func progressStatus(paid int64) models.SplitStatus {
	if paid > 0 {
		return models.SplitPartial
	}
	return models.SplitPending
}
