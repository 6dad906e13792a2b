package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
)

// Actor is who asks for a lifecycle change. Staff may act on any booking.
type Actor struct {
	ID      int64
	IsStaff bool
}

func (a Actor) canManage(booking dbgen.Booking) bool {
	return a.IsStaff || (a.ID != 0 && a.ID == booking.UserID)
}

// Cancel applies the cancellation policy: terminal bookings cannot be
// cancelled, and the booking must start at least the configured lead time
// from now. An open split plan is cancelled with the booking.
func (s *Service) Cancel(ctx context.Context, bookingID int64, actor Actor, reason string) (dbgen.Booking, error) {
	now := s.now()
	var booking dbgen.Booking
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		current, err := getBooking(ctx, q, bookingID)
		if err != nil {
			return err
		}
		if !actor.canManage(current) {
			return models.ErrForbidden
		}
		if err := s.checkCancellable(current); err != nil {
			return err
		}

		cancelled, err := q.CancelBooking(ctx, dbgen.CancelBookingParams{
			CancellationReason: sql.NullString{String: strings.TrimSpace(reason), Valid: strings.TrimSpace(reason) != ""},
			CancelledBy:        sql.NullInt64{Int64: actor.ID, Valid: actor.ID != 0},
			CancelledAt:        sql.NullTime{Time: now, Valid: true},
			ID:                 bookingID,
			FromStatus:         current.Status,
		})
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if cancelled == 0 {
			return fmt.Errorf("booking %d changed state: %w", bookingID, models.ErrInvalidTransition)
		}
		if _, err := ledger.CancelSplitPlanTx(ctx, q, bookingID, now); err != nil {
			return err
		}
		booking, err = getBooking(ctx, q, bookingID)
		return err
	})
	if err != nil {
		return dbgen.Booking{}, err
	}

	s.metrics.BookingTransition(string(models.BookingCancelled))
	log.Ctx(ctx).Info().
		Str("component", "booking").
		Int64("booking_id", booking.ID).
		Int64("actor_id", actor.ID).
		Msg("Booking cancelled")
	s.notifier.BookingCancelled(ctx, notify.EventFromBooking(booking))
	return booking, nil
}

func (s *Service) checkCancellable(booking dbgen.Booking) error {
	switch models.BookingStatus(booking.Status) {
	case models.BookingCancelled:
		return fmt.Errorf("booking %d: %w", booking.ID, models.ErrAlreadyCancelled)
	case models.BookingCompleted:
		return fmt.Errorf("booking %d: %w", booking.ID, models.ErrAlreadyCompleted)
	case models.BookingNoShow:
		return fmt.Errorf("booking %d is no_show: %w", booking.ID, models.ErrInvalidTransition)
	}
	if lead := booking.StartsAt.Sub(s.now()); lead < s.opts.CancellationLeadTime {
		return fmt.Errorf("booking %d starts in %s, need %s: %w", booking.ID, lead.Round(time.Second), s.opts.CancellationLeadTime, models.ErrCancellationWindowViolation)
	}
	return nil
}

// PendingWarning flags a completion that left money owed.
type PendingWarning struct {
	PendingCents int64  `json:"pending_cents"`
	Message      string `json:"message"`
}

type TransitionResult struct {
	Booking dbgen.Booking
	Warning *PendingWarning
}

// Transition moves a booking along the state machine. Moving to cancelled
// goes through Cancel. Completing a booking that still owes money succeeds
// and carries a warning with the pending amount.
func (s *Service) Transition(ctx context.Context, bookingID int64, next models.BookingStatus, actor Actor, reason string) (TransitionResult, error) {
	if next == models.BookingCancelled {
		booking, err := s.Cancel(ctx, bookingID, actor, reason)
		return TransitionResult{Booking: booking}, err
	}

	now := s.now()
	var result TransitionResult
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		current, err := getBooking(ctx, q, bookingID)
		if err != nil {
			return err
		}
		if !actor.canManage(current) {
			return models.ErrForbidden
		}
		from := models.BookingStatus(current.Status)
		if !from.CanTransitionTo(next) {
			return fmt.Errorf("%s to %s: %w", from, next, models.ErrInvalidTransition)
		}

		params := dbgen.TransitionBookingStatusParams{
			Status:     string(next),
			UpdatedAt:  now,
			ID:         bookingID,
			FromStatus: current.Status,
		}
		switch next {
		case models.BookingConfirmed:
			params.ConfirmedAt = sql.NullTime{Time: now, Valid: true}
		case models.BookingCompleted:
			params.CompletedAt = sql.NullTime{Time: now, Valid: true}
			summary, err := ledger.Compute(ctx, q, current)
			if err != nil {
				return err
			}
			if summary.PendingCents > 0 {
				result.Warning = &PendingWarning{
					PendingCents: summary.PendingCents,
					Message:      "booking completed with an outstanding balance",
				}
			}
		}
		updated, err := q.TransitionBookingStatus(ctx, params)
		if err != nil {
			return fmt.Errorf("transition booking: %w", err)
		}
		if updated == 0 {
			return fmt.Errorf("booking %d changed state: %w", bookingID, models.ErrInvalidTransition)
		}
		result.Booking, err = getBooking(ctx, q, bookingID)
		return err
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.metrics.BookingTransition(string(next))
	event := log.Ctx(ctx).Info().
		Str("component", "booking").
		Int64("booking_id", bookingID).
		Str("status", string(next))
	if result.Warning != nil {
		event = event.Int64("pending_cents", result.Warning.PendingCents)
	}
	event.Msg("Booking status changed")
	if next == models.BookingConfirmed {
		s.notifier.BookingConfirmed(ctx, notify.EventFromBooking(result.Booking))
	}
	return result, nil
}
