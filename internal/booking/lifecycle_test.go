package booking

import (
	"context"
	"errors"
	"testing"

	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/models"
)

func countParams(courtID int64, start, end string) dbgen.CountOverlappingActiveBookingsParams {
	return dbgen.CountOverlappingActiveBookingsParams{CourtID: courtID, BookingDate: testDate, StartTime: start, EndTime: end}
}

func TestCancelPolicy(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	owner := Actor{ID: 7}

	soon := f.params("13:00", "14:00")
	soon.Date = "2030-06-01"
	early, err := f.service.Create(ctx, soon)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Cancel(ctx, early.Booking.ID, owner, "late"); !errors.Is(err, models.ErrCancellationWindowViolation) {
		t.Fatalf("cancel 1h before start err = %v, want ErrCancellationWindowViolation", err)
	}

	created, err := f.service.Create(ctx, f.params("10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Cancel(ctx, created.Booking.ID, Actor{ID: 8}, ""); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("stranger cancel err = %v, want ErrForbidden", err)
	}
	cancelled, err := f.service.Cancel(ctx, created.Booking.ID, owner, "rain")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != string(models.BookingCancelled) || !cancelled.CancelledAt.Valid || cancelled.CancellationReason.String != "rain" {
		t.Fatalf("cancelled booking = %+v", cancelled)
	}
	if _, err := f.service.Cancel(ctx, created.Booking.ID, owner, ""); !errors.Is(err, models.ErrAlreadyCancelled) {
		t.Fatalf("second cancel err = %v, want ErrAlreadyCancelled", err)
	}
	if _, cancelledEvents, _ := f.recorder.Counts(); cancelledEvents != 1 {
		t.Fatalf("cancelled notifications = %d", cancelledEvents)
	}

	if _, err := f.service.Create(ctx, f.params("10:00", "11:00")); err != nil {
		t.Fatalf("slot not released after cancel: %v", err)
	}
}

func TestCancelLeadTimeBoundary(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	params := f.params("14:00", "15:00")
	params.Date = "2030-06-01"
	created, err := f.service.Create(ctx, params)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.service.Cancel(ctx, created.Booking.ID, Actor{IsStaff: true}, ""); err != nil {
		t.Fatalf("cancel exactly 2h before start: %v", err)
	}
}

func TestCancelCompletedBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	staff := Actor{ID: 1, IsStaff: true}

	created, err := f.service.Create(ctx, f.params("10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, next := range []models.BookingStatus{models.BookingInProgress, models.BookingCompleted} {
		if _, err := f.service.Transition(ctx, created.Booking.ID, next, staff, ""); err != nil {
			t.Fatalf("Transition %s: %v", next, err)
		}
	}
	if _, err := f.service.Cancel(ctx, created.Booking.ID, staff, ""); !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestTransitions(t *testing.T) {
	staff := Actor{ID: 1, IsStaff: true}
	tests := []struct {
		name    string
		path    []models.BookingStatus
		wantErr error
	}{
		{"confirm then play", []models.BookingStatus{models.BookingConfirmed, models.BookingInProgress, models.BookingCompleted}, nil},
		{"no show", []models.BookingStatus{models.BookingInProgress, models.BookingNoShow}, nil},
		{"complete from pending", []models.BookingStatus{models.BookingCompleted}, models.ErrInvalidTransition},
		{"confirm twice", []models.BookingStatus{models.BookingConfirmed, models.BookingConfirmed}, models.ErrInvalidTransition},
		{"back to pending", []models.BookingStatus{models.BookingConfirmed, models.BookingPending}, models.ErrInvalidTransition},
		{"leave no show", []models.BookingStatus{models.BookingInProgress, models.BookingNoShow, models.BookingInProgress}, models.ErrInvalidTransition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t)
			ctx := context.Background()
			created, err := f.service.Create(ctx, f.params("10:00", "11:00"))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			var lastErr error
			for _, next := range tc.path {
				if _, lastErr = f.service.Transition(ctx, created.Booking.ID, next, staff, ""); lastErr != nil {
					break
				}
			}
			if !errors.Is(lastErr, tc.wantErr) {
				t.Fatalf("err = %v, want %v", lastErr, tc.wantErr)
			}
		})
	}
}

func TestTransitionStampsTimestampsAndWarnsOnBalance(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	staff := Actor{ID: 1, IsStaff: true}

	created, err := f.service.Create(ctx, f.params("10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	confirmed, err := f.service.Transition(ctx, created.Booking.ID, models.BookingConfirmed, staff, "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed.Booking.ConfirmedAt.Valid {
		t.Fatalf("confirmed_at not set")
	}
	if _, err := f.service.Transition(ctx, created.Booking.ID, models.BookingInProgress, staff, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed, err := f.service.Transition(ctx, created.Booking.ID, models.BookingCompleted, staff, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completed.Booking.CompletedAt.Valid {
		t.Fatalf("completed_at not set")
	}
	if completed.Warning == nil || completed.Warning.PendingCents != 6000 {
		t.Fatalf("warning = %+v, want 6000 pending", completed.Warning)
	}
}

func TestTransitionToCancelledUsesPolicy(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	params := f.params("13:30", "14:30")
	params.Date = "2030-06-01"
	created, err := f.service.Create(ctx, params)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = f.service.Transition(ctx, created.Booking.ID, models.BookingCancelled, Actor{IsStaff: true}, "")
	if !errors.Is(err, models.ErrCancellationWindowViolation) {
		t.Fatalf("err = %v, want ErrCancellationWindowViolation", err)
	}
}

func TestUpdateNotes(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, f.params("10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := f.service.UpdateNotes(ctx, created.Booking.ID, "  bring rackets ")
	if err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	if updated.Notes != "bring rackets" {
		t.Fatalf("notes = %q", updated.Notes)
	}
	if _, err := f.service.UpdateNotes(ctx, 999, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing booking err = %v", err)
	}
}
