// Package booking owns reservation creation, the booking state machine and
// the cancellation policy.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/availability"
	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/notify"
	"github.com/codr1/courtledger/internal/split"
)

const checkInCodeLength = 8

type Options struct {
	CancellationLeadTime    time.Duration
	DefaultTimezone         string
	SplitDefaultExpiryHours int
	PhoneRegion             string
}

type Service struct {
	db       *db.DB
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
}

func NewService(database *db.DB, notifier notify.Notifier, m *metrics.Metrics, opts Options) (*Service, error) {
	if database == nil {
		return nil, errors.New("booking service requires a database")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if opts.CancellationLeadTime == 0 {
		opts.CancellationLeadTime = 2 * time.Hour
	}
	if opts.SplitDefaultExpiryHours == 0 {
		opts.SplitDefaultExpiryHours = 24
	}
	return &Service{
		db:       database,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type SplitParams struct {
	TotalParticipants int
	Participants      []split.ParticipantInput
	ExpiresInHours    int
}

type CreateParams struct {
	CourtID            int64
	UserID             int64
	Date               string
	StartTime          string
	EndTime            string
	DurationMinutes    int
	// TotalAmountCents nil prices the booking from the court's rates.
	TotalAmountCents   *int64
	PaymentType        string
	PlayerCount        int
	ContactEmail       string
	Notes              string
	Split              *SplitParams
	DepositAmountCents int64
	DepositMethod      string
}

type Created struct {
	Booking dbgen.Booking
	Split   *split.Plan
	Deposit *dbgen.Payment
}

// Create reserves a court. The availability check and the insert share one
// write transaction, and the active-booking unique index backs it up, so of
// two overlapping requests exactly one succeeds. A split booking gets its
// plan in the same transaction.
func (s *Service) Create(ctx context.Context, params CreateParams) (Created, error) {
	paymentType, ok := models.ParsePaymentType(strings.TrimSpace(params.PaymentType))
	if !ok {
		return Created{}, models.Invalid("payment_type", "must be full or split")
	}
	want, err := availability.ParseRange(params.StartTime, params.EndTime)
	if err != nil {
		return Created{}, models.Invalid("start_time", err.Error())
	}
	bookingDate, err := models.ParseDate(params.Date)
	if err != nil {
		return Created{}, models.Invalid("date", err.Error())
	}
	// Overlap query and unique index compare stored strings, so only the
	// canonical forms may reach the store.
	params.Date = bookingDate.Format(models.DateLayout)
	params.StartTime = models.FormatClock(want.Start)
	params.EndTime = models.FormatClock(want.End)

	duration := want.End - want.Start
	if params.DurationMinutes != 0 && params.DurationMinutes != duration {
		return Created{}, models.Invalid("duration_minutes", fmt.Sprintf("must be %d for %s-%s", duration, params.StartTime, params.EndTime))
	}
	if params.PlayerCount == 0 {
		params.PlayerCount = 1
	}
	if params.PlayerCount < 0 {
		return Created{}, models.Invalid("player_count", "must be positive")
	}
	if params.TotalAmountCents != nil && *params.TotalAmountCents < 0 {
		return Created{}, fmt.Errorf("total %d: %w", *params.TotalAmountCents, models.ErrInvalidPaymentAmount)
	}
	if params.DepositAmountCents < 0 {
		return Created{}, fmt.Errorf("deposit %d: %w", params.DepositAmountCents, models.ErrInvalidPaymentAmount)
	}
	if params.DepositAmountCents > 0 && paymentType == models.PaymentTypeSplit {
		return Created{}, models.Invalid("deposit_amount_cents", "is not accepted for split bookings")
	}

	logger := log.Ctx(ctx).With().
		Str("component", "booking").
		Int64("court_id", params.CourtID).
		Str("date", params.Date).
		Str("start_time", params.StartTime).
		Logger()

	now := s.now()
	var (
		created   Created
		confirmed bool
	)
	err = s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		day, err := availability.LoadCourtDay(ctx, q, params.CourtID, params.Date, s.opts.DefaultTimezone)
		if err != nil {
			return err
		}
		window, err := day.Hours.Window()
		if err != nil {
			return fmt.Errorf("court %d hours: %w", params.CourtID, err)
		}
		if day.Hours.Closed {
			return models.Invalid("date", "court is closed on this date")
		}
		if want.Start < window.Start || want.End > window.End {
			return models.Invalid("start_time", fmt.Sprintf("must fall within opening hours %s-%s", day.Hours.Opens, day.Hours.Closes))
		}
		startsAt, err := models.LocalStart(params.Date, params.StartTime, day.Location)
		if err != nil {
			return models.Invalid("start_time", err.Error())
		}
		if !startsAt.After(now) {
			return models.Invalid("start_time", "is in the past")
		}

		if free, err := availability.Fits(day.Hours, want, nil, day.Blocked); err != nil {
			return err
		} else if !free {
			return fmt.Errorf("blocked range: %w", models.ErrSlotUnavailable)
		}
		overlapping, err := q.CountOverlappingActiveBookings(ctx, dbgen.CountOverlappingActiveBookingsParams{
			CourtID:     params.CourtID,
			BookingDate: params.Date,
			EndTime:     params.EndTime,
			StartTime:   params.StartTime,
		})
		if err != nil {
			return fmt.Errorf("check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return models.ErrSlotUnavailable
		}

		total := day.Pricing.PriceFor(duration)
		if params.TotalAmountCents != nil {
			total = *params.TotalAmountCents
		}
		if params.DepositAmountCents > total {
			return fmt.Errorf("deposit %d exceeds total %d: %w", params.DepositAmountCents, total, models.ErrInvalidPaymentAmount)
		}

		created.Booking, err = q.CreateBooking(ctx, dbgen.CreateBookingParams{
			CourtID:          params.CourtID,
			EstablishmentID:  day.Court.EstablishmentID,
			UserID:           params.UserID,
			BookingDate:      params.Date,
			StartTime:        params.StartTime,
			EndTime:          params.EndTime,
			DurationMinutes:  int64(duration),
			StartsAt:         startsAt,
			TotalAmountCents: total,
			PaymentType:      string(paymentType),
			PlayerCount:      int64(params.PlayerCount),
			CheckInCode:      NewCheckInCode(),
			ContactEmail:     sql.NullString{String: strings.TrimSpace(params.ContactEmail), Valid: strings.TrimSpace(params.ContactEmail) != ""},
			Notes:            strings.TrimSpace(params.Notes),
			Now:              now,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("concurrent booking: %w", models.ErrSlotUnavailable)
			}
			return fmt.Errorf("create booking: %w", err)
		}

		if paymentType == models.PaymentTypeSplit {
			plan, err := split.CreateTx(ctx, q, s.splitParams(created.Booking, params), now)
			if err != nil {
				return err
			}
			created.Split = &plan
		}

		if params.DepositAmountCents > 0 {
			method := strings.TrimSpace(params.DepositMethod)
			if method == "" {
				method = "cash"
			}
			deposit, err := q.CreatePayment(ctx, dbgen.CreatePaymentParams{
				BookingID:   created.Booking.ID,
				AmountCents: params.DepositAmountCents,
				Method:      method,
				Status:      string(models.PaymentCompleted),
				IsDeposit:   true,
				Note:        "deposit",
				Now:         now,
			})
			if err != nil {
				return fmt.Errorf("create deposit: %w", err)
			}
			created.Deposit = &deposit
			if _, confirmed, err = ledger.SyncTx(ctx, q, created.Booking.ID, now); err != nil {
				return err
			}
			created.Booking, err = q.GetBooking(ctx, created.Booking.ID)
			if err != nil {
				return fmt.Errorf("reload booking: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrSlotUnavailable) {
			s.metrics.BookingConflict()
			logger.Warn().Err(err).Msg("Booking rejected: slot unavailable")
		}
		return Created{}, err
	}

	s.metrics.BookingCreated()
	logger.Info().
		Int64("booking_id", created.Booking.ID).
		Str("payment_type", created.Booking.PaymentType).
		Int64("total_amount_cents", created.Booking.TotalAmountCents).
		Msg("Booking created")
	if confirmed {
		s.notifier.BookingConfirmed(ctx, notify.EventFromBooking(created.Booking))
	}
	return created, nil
}

func (s *Service) splitParams(booking dbgen.Booking, params CreateParams) split.CreateParams {
	out := split.CreateParams{
		BookingID:         booking.ID,
		OrganizerID:       booking.UserID,
		TotalAmountCents:  booking.TotalAmountCents,
		TotalParticipants: params.PlayerCount,
		ExpiresInHours:    s.opts.SplitDefaultExpiryHours,
		PhoneRegion:       s.opts.PhoneRegion,
	}
	if params.Split != nil {
		if params.Split.TotalParticipants != 0 {
			out.TotalParticipants = params.Split.TotalParticipants
		}
		if params.Split.ExpiresInHours != 0 {
			out.ExpiresInHours = params.Split.ExpiresInHours
		}
		out.Participants = params.Split.Participants
	}
	return out
}

// NewCheckInCode returns a short upper-case code shown at the front desk.
func NewCheckInCode() string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(code[:checkInCodeLength])
}

func (s *Service) Get(ctx context.Context, bookingID int64) (dbgen.Booking, error) {
	return getBooking(ctx, s.db.Queries, bookingID)
}

func (s *Service) UpdateNotes(ctx context.Context, bookingID int64, notes string) (dbgen.Booking, error) {
	var booking dbgen.Booking
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		if _, err := getBooking(ctx, txdb.Queries, bookingID); err != nil {
			return err
		}
		if err := txdb.Queries.UpdateBookingNotes(ctx, dbgen.UpdateBookingNotesParams{
			Notes:     strings.TrimSpace(notes),
			UpdatedAt: s.now(),
			ID:        bookingID,
		}); err != nil {
			return fmt.Errorf("update notes: %w", err)
		}
		var err error
		booking, err = getBooking(ctx, txdb.Queries, bookingID)
		return err
	})
	return booking, err
}

func getBooking(ctx context.Context, q dbgen.Querier, bookingID int64) (dbgen.Booking, error) {
	booking, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Booking{}, fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
		}
		return dbgen.Booking{}, fmt.Errorf("load booking: %w", err)
	}
	return booking, nil
}
