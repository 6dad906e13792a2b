// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/api/apiutil"
	"github.com/codr1/courtledger/internal/api/authz"
	"github.com/codr1/courtledger/internal/availability"
	"github.com/codr1/courtledger/internal/booking"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/ratelimit"
	"github.com/codr1/courtledger/internal/split"
)

// NOTE: handlers read package state set once by InitHandlers.
var (
	bookingService *booking.Service
	bookingLedger  *ledger.Ledger
	queries        *dbgen.Queries
	limiter        *ratelimit.Limiter
	calculator     availability.Calculator
	defaultTZ      string
	trustProxy     bool
	handlersOnce   sync.Once
)

const (
	bookingRequestTimeout  = 10 * time.Second
	defaultDurationMinutes = 60
)

type Deps struct {
	Bookings        *booking.Service
	Ledger          *ledger.Ledger
	Queries         *dbgen.Queries
	Limiter         *ratelimit.Limiter
	SlotStep        time.Duration
	DefaultTimezone string
	TrustProxy      bool
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Deps) {
	if deps.Bookings == nil || deps.Ledger == nil || deps.Queries == nil {
		return
	}
	handlersOnce.Do(func() {
		bookingService = deps.Bookings
		bookingLedger = deps.Ledger
		queries = deps.Queries
		limiter = deps.Limiter
		calculator = availability.Calculator{Step: deps.SlotStep}
		defaultTZ = deps.DefaultTimezone
		trustProxy = deps.TrustProxy
	})
}

type splitPaymentRequest struct {
	TotalParticipants int                      `json:"total_participants" validate:"required,gte=2"`
	Participants      []split.ParticipantInput `json:"participants" validate:"dive"`
	ExpiresInHours    int                      `json:"expires_in_hours" validate:"gte=0"`
}

type createBookingRequest struct {
	CourtID            int64                `json:"court_id" validate:"required,gt=0"`
	UserID             int64                `json:"user_id" validate:"gte=0"`
	Date               string               `json:"date" validate:"required"`
	StartTime          string               `json:"start_time" validate:"required"`
	EndTime            string               `json:"end_time" validate:"required"`
	DurationMinutes    int                  `json:"duration_minutes" validate:"gte=0"`
	TotalAmountCents   *int64               `json:"total_amount_cents"`
	PaymentType        string               `json:"payment_type" validate:"required,oneof=full split"`
	PlayerCount        int                  `json:"player_count" validate:"gte=0"`
	ContactEmail       string               `json:"contact_email" validate:"omitempty,email"`
	Notes              string               `json:"notes" validate:"max=2000"`
	SplitPaymentData   *splitPaymentRequest `json:"split_payment_data"`
	DepositAmountCents int64                `json:"deposit_amount_cents" validate:"gte=0"`
	DepositMethod      string               `json:"deposit_method"`
}

// POST /bookings
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.Check(ratelimit.ActionBooking, actor.ID, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(ratelimit.ActionBooking, actor.ID, ip, result.Reason)
			writeThrottled(w, r, result)
			return
		}
	}

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	userID := actor.ID
	if req.UserID != 0 && req.UserID != actor.ID {
		if !actor.IsStaff {
			apiutil.WriteError(w, r, authz.ErrForbidden)
			return
		}
		userID = req.UserID
	}

	params := booking.CreateParams{
		CourtID:            req.CourtID,
		UserID:             userID,
		Date:               req.Date,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		DurationMinutes:    req.DurationMinutes,
		TotalAmountCents:   req.TotalAmountCents,
		PaymentType:        req.PaymentType,
		PlayerCount:        req.PlayerCount,
		ContactEmail:       req.ContactEmail,
		Notes:              req.Notes,
		DepositAmountCents: req.DepositAmountCents,
		DepositMethod:      req.DepositMethod,
	}
	if req.SplitPaymentData != nil {
		params.Split = &booking.SplitParams{
			TotalParticipants: req.SplitPaymentData.TotalParticipants,
			Participants:      req.SplitPaymentData.Participants,
			ExpiresInHours:    req.SplitPaymentData.ExpiresInHours,
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	created, err := bookingService.Create(ctx, params)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if limiter != nil {
		limiter.Record(ratelimit.ActionBooking, actor.ID, ip)
	}

	resp := createdResponse{Booking: NewBookingView(created.Booking)}
	if created.Split != nil {
		view := apiutil.NewSplitView(*created.Split)
		resp.Split = &view
	}
	if created.Deposit != nil {
		view := ledger.NewPaymentView(*created.Deposit)
		resp.Deposit = &view
	}
	logger.Info().Int64("booking_id", created.Booking.ID).Int64("actor_id", actor.ID).Msg("Booking created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

// GET /bookings/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	current, ok := loadManagedBooking(w, r, actor)
	if !ok {
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewBookingView(current)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write booking response")
	}
}

type updateBookingRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
	Reason string  `json:"reason" validate:"max=500"`
}

// PUT /bookings/{id}
// Notes are saved before a status change. A rejected transition keeps the new notes.
func HandlePut(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req updateBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if req.Status == nil && req.Notes == nil {
		apiutil.WriteError(w, r, models.Invalid("body", "must set status or notes"))
		return
	}
	var next models.BookingStatus
	if req.Status != nil {
		parsed, ok := models.ParseBookingStatus(strings.TrimSpace(*req.Status))
		if !ok {
			apiutil.WriteError(w, r, models.Invalid("status", "is not a booking status"))
			return
		}
		next = parsed
	}

	current, ok := loadManagedBooking(w, r, actor)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	resp := updateResponse{Booking: NewBookingView(current)}
	if req.Notes != nil {
		updated, err := bookingService.UpdateNotes(ctx, current.ID, *req.Notes)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		resp.Booking = NewBookingView(updated)
	}
	if req.Status != nil && string(next) != current.Status {
		result, err := bookingService.Transition(ctx, current.ID, next, booking.Actor{ID: actor.ID, IsStaff: actor.IsStaff}, req.Reason)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		resp.Booking = NewBookingView(result.Booking)
		resp.Warning = result.Warning
	}

	logger.Info().Int64("booking_id", current.ID).Str("status", resp.Booking.Status).Msg("Booking updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

// DELETE /bookings/{id}
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	cancelled, err := bookingService.Cancel(ctx, bookingID, booking.Actor{ID: actor.ID, IsStaff: actor.IsStaff}, reason)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewBookingView(cancelled)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write booking response")
	}
}

// GET /bookings/{id}/ledger
func HandleLedger(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	current, ok := loadManagedBooking(w, r, actor)
	if !ok {
		return
	}
	summary, err := bookingLedger.Summary(r.Context(), current.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, summary); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write ledger response")
	}
}

type registerPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required,max=40"`
	Note        string `json:"note" validate:"max=500"`
}

// POST /bookings/{id}/payments
func HandleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireStaff(w, r)
	if !ok {
		return
	}
	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req registerPaymentRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	payment, summary, err := bookingLedger.RegisterPayment(ctx, ledger.RegisterParams{
		BookingID:   bookingID,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Note:        req.Note,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	logger.Info().Int64("booking_id", bookingID).Int64("payment_id", payment.ID).Int64("staff_id", actor.ID).Msg("Payment registered by staff")
	if err := apiutil.WriteJSON(w, http.StatusCreated, registerResponse{Payment: ledger.NewPaymentView(payment), Ledger: summary}); err != nil {
		logger.Error().Err(err).Msg("Failed to write payment response")
	}
}

// GET /courts/{id}/availability?date=YYYY-MM-DD&duration=60
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		apiutil.WriteError(w, r, models.Invalid("date", "is required"))
		return
	}
	duration, err := apiutil.QueryInt(r, "duration", defaultDurationMinutes)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result, err := calculator.ForCourt(r.Context(), queries, courtID, date, duration, defaultTZ)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, result); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write availability response")
	}
}

// loadManagedBooking loads the path booking and checks the actor may see it.
func loadManagedBooking(w http.ResponseWriter, r *http.Request, actor *authz.Actor) (dbgen.Booking, bool) {
	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return dbgen.Booking{}, false
	}
	current, err := bookingService.Get(r.Context(), bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return dbgen.Booking{}, false
	}
	if !actor.IsStaff && current.UserID != actor.ID {
		log.Ctx(r.Context()).Warn().Int64("booking_id", bookingID).Int64("actor_id", actor.ID).Msg("Booking access denied")
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return dbgen.Booking{}, false
	}
	return current, true
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if bookingService == nil || bookingLedger == nil || queries == nil {
		log.Ctx(r.Context()).Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

func writeThrottled(w http.ResponseWriter, r *http.Request, result ratelimit.LimitResult) {
	seconds := int(result.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "Too many requests"})
}
