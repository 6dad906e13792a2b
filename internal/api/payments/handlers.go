// internal/api/payments/handlers.go
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/api/apiutil"
	"github.com/codr1/courtledger/internal/api/authz"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/ratelimit"
	"github.com/codr1/courtledger/internal/split"
	"github.com/codr1/courtledger/internal/webhook"
)

var (
	paymentLedger *ledger.Ledger
	orchestrator  *split.Orchestrator
	reconciler    *webhook.Reconciler
	queries       *dbgen.Queries
	limiter       *ratelimit.Limiter
	trustProxy    bool
	handlersOnce  sync.Once
)

const (
	paymentRequestTimeout = 15 * time.Second
	maxWebhookBodyBytes   = 64 << 10
)

type Deps struct {
	Ledger       *ledger.Ledger
	Orchestrator *split.Orchestrator
	Reconciler   *webhook.Reconciler
	Queries      *dbgen.Queries
	Limiter      *ratelimit.Limiter
	TrustProxy   bool
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Deps) {
	if deps.Ledger == nil || deps.Orchestrator == nil || deps.Reconciler == nil || deps.Queries == nil {
		return
	}
	handlersOnce.Do(func() {
		paymentLedger = deps.Ledger
		orchestrator = deps.Orchestrator
		reconciler = deps.Reconciler
		queries = deps.Queries
		limiter = deps.Limiter
		trustProxy = deps.TrustProxy
	})
}

type initiateRequest struct {
	BookingID   int64  `json:"booking_id" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	PayerEmail  string `json:"payer_email" validate:"omitempty,email"`
}

// POST /payments
func HandleInitiate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	ip := ratelimit.GetClientIP(r, trustProxy)
	if !allow(w, r, actor.ID, ip) {
		return
	}

	var req initiateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := checkBookingAccess(r.Context(), actor, req.BookingID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentRequestTimeout)
	defer cancel()

	checkout, err := paymentLedger.InitiatePayment(ctx, ledger.InitiateParams{
		BookingID:   req.BookingID,
		AmountCents: req.AmountCents,
		PayerEmail:  req.PayerEmail,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if limiter != nil {
		limiter.Record(ratelimit.ActionPayment, actor.ID, ip)
	}
	if err := apiutil.WriteJSON(w, http.StatusCreated, checkout); err != nil {
		logger.Error().Err(err).Msg("Failed to write checkout response")
	}
}

type splitInitiateRequest struct {
	InviteCode    string `json:"invite_code" validate:"required"`
	ParticipantID int64  `json:"participant_id" validate:"required,gt=0"`
}

// POST /payments/split
// The invite code is the participant's proof of access, so no actor is needed.
func HandleSplitInitiate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	var actorID int64
	if actor := authz.ActorFromContext(r.Context()); actor != nil {
		actorID = actor.ID
	}
	ip := ratelimit.GetClientIP(r, trustProxy)
	if !allow(w, r, actorID, ip) {
		return
	}

	var req splitInitiateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentRequestTimeout)
	defer cancel()

	plan, err := orchestrator.GetByInviteCode(ctx, strings.TrimSpace(req.InviteCode))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	checkout, err := orchestrator.InitiateParticipantPayment(ctx, plan.Split.ID, req.ParticipantID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if limiter != nil {
		limiter.Record(ratelimit.ActionPayment, actorID, ip)
	}
	logger.Info().Int64("split_payment_id", plan.Split.ID).Int64("participant_id", req.ParticipantID).Msg("Split share checkout opened")
	if err := apiutil.WriteJSON(w, http.StatusCreated, checkout); err != nil {
		logger.Error().Err(err).Msg("Failed to write checkout response")
	}
}

// GET /payments/split/invites/{inviteCode}
func HandleSplitPlan(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	code := strings.TrimSpace(r.PathValue("inviteCode"))
	if code == "" {
		apiutil.WriteError(w, r, models.Invalid("invite_code", "is required"))
		return
	}
	plan, err := orchestrator.GetByInviteCode(r.Context(), code)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, apiutil.NewSplitView(plan)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write split response")
	}
}

// DELETE /payments/split/{id}/participants/{participantId}
func HandleSplitCancelParticipant(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	splitID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	participantID, err := apiutil.PathID(r, "participantId")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if _, err := orchestrator.CancelParticipant(r.Context(), actor.ID, actor.IsStaff, splitID, participantID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	plan, err := orchestrator.GetPlan(r.Context(), splitID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	logger.Info().Int64("split_payment_id", splitID).Int64("participant_id", participantID).Int64("actor_id", actor.ID).Msg("Split participant cancelled")
	if err := apiutil.WriteJSON(w, http.StatusOK, apiutil.NewSplitView(plan)); err != nil {
		logger.Error().Err(err).Msg("Failed to write split response")
	}
}

type webhookResponse struct {
	Outcome           webhook.Outcome      `json:"outcome"`
	ExternalPaymentID string               `json:"external_payment_id,omitempty"`
	PaymentID         int64                `json:"payment_id,omitempty"`
	Status            models.PaymentStatus `json:"status,omitempty"`
}

// POST /payments/webhook
func HandleWebhook(w http.ResponseWriter, r *http.Request) {
	handleWebhook(w, r, webhook.KindAny)
}

// POST /payments/webhook/split
func HandleSplitWebhook(w http.ResponseWriter, r *http.Request) {
	handleWebhook(w, r, webhook.KindSplit)
}

// handleWebhook answers 2xx for every delivery that was processed or safely
// ignored. Errors other than authentication and parse failures make the
// gateway redeliver.
func handleWebhook(w http.ResponseWriter, r *http.Request, kind webhook.Kind) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
	if err != nil {
		apiutil.WriteError(w, r, models.Invalid("body", "could not be read"))
		return
	}
	if len(body) > maxWebhookBodyBytes {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "webhook body too large"})
		return
	}

	result, err := reconciler.Handle(r.Context(), kind, body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resp := webhookResponse{
		Outcome:           result.Outcome,
		ExternalPaymentID: result.ExternalPaymentID,
		PaymentID:         result.PaymentID,
		Status:            result.Status,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write webhook response")
	}
}

// GET /payments/{id}/status
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	view, err := paymentLedger.PaymentStatus(r.Context(), paymentID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := checkBookingAccess(r.Context(), actor, view.BookingID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, view); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write payment response")
	}
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	Reason      string `json:"reason" validate:"max=500"`
}

type refundResponse struct {
	Payment         ledger.PaymentView `json:"payment"`
	RefundedCents   int64              `json:"refunded_cents"`
	GatewayRefundID string             `json:"gateway_refund_id,omitempty"`
	BookingStatus   string             `json:"booking_status"`
}

// POST /payments/{id}/refund
func HandleRefund(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireStaff(w, r)
	if !ok {
		return
	}
	paymentID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req refundRequest
	if r.ContentLength != 0 {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
	}
	if err := apiutil.Validate(req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentRequestTimeout)
	defer cancel()

	result, err := paymentLedger.Refund(ctx, ledger.RefundParams{
		PaymentID:   paymentID,
		AmountCents: req.AmountCents,
		Reason:      req.Reason,
		ActorID:     actor.ID,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resp := refundResponse{
		Payment:         ledger.NewPaymentView(result.Payment),
		RefundedCents:   result.RefundedCents,
		GatewayRefundID: result.GatewayRefundID,
		BookingStatus:   result.Booking.Status,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write refund response")
	}
}

// checkBookingAccess allows staff and the booking's owner.
func checkBookingAccess(ctx context.Context, actor *authz.Actor, bookingID int64) error {
	if actor.IsStaff {
		return nil
	}
	booking, err := queries.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("booking %d: %w", bookingID, models.ErrNotFound)
		}
		return fmt.Errorf("load booking: %w", err)
	}
	if booking.UserID != actor.ID {
		return authz.ErrForbidden
	}
	return nil
}

func allow(w http.ResponseWriter, r *http.Request, actorID int64, ip string) bool {
	if limiter == nil {
		return true
	}
	result := limiter.Check(ratelimit.ActionPayment, actorID, ip)
	if result.Allowed {
		return true
	}
	ratelimit.LogRateLimitExceeded(ratelimit.ActionPayment, actorID, ip, result.Reason)
	seconds := max(1, int(result.RetryAfter.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "Too many requests"})
	return false
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if paymentLedger == nil || orchestrator == nil || reconciler == nil || queries == nil {
		log.Ctx(r.Context()).Error().Msg("Payment handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}
