package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/api/authz"
	"github.com/codr1/courtledger/internal/models"
)

const maxBodyBytes = 1 << 20

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return models.Invalid("body", "is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return models.Invalid("body", err.Error())
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return models.Invalid("body", "must contain a single JSON object")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError maps err to its status and writes it as JSON. Server-side
// failures are logged and their detail withheld from the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	resp := ErrorResponse{Error: code, Message: err.Error()}

	var handlerErr HandlerError
	if errors.As(err, &handlerErr) {
		resp.Message = handlerErr.Message
	}
	var fieldErr models.ValidationError
	if errors.As(err, &fieldErr) {
		resp.Field = fieldErr.Field
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		resp.Field = first.Field()
		resp.Message = fmt.Sprintf("%s failed %s validation", first.Field(), first.Tag())
	}

	logger := log.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
		if status == http.StatusInternalServerError {
			resp.Message = "Internal Server Error"
		}
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	if writeErr := WriteJSON(w, status, resp); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

var errorClasses = []struct {
	err    error
	status int
	code   string
}{
	{ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{authz.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{models.ErrWebhookAuthenticationFailed, http.StatusUnauthorized, "webhook_authentication_failed"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{models.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
	{models.ErrCancellationWindowViolation, http.StatusBadRequest, "cancellation_window_violation"},
	{models.ErrInvalidPaymentAmount, http.StatusBadRequest, "invalid_payment_amount"},
	{models.ErrRefundNotAllowed, http.StatusBadRequest, "refund_not_allowed"},
	{models.ErrInvalidParticipantCount, http.StatusBadRequest, "invalid_participant_count"},
	{models.ErrSplitPaymentExpired, http.StatusBadRequest, "split_payment_expired"},
	{models.ErrSplitPaymentCancelled, http.StatusBadRequest, "split_payment_cancelled"},
	{models.ErrParticipantNotPayable, http.StatusBadRequest, "participant_not_payable"},
	{models.ErrUnknownReference, http.StatusBadRequest, "unknown_reference"},
	{models.ErrInvalidWebhookPayload, http.StatusBadRequest, "invalid_webhook_payload"},
	{models.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{models.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable"},
}

// ErrUnsupportedMediaType rejects request bodies that are not JSON.
var ErrUnsupportedMediaType = errors.New("content type must be application/json")

// Classify returns the HTTP status and machine-readable code for err.
func Classify(err error) (int, string) {
	var handlerErr HandlerError
	if errors.As(err, &handlerErr) && handlerErr.Status != 0 {
		return handlerErr.Status, http.StatusText(handlerErr.Status)
	}
	for _, class := range errorClasses {
		if errors.Is(err, class.err) {
			return class.status, class.code
		}
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, "validation_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func StatusForError(err error) int {
	status, _ := Classify(err)
	return status
}

// RequireActor writes 401 and returns false when the request has no actor.
func RequireActor(w http.ResponseWriter, r *http.Request) (*authz.Actor, bool) {
	actor, err := authz.RequireActor(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
		WriteError(w, r, err)
		return nil, false
	}
	return actor, true
}

// RequireStaff writes 401 or 403 and returns false unless the actor is staff.
func RequireStaff(w http.ResponseWriter, r *http.Request) (*authz.Actor, bool) {
	actor, err := authz.RequireStaff(r.Context())
	if err != nil {
		logEvent := log.Ctx(r.Context()).Warn().Str("path", r.URL.Path)
		if current := authz.ActorFromContext(r.Context()); current != nil {
			logEvent = logEvent.Int64("actor_id", current.ID)
		}
		logEvent.Msg("Staff access denied")
		WriteError(w, r, err)
		return nil, false
	}
	return actor, true
}
