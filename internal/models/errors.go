// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable             = errors.New("slot unavailable")
	ErrInvalidTransition           = errors.New("invalid booking transition")
	ErrCancellationWindowViolation = errors.New("cancellation window violation")
	ErrAlreadyCancelled            = errors.New("booking already cancelled")
	ErrAlreadyCompleted            = errors.New("booking already completed")
	ErrInvalidPaymentAmount        = errors.New("invalid payment amount")
	ErrRefundNotAllowed            = errors.New("refund not allowed")
	ErrInvalidParticipantCount     = errors.New("invalid participant count")
	ErrSplitPaymentExpired         = errors.New("split payment expired")
	ErrSplitPaymentCancelled       = errors.New("split payment cancelled")
	ErrParticipantNotPayable       = errors.New("participant share is not payable")
	ErrUnknownReference            = errors.New("unknown external reference")
	ErrWebhookAuthenticationFailed = errors.New("webhook authentication failed")
	ErrInvalidWebhookPayload       = errors.New("invalid webhook payload")
	ErrGatewayUnavailable          = errors.New("payment gateway unavailable")
	ErrNotFound                    = errors.New("not found")
	ErrForbidden                   = errors.New("forbidden")
	ErrValidation                  = errors.New("validation failed")
)

// ValidationError describes a rejected input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}
