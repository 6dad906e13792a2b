// Package split divides a booking's cost among participants and reconciles
// their individual payments into the booking's payment state.
package split

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/models"
)

const (
	MinParticipants    = 2
	inviteCodeLength   = 10
	inviteCodeAttempts = 5
	defaultPhoneRegion = "US"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ParticipantInput struct {
	UserID *int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Name   string `json:"name,omitempty" validate:"omitempty,max=120"`
	Phone  string `json:"phone,omitempty"`
}

func (p ParticipantInput) hasIdentity() bool {
	return p.UserID != nil || strings.TrimSpace(p.Email) != "" || strings.TrimSpace(p.Name) != "" || strings.TrimSpace(p.Phone) != ""
}

type CreateParams struct {
	BookingID         int64
	OrganizerID       int64
	TotalAmountCents  int64
	TotalParticipants int
	Participants      []ParticipantInput
	ExpiresInHours    int
	PhoneRegion       string
}

// Plan is a split payment with its participants, in creation order.
type Plan struct {
	Split        dbgen.SplitPayment
	Participants []dbgen.SplitPaymentParticipant
}

// CreateTx persists a split plan for a booking using q, which must be the
// transaction that created or locked the booking. Participants beyond the
// listed ones are created as named placeholders so every share exists up front.
func CreateTx(ctx context.Context, q dbgen.Querier, params CreateParams, now time.Time) (Plan, error) {
	if params.TotalParticipants < MinParticipants {
		return Plan{}, fmt.Errorf("%d participants: %w", params.TotalParticipants, models.ErrInvalidParticipantCount)
	}
	if len(params.Participants) > params.TotalParticipants {
		return Plan{}, fmt.Errorf("%d participants listed for %d shares: %w", len(params.Participants), params.TotalParticipants, models.ErrInvalidParticipantCount)
	}
	if params.TotalAmountCents < int64(params.TotalParticipants) {
		return Plan{}, fmt.Errorf("total %d cannot cover %d shares: %w", params.TotalAmountCents, params.TotalParticipants, models.ErrInvalidPaymentAmount)
	}
	if params.ExpiresInHours <= 0 {
		return Plan{}, models.Invalid("expires_in_hours", "must be positive")
	}

	inputs := make([]ParticipantInput, params.TotalParticipants)
	copy(inputs, params.Participants)
	for i := range inputs {
		normalized, err := normalizeParticipant(inputs[i], params.PhoneRegion)
		if err != nil {
			return Plan{}, err
		}
		if !normalized.hasIdentity() {
			normalized.Name = "Player " + strconv.Itoa(i+1)
		}
		inputs[i] = normalized
	}

	perPerson, shares := models.SplitShares(params.TotalAmountCents, params.TotalParticipants)
	expiresAt := now.Add(time.Duration(params.ExpiresInHours) * time.Hour)

	var plan Plan
	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		plan.Split, err = q.CreateSplitPayment(ctx, dbgen.CreateSplitPaymentParams{
			BookingID:            params.BookingID,
			OrganizerID:          params.OrganizerID,
			TotalAmountCents:     params.TotalAmountCents,
			AmountPerPersonCents: perPerson,
			TotalParticipants:    int64(params.TotalParticipants),
			InviteCode:           NewInviteCode(),
			ExpiresAt:            expiresAt,
			Now:                  now,
		})
		if err == nil || !db.IsUniqueViolation(err) {
			break
		}
		if _, lookupErr := q.GetSplitPaymentByBooking(ctx, params.BookingID); lookupErr == nil {
			return Plan{}, models.Invalid("booking_id", "already has a split payment")
		}
	}
	if err != nil {
		return Plan{}, fmt.Errorf("create split payment: %w", err)
	}

	plan.Participants = make([]dbgen.SplitPaymentParticipant, 0, len(inputs))
	for i, input := range inputs {
		participant, err := q.CreateSplitParticipant(ctx, dbgen.CreateSplitParticipantParams{
			SplitPaymentID: plan.Split.ID,
			UserID:         nullInt64(input.UserID),
			Email:          nullString(input.Email),
			Name:           nullString(input.Name),
			Phone:          nullString(input.Phone),
			AmountCents:    shares[i],
			Now:            now,
		})
		if err != nil {
			return Plan{}, fmt.Errorf("create split participant: %w", err)
		}
		plan.Participants = append(plan.Participants, participant)
	}

	return plan, nil
}

// NewInviteCode returns a short upper-case code for sharing a split plan.
func NewInviteCode() string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(code[:inviteCodeLength])
}

func normalizeParticipant(p ParticipantInput, region string) (ParticipantInput, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return p, models.Invalid("participants."+strings.ToLower(fieldErrs[0].Field()), "is invalid")
		}
		return p, models.Invalid("participants", err.Error())
	}
	if p.Phone != "" {
		phone, err := NormalizePhone(p.Phone, region)
		if err != nil {
			return p, err
		}
		p.Phone = phone
	}
	return p, nil
}

// NormalizePhone parses a participant phone number and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", models.Invalid("participants.phone", "is not a valid phone number")
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// ExternalReference is the gateway reference for one participant's share.
func ExternalReference(splitPaymentID, participantID int64) string {
	return fmt.Sprintf("%d_%d", splitPaymentID, participantID)
}

// ParseExternalReference splits "{splitPaymentId}_{participantId}".
func ParseExternalReference(ref string) (splitPaymentID, participantID int64, ok bool) {
	left, right, found := strings.Cut(strings.TrimSpace(ref), "_")
	if !found {
		return 0, 0, false
	}
	splitID, err := strconv.ParseInt(left, 10, 64)
	if err != nil || splitID <= 0 {
		return 0, 0, false
	}
	participant, err := strconv.ParseInt(right, 10, 64)
	if err != nil || participant <= 0 {
		return 0, 0, false
	}
	return splitID, participant, true
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}
