package bookings

import (
	"time"

	"github.com/codr1/courtledger/internal/api/apiutil"
	"github.com/codr1/courtledger/internal/booking"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/ledger"
)

type BookingView struct {
	ID                 int64      `json:"id"`
	CourtID            int64      `json:"court_id"`
	EstablishmentID    int64      `json:"establishment_id"`
	UserID             int64      `json:"user_id"`
	Date               string     `json:"date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	DurationMinutes    int64      `json:"duration_minutes"`
	TotalAmountCents   int64      `json:"total_amount_cents"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	PaymentType        string     `json:"payment_type"`
	PlayerCount        int64      `json:"player_count"`
	CheckInCode        string     `json:"check_in_code"`
	ContactEmail       string     `json:"contact_email,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewBookingView(b dbgen.Booking) BookingView {
	view := BookingView{
		ID:                 b.ID,
		CourtID:            b.CourtID,
		EstablishmentID:    b.EstablishmentID,
		UserID:             b.UserID,
		Date:               b.BookingDate,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		DurationMinutes:    b.DurationMinutes,
		TotalAmountCents:   b.TotalAmountCents,
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		PaymentType:        b.PaymentType,
		PlayerCount:        b.PlayerCount,
		CheckInCode:        b.CheckInCode,
		ContactEmail:       b.ContactEmail.String,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason.String,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.CancelledAt.Valid {
		view.CancelledAt = &b.CancelledAt.Time
	}
	if b.ConfirmedAt.Valid {
		view.ConfirmedAt = &b.ConfirmedAt.Time
	}
	if b.CompletedAt.Valid {
		view.CompletedAt = &b.CompletedAt.Time
	}
	return view
}

type createdResponse struct {
	Booking BookingView         `json:"booking"`
	Split   *apiutil.SplitView  `json:"split_payment,omitempty"`
	Deposit *ledger.PaymentView `json:"deposit,omitempty"`
}

type updateResponse struct {
	Booking BookingView             `json:"booking"`
	Warning *booking.PendingWarning `json:"warning,omitempty"`
}

type registerResponse struct {
	Payment ledger.PaymentView `json:"payment"`
	Ledger  ledger.Summary     `json:"ledger"`
}
