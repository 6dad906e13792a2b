package apiutil

import (
	"time"

	"github.com/codr1/courtledger/internal/split"
)

type ParticipantView struct {
	ID          int64      `json:"id"`
	UserID      *int64     `json:"user_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	PaymentID   *int64     `json:"payment_id,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type SplitView struct {
	ID                   int64             `json:"id"`
	BookingID            int64             `json:"booking_id"`
	OrganizerID          int64             `json:"organizer_id"`
	TotalAmountCents     int64             `json:"total_amount_cents"`
	AmountPerPersonCents int64             `json:"amount_per_person_cents"`
	TotalParticipants    int64             `json:"total_participants"`
	PaidParticipants     int64             `json:"paid_participants"`
	Status               string            `json:"status"`
	InviteCode           string            `json:"invite_code"`
	ExpiresAt            time.Time         `json:"expires_at"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	Participants         []ParticipantView `json:"participants"`
}

func NewSplitView(plan split.Plan) SplitView {
	s := plan.Split
	view := SplitView{
		ID:                   s.ID,
		BookingID:            s.BookingID,
		OrganizerID:          s.OrganizerID,
		TotalAmountCents:     s.TotalAmountCents,
		AmountPerPersonCents: s.AmountPerPersonCents,
		TotalParticipants:    s.TotalParticipants,
		PaidParticipants:     s.PaidParticipants,
		Status:               s.Status,
		InviteCode:           s.InviteCode,
		ExpiresAt:            s.ExpiresAt,
		Participants:         make([]ParticipantView, 0, len(plan.Participants)),
	}
	if s.CompletedAt.Valid {
		view.CompletedAt = &s.CompletedAt.Time
	}
	for _, p := range plan.Participants {
		pv := ParticipantView{
			ID:          p.ID,
			Email:       p.Email.String,
			Name:        p.Name.String,
			Phone:       p.Phone.String,
			AmountCents: p.AmountCents,
			Status:      p.Status,
		}
		if p.UserID.Valid {
			pv.UserID = &p.UserID.Int64
		}
		if p.PaymentID.Valid {
			pv.PaymentID = &p.PaymentID.Int64
		}
		if p.PaidAt.Valid {
			pv.PaidAt = &p.PaidAt.Time
		}
		view.Participants = append(view.Participants, pv)
	}
	return view
}
