// internal/models/status.go
package models

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingNoShow     BookingStatus = "no_show"
	BookingCancelled  BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses that hold a court for their time range.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingInProgress, BookingCancelled},
	BookingConfirmed:  {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted, BookingNoShow, BookingCancelled},
}

func ParseBookingStatus(value string) (BookingStatus, bool) {
	switch status := BookingStatus(value); status {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingNoShow, BookingCancelled:
		return status, true
	}
	return "", false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingInProgress
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LedgerStatus is the booking-level payment status derived from the ledger.
type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerPartial   LedgerStatus = "partial"
	LedgerCompleted LedgerStatus = "completed"
	LedgerRefunded  LedgerStatus = "refunded"
	LedgerFailed    LedgerStatus = "failed"
)

type PaymentType string

const (
	PaymentTypeFull  PaymentType = "full"
	PaymentTypeSplit PaymentType = "split"
)

func ParsePaymentType(value string) (PaymentType, bool) {
	switch pt := PaymentType(value); pt {
	case PaymentTypeFull, PaymentTypeSplit:
		return pt, true
	case "":
		return PaymentTypeFull, true
	}
	return "", false
}

// PaymentStatus is the status of a single payment attempt.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Rank orders payment statuses for monotonic updates. Completed, failed and
// cancelled share a rank so a settled payment never flips between them.
func (s PaymentStatus) Rank() int {
	switch s {
	case PaymentPending:
		return 0
	case PaymentProcessing:
		return 1
	case PaymentCompleted, PaymentFailed, PaymentCancelled:
		return 2
	case PaymentRefunded:
		return 3
	}
	return -1
}

func (s PaymentStatus) IsTerminal() bool {
	return s.Rank() >= 2
}

// CanAdvanceTo reports whether a gateway-driven update from s to next moves forward.
// Refunds never arrive this way.
func (s PaymentStatus) CanAdvanceTo(next PaymentStatus) bool {
	if next == PaymentRefunded || s.IsTerminal() {
		return false
	}
	return next.Rank() > s.Rank()
}

type SplitStatus string

const (
	SplitPending   SplitStatus = "pending"
	SplitPartial   SplitStatus = "partial"
	SplitCompleted SplitStatus = "completed"
	SplitCancelled SplitStatus = "cancelled"
	SplitExpired   SplitStatus = "expired"
)

func (s SplitStatus) IsOpen() bool {
	return s == SplitPending || s == SplitPartial
}

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantPaid      ParticipantStatus = "paid"
	ParticipantFailed    ParticipantStatus = "failed"
	ParticipantCancelled ParticipantStatus = "cancelled"
)

// IsPayable reports whether a share can still be paid.
func (s ParticipantStatus) IsPayable() bool {
	return s == ParticipantPending || s == ParticipantFailed
}
