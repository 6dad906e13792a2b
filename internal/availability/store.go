package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbgen "github.com/codr1/courtledger/internal/db/generated"
	"github.com/codr1/courtledger/internal/models"
)

// CourtDay is everything the calculator needs about one court on one date.
type CourtDay struct {
	Court    dbgen.Court
	Location *time.Location
	Date     time.Time
	Hours    OpeningHours
	Pricing  Pricing
	Bookings []Range
	Blocked  []Range
}

// LoadCourtDay reads the court, its establishment hours for the weekday of
// date, active bookings and blocks. Pass a transactional querier when the
// result guards a write.
func LoadCourtDay(ctx context.Context, q dbgen.Querier, courtID int64, date string, fallbackTZ string) (CourtDay, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return CourtDay{}, models.Invalid("date", "must be YYYY-MM-DD")
	}

	court, err := q.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourtDay{}, fmt.Errorf("court %d: %w", courtID, models.ErrNotFound)
		}
		return CourtDay{}, fmt.Errorf("load court: %w", err)
	}

	establishment, err := q.GetEstablishment(ctx, court.EstablishmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourtDay{}, fmt.Errorf("establishment %d: %w", court.EstablishmentID, models.ErrNotFound)
		}
		return CourtDay{}, fmt.Errorf("load establishment: %w", err)
	}

	loc, err := resolveLocation(establishment.Timezone, fallbackTZ)
	if err != nil {
		return CourtDay{}, err
	}

	result := CourtDay{
		Court:    court,
		Location: loc,
		Date:     day,
		Pricing:  PricingForCourt(court),
	}

	hours, err := q.GetEstablishmentHours(ctx, dbgen.GetEstablishmentHoursParams{
		EstablishmentID: court.EstablishmentID,
		DayOfWeek:       int64(day.Weekday()),
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result.Hours = OpeningHours{Closed: true}
	case err != nil:
		return CourtDay{}, fmt.Errorf("load opening hours: %w", err)
	default:
		result.Hours = OpeningHours{Opens: hours.OpensAt, Closes: hours.ClosesAt}
	}
	if !establishment.IsActive || !court.IsActive {
		result.Hours = OpeningHours{Closed: true}
	}

	bookings, err := q.ListActiveBookingsForCourtDate(ctx, dbgen.ListActiveBookingsForCourtDateParams{
		CourtID:     courtID,
		BookingDate: date,
	})
	if err != nil {
		return CourtDay{}, fmt.Errorf("list bookings: %w", err)
	}
	for _, b := range bookings {
		r, err := ParseRange(b.StartTime, b.EndTime)
		if err != nil {
			return CourtDay{}, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		result.Bookings = append(result.Bookings, r)
	}

	blocked, err := q.ListBlockedSlotsForCourtDate(ctx, dbgen.ListBlockedSlotsForCourtDateParams{
		CourtID:     courtID,
		BookingDate: date,
	})
	if err != nil {
		return CourtDay{}, fmt.Errorf("list blocked slots: %w", err)
	}
	for _, b := range blocked {
		r, err := ParseRange(b.StartTime, b.EndTime)
		if err != nil {
			return CourtDay{}, fmt.Errorf("blocked slot %d: %w", b.ID, err)
		}
		result.Blocked = append(result.Blocked, r)
	}

	return result, nil
}

// PricingForCourt builds the typed pricing from the court's stored columns.
func PricingForCourt(court dbgen.Court) Pricing {
	pricing := Pricing{HourlyCents: court.HourlyPriceCents, Tiers: map[int]int64{}}
	for duration, price := range map[int]sql.NullInt64{
		60:  court.Price60Cents,
		90:  court.Price90Cents,
		120: court.Price120Cents,
	} {
		if price.Valid {
			pricing.Tiers[duration] = price.Int64
		}
	}
	return pricing
}

func resolveLocation(name, fallback string) (*time.Location, error) {
	if name == "" {
		name = fallback
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("establishment timezone %q: %w", name, err)
	}
	return loc, nil
}

// ForCourt loads the court's day and computes its free slots. An inactive
// court reports no slots with its own reason instead of looking closed.
func (c Calculator) ForCourt(ctx context.Context, q dbgen.Querier, courtID int64, date string, durationMinutes int, fallbackTZ string) (Result, error) {
	day, err := LoadCourtDay(ctx, q, courtID, date, fallbackTZ)
	if err != nil {
		return Result{}, err
	}
	if !day.Court.IsActive {
		return Result{Slots: []Slot{}, Reason: ReasonCourtInactive}, nil
	}
	return c.ComputeSlots(day.Hours, durationMinutes, day.Bookings, day.Blocked, day.Pricing)
}
