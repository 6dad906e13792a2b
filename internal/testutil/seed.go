package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codr1/courtledger/internal/db"
	dbgen "github.com/codr1/courtledger/internal/db/generated"
)

var checkInSeq atomic.Int64

// Facility is a seeded establishment with one court open every day.
type Facility struct {
	EstablishmentID int64
	CourtID         int64
}

// SeedEstablishment inserts an establishment in timezone tz and returns its id.
func SeedEstablishment(t *testing.T, database *db.DB, tz string) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO establishments (name, timezone) VALUES (?, ?)",
		"Test Club",
		tz,
	)
	if err != nil {
		t.Fatalf("insert establishment: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("establishment id: %v", err)
	}
	return id
}

// SeedHours opens the establishment on every weekday between opens and closes.
func SeedHours(t *testing.T, database *db.DB, establishmentID int64, opens, closes string) {
	t.Helper()

	for day := 0; day < 7; day++ {
		if _, err := database.ExecContext(context.Background(),
			"INSERT OR REPLACE INTO establishment_hours (establishment_id, day_of_week, opens_at, closes_at) VALUES (?, ?, ?, ?)",
			establishmentID,
			day,
			opens,
			closes,
		); err != nil {
			t.Fatalf("insert hours: %v", err)
		}
	}
}

// CourtPricing describes a seeded court's rates in cents. Zero tier prices are left unset.
type CourtPricing struct {
	HourlyCents int64
	Price60     int64
	Price90     int64
	Price120    int64
}

func SeedCourt(t *testing.T, database *db.DB, establishmentID int64, pricing CourtPricing) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		`INSERT INTO courts (establishment_id, name, hourly_price_cents, price_60_cents, price_90_cents, price_120_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		establishmentID,
		"Court 1",
		pricing.HourlyCents,
		nullCents(pricing.Price60),
		nullCents(pricing.Price90),
		nullCents(pricing.Price120),
	)
	if err != nil {
		t.Fatalf("insert court: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("court id: %v", err)
	}
	return id
}

// SeedFacility creates an establishment open 08:00-22:00 in tz with one court at hourlyCents.
func SeedFacility(t *testing.T, database *db.DB, tz string, hourlyCents int64) Facility {
	t.Helper()

	establishmentID := SeedEstablishment(t, database, tz)
	SeedHours(t, database, establishmentID, "08:00", "22:00")
	courtID := SeedCourt(t, database, establishmentID, CourtPricing{HourlyCents: hourlyCents})
	return Facility{EstablishmentID: establishmentID, CourtID: courtID}
}

func SeedBlockedSlot(t *testing.T, database *db.DB, courtID int64, date, start, end string) {
	t.Helper()

	if _, err := database.ExecContext(context.Background(),
		"INSERT INTO blocked_slots (court_id, booking_date, start_time, end_time, reason) VALUES (?, ?, ?, ?, ?)",
		courtID,
		date,
		start,
		end,
		"maintenance",
	); err != nil {
		t.Fatalf("insert blocked slot: %v", err)
	}
}

func SeedConsumption(t *testing.T, database *db.DB, bookingID int64, description string, totalCents int64) {
	t.Helper()

	if _, err := database.ExecContext(context.Background(),
		"INSERT INTO consumptions (booking_id, description, quantity, total_cents) VALUES (?, ?, 1, ?)",
		bookingID,
		description,
		totalCents,
	); err != nil {
		t.Fatalf("insert consumption: %v", err)
	}
}

func nullCents(value int64) sql.NullInt64 {
	return sql.NullInt64{Int64: value, Valid: value > 0}
}

// BookingSeed describes a booking inserted directly, bypassing availability checks.
type BookingSeed struct {
	UserID       int64
	Date         string
	Start        string
	End          string
	TotalCents   int64
	PaymentType  string
	ContactEmail string
}

// SeedBooking inserts a pending booking on the facility's court.
func SeedBooking(t *testing.T, database *db.DB, facility Facility, seed BookingSeed) dbgen.Booking {
	t.Helper()

	if seed.UserID == 0 {
		seed.UserID = 1
	}
	if seed.Date == "" {
		seed.Date = time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	}
	if seed.Start == "" {
		seed.Start, seed.End = "10:00", "11:00"
	}
	if seed.PaymentType == "" {
		seed.PaymentType = "full"
	}
	day, err := time.Parse("2006-01-02 15:04", seed.Date+" "+seed.Start)
	if err != nil {
		t.Fatalf("parse booking start: %v", err)
	}
	end, err := time.Parse("15:04", seed.End)
	if err != nil {
		t.Fatalf("parse booking end: %v", err)
	}
	start, _ := time.Parse("15:04", seed.Start)

	booking, err := database.Queries.CreateBooking(context.Background(), dbgen.CreateBookingParams{
		CourtID:          facility.CourtID,
		EstablishmentID:  facility.EstablishmentID,
		UserID:           seed.UserID,
		BookingDate:      seed.Date,
		StartTime:        seed.Start,
		EndTime:          seed.End,
		DurationMinutes:  int64(end.Sub(start).Minutes()),
		StartsAt:         day.UTC(),
		TotalAmountCents: seed.TotalCents,
		PaymentType:      seed.PaymentType,
		PlayerCount:      1,
		CheckInCode:      fmt.Sprintf("SEED%04d", checkInSeq.Add(1)),
		ContactEmail:     sql.NullString{String: seed.ContactEmail, Valid: seed.ContactEmail != ""},
		Now:              time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return booking
}

// SeedSplitPlan inserts an open split plan for the booking with equal shares,
// the remainder on the first. It returns the plan id.
func SeedSplitPlan(t *testing.T, database *db.DB, bookingID, totalCents int64, shares int) int64 {
	t.Helper()

	ctx := context.Background()
	perPerson := totalCents / int64(shares)
	result, err := database.ExecContext(ctx,
		`INSERT INTO split_payments (booking_id, organizer_id, total_amount_cents, amount_per_person_cents, total_participants, invite_code, expires_at)
		 VALUES (?, 1, ?, ?, ?, ?, ?)`,
		bookingID,
		totalCents,
		perPerson,
		shares,
		fmt.Sprintf("SEEDPLAN%04d", checkInSeq.Add(1)),
		time.Now().UTC().Add(24*time.Hour),
	)
	if err != nil {
		t.Fatalf("insert split payment: %v", err)
	}
	splitID, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("split payment id: %v", err)
	}
	for i := 0; i < shares; i++ {
		amount := perPerson
		if i == 0 {
			amount += totalCents - perPerson*int64(shares)
		}
		if _, err := database.ExecContext(ctx,
			"INSERT INTO split_payment_participants (split_payment_id, name, amount_cents) VALUES (?, ?, ?)",
			splitID,
			fmt.Sprintf("Player %d", i+1),
			amount,
		); err != nil {
			t.Fatalf("insert split participant: %v", err)
		}
	}
	return splitID
}
