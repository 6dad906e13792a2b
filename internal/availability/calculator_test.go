package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/testutil"
)

func slotStarts(result Result) map[string]bool {
	starts := make(map[string]bool, len(result.Slots))
	for _, slot := range result.Slots {
		starts[slot.StartTime] = true
	}
	return starts
}

func TestComputeSlotsExcludesOverlappingBooking(t *testing.T) {
	hours := OpeningHours{Opens: "08:00", Closes: "22:00"}
	booked := []Range{{Start: 600, End: 660}}

	result, err := ComputeSlots(hours, 60, booked, nil, Pricing{HourlyCents: 6000})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}

	starts := slotStarts(result)
	tests := []struct {
		start string
		want  bool
	}{
		{"08:00", true},
		{"09:00", true},
		{"09:30", false},
		{"10:00", false},
		{"10:30", false},
		{"11:00", true},
		{"21:00", true},
		{"21:30", false},
	}
	for _, tc := range tests {
		if starts[tc.start] != tc.want {
			t.Errorf("slot %s present = %v, want %v", tc.start, starts[tc.start], tc.want)
		}
	}
	if result.Reason != "" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestComputeSlotsBlockedRangesAndTouchingBoundaries(t *testing.T) {
	hours := OpeningHours{Opens: "08:00", Closes: "12:00"}
	blocked := []Range{{Start: 540, End: 570}}

	result, err := ComputeSlots(hours, 30, nil, blocked, Pricing{HourlyCents: 1000})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	starts := slotStarts(result)
	if !starts["08:30"] || starts["09:00"] || !starts["09:30"] {
		t.Fatalf("unexpected slots around block: %+v", result.Slots)
	}
	if len(result.Slots) != 7 {
		t.Fatalf("slot count = %d, want 7", len(result.Slots))
	}
}

func TestComputeSlotsClosedDay(t *testing.T) {
	result, err := ComputeSlots(OpeningHours{Closed: true}, 60, nil, nil, Pricing{})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	if len(result.Slots) != 0 || result.Reason != ReasonClosed {
		t.Fatalf("closed day result = %+v", result)
	}
}

func TestComputeSlotsDurationLongerThanWindow(t *testing.T) {
	result, err := ComputeSlots(OpeningHours{Opens: "08:00", Closes: "09:00"}, 90, nil, nil, Pricing{HourlyCents: 100})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	if len(result.Slots) != 0 || result.Reason != ReasonTooLong {
		t.Fatalf("result = %+v", result)
	}
}

func TestComputeSlotsPricing(t *testing.T) {
	pricing := Pricing{HourlyCents: 6000, Tiers: map[int]int64{90: 8000}}
	hours := OpeningHours{Opens: "08:00", Closes: "10:00"}

	tests := []struct {
		duration int
		want     int64
	}{
		{duration: 60, want: 6000},
		{duration: 90, want: 8000},
		{duration: 45, want: 4500},
		{duration: 50, want: 5000},
	}
	for _, tc := range tests {
		result, err := ComputeSlots(hours, tc.duration, nil, nil, pricing)
		if err != nil {
			t.Fatalf("ComputeSlots(%d): %v", tc.duration, err)
		}
		if len(result.Slots) == 0 {
			t.Fatalf("no slots for duration %d", tc.duration)
		}
		if got := result.Slots[0].PriceCents; got != tc.want {
			t.Errorf("price for %d minutes = %d, want %d", tc.duration, got, tc.want)
		}
	}
}

func TestComputeSlotsRejectsInvalidInput(t *testing.T) {
	if _, err := ComputeSlots(OpeningHours{Opens: "08:00", Closes: "22:00"}, 0, nil, nil, Pricing{}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero duration error = %v", err)
	}
	if _, err := ComputeSlots(OpeningHours{Opens: "8am", Closes: "22:00"}, 60, nil, nil, Pricing{}); err == nil {
		t.Fatalf("expected error for malformed opening hours")
	}
	if _, err := ComputeSlots(OpeningHours{Opens: "22:00", Closes: "08:00"}, 60, nil, nil, Pricing{}); err == nil {
		t.Fatalf("expected error for inverted opening hours")
	}
	if _, err := ComputeSlots(OpeningHours{Opens: "08:00", Closes: "22:00"}, 60, nil, nil, Pricing{Tiers: map[int]int64{45: 100}}); err == nil {
		t.Fatalf("expected error for non-tier duration price")
	}
}

func TestOpeningHoursValidateUsesClockRule(t *testing.T) {
	tests := []struct {
		name  string
		hours OpeningHours
		field string
	}{
		{"opens out of range", OpeningHours{Opens: "25:00", Closes: "22:00"}, "Opens"},
		{"closes malformed", OpeningHours{Opens: "08:00", Closes: "10pm"}, "Closes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fieldErrs validator.ValidationErrors
			if err := tt.hours.Validate(); !errors.As(err, &fieldErrs) {
				t.Fatalf("Validate err = %v, want validator field errors", err)
			}
			if fieldErrs[0].Tag() != "clock" || fieldErrs[0].Field() != tt.field {
				t.Fatalf("failed rule %s on %s, want clock on %s", fieldErrs[0].Tag(), fieldErrs[0].Field(), tt.field)
			}
		})
	}
}

func TestCalculatorCustomStep(t *testing.T) {
	calc := Calculator{Step: time.Hour}
	result, err := calc.ComputeSlots(OpeningHours{Opens: "08:00", Closes: "11:00"}, 60, nil, nil, Pricing{})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	if len(result.Slots) != 3 {
		t.Fatalf("slot count = %d, want 3", len(result.Slots))
	}
}

func TestFits(t *testing.T) {
	hours := OpeningHours{Opens: "08:00", Closes: "22:00"}
	booked := []Range{{Start: 600, End: 660}}

	tests := []struct {
		name string
		want Range
		ok   bool
	}{
		{"before booking touching", Range{Start: 540, End: 600}, true},
		{"overlapping", Range{Start: 570, End: 630}, false},
		{"before open", Range{Start: 420, End: 480}, false},
		{"past close", Range{Start: 1290, End: 1350}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Fits(hours, tc.want, booked, nil)
			if err != nil {
				t.Fatalf("Fits: %v", err)
			}
			if ok != tc.ok {
				t.Fatalf("Fits = %v, want %v", ok, tc.ok)
			}
		})
	}
}

func TestLoadCourtDay(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	establishmentID := testutil.SeedEstablishment(t, database, "UTC")
	testutil.SeedHours(t, database, establishmentID, "08:00", "22:00")
	courtID := testutil.SeedCourt(t, database, establishmentID, testutil.CourtPricing{HourlyCents: 6000, Price90: 8000})
	testutil.SeedBlockedSlot(t, database, courtID, "2030-01-07", "12:00", "13:00")

	day, err := LoadCourtDay(ctx, database.Queries, courtID, "2030-01-07", "UTC")
	if err != nil {
		t.Fatalf("LoadCourtDay: %v", err)
	}
	if day.Hours.Opens != "08:00" || day.Hours.Closes != "22:00" {
		t.Fatalf("hours = %+v", day.Hours)
	}
	if day.Pricing.HourlyCents != 6000 || day.Pricing.Tiers[90] != 8000 {
		t.Fatalf("pricing = %+v", day.Pricing)
	}
	if _, ok := day.Pricing.Tiers[60]; ok {
		t.Fatalf("unset tier should not be present")
	}
	if len(day.Blocked) != 1 || day.Blocked[0] != (Range{Start: 720, End: 780}) {
		t.Fatalf("blocked = %+v", day.Blocked)
	}

	if _, err := LoadCourtDay(ctx, database.Queries, 999, "2030-01-07", "UTC"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing court error = %v", err)
	}
	if _, err := LoadCourtDay(ctx, database.Queries, courtID, "07/01/2030", "UTC"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("bad date error = %v", err)
	}
}

func TestCalculatorForCourt(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	facility := testutil.SeedFacility(t, database, "UTC", 6000)
	testutil.SeedBlockedSlot(t, database, facility.CourtID, "2030-01-07", "08:00", "21:00")

	calc := Calculator{Step: time.Hour}
	result, err := calc.ForCourt(ctx, database.Queries, facility.CourtID, "2030-01-07", 60, "UTC")
	if err != nil {
		t.Fatalf("ForCourt: %v", err)
	}
	if len(result.Slots) != 1 || result.Slots[0].StartTime != "21:00" || result.Slots[0].PriceCents != 6000 {
		t.Fatalf("slots = %+v", result.Slots)
	}

	if _, err := database.ExecContext(ctx, "UPDATE courts SET is_active = 0 WHERE id = ?", facility.CourtID); err != nil {
		t.Fatalf("deactivate court: %v", err)
	}
	result, err = calc.ForCourt(ctx, database.Queries, facility.CourtID, "2030-01-07", 60, "UTC")
	if err != nil {
		t.Fatalf("ForCourt inactive: %v", err)
	}
	if len(result.Slots) != 0 || result.Reason != ReasonCourtInactive {
		t.Fatalf("inactive result = %+v", result)
	}
}
