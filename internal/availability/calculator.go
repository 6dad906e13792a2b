// Package availability turns opening hours, existing bookings and manual
// blocks into the list of open, priced slots for one court and day.
package availability

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/codr1/courtledger/internal/models"
)

const (
	DefaultStep = 30 * time.Minute

	ReasonClosed        = "closed"
	ReasonTooLong       = "duration exceeds opening hours"
	ReasonFullyBooked   = "no free slots"
	ReasonCourtInactive = "court inactive"
)

// TierDurations are the only durations that may carry a fixed price.
var TierDurations = []int{60, 90, 120}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register clock validation: %v", err))
	}
	return v
}

// OpeningHours is the open window for one weekday, as "HH:MM" local clock times.
type OpeningHours struct {
	Closed bool
	Opens  string `validate:"required_if=Closed false,omitempty,clock"`
	Closes string `validate:"required_if=Closed false,omitempty,clock"`
}

func (h OpeningHours) Validate() error {
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("opening hours: %w", err)
	}
	if h.Closed {
		return nil
	}
	open, _ := models.ParseClock(h.Opens)
	closing, _ := models.ParseClock(h.Closes)
	if closing <= open {
		return fmt.Errorf("opening hours: closes %s must be after opens %s", h.Closes, h.Opens)
	}
	return nil
}

// Window returns the open range in minutes after midnight.
func (h OpeningHours) Window() (Range, error) {
	if err := h.Validate(); err != nil {
		return Range{}, err
	}
	if h.Closed {
		return Range{}, nil
	}
	open, _ := models.ParseClock(h.Opens)
	closing, _ := models.ParseClock(h.Closes)
	return Range{Start: open, End: closing}, nil
}

// Pricing holds the hourly rate and the optional fixed prices keyed by duration in minutes.
type Pricing struct {
	HourlyCents int64         `validate:"gte=0"`
	Tiers       map[int]int64 `validate:"dive,keys,oneof=60 90 120,endkeys,gte=0"`
}

func (p Pricing) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}

// PriceFor uses the tier price when one matches the duration exactly and
// otherwise pro-rates the hourly rate.
func (p Pricing) PriceFor(durationMinutes int) int64 {
	if price, ok := p.Tiers[durationMinutes]; ok {
		return price
	}
	return models.ProRate(p.HourlyCents, durationMinutes)
}

// Range is a half-open interval [Start, End) in minutes after midnight.
type Range struct {
	Start int
	End   int
}

// Overlaps uses half-open semantics: ranges that only touch do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && r.End > other.Start
}

func ParseRange(start, end string) (Range, error) {
	s, err := models.ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := models.ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	if e <= s {
		return Range{}, fmt.Errorf("end %s must be after start %s", end, start)
	}
	return Range{Start: s, End: e}, nil
}

type Slot struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

type Result struct {
	Slots  []Slot `json:"slots"`
	Reason string `json:"reason,omitempty"`
}

type Calculator struct {
	Step time.Duration
}

// ComputeSlots uses the default 30 minute step.
func ComputeSlots(hours OpeningHours, durationMinutes int, bookings, blocked []Range, pricing Pricing) (Result, error) {
	return Calculator{Step: DefaultStep}.ComputeSlots(hours, durationMinutes, bookings, blocked, pricing)
}

// ComputeSlots steps through [open, close-duration] and keeps every candidate
// that overlaps neither a booking nor a blocked range. It never mutates its inputs.
func (c Calculator) ComputeSlots(hours OpeningHours, durationMinutes int, bookings, blocked []Range, pricing Pricing) (Result, error) {
	if durationMinutes <= 0 {
		return Result{}, models.Invalid("duration", "must be positive")
	}
	if err := pricing.Validate(); err != nil {
		return Result{}, err
	}
	window, err := hours.Window()
	if err != nil {
		return Result{}, err
	}
	if hours.Closed {
		return Result{Slots: []Slot{}, Reason: ReasonClosed}, nil
	}
	if window.End-window.Start < durationMinutes {
		return Result{Slots: []Slot{}, Reason: ReasonTooLong}, nil
	}

	step := int(c.Step / time.Minute)
	if step <= 0 {
		step = int(DefaultStep / time.Minute)
	}

	price := pricing.PriceFor(durationMinutes)
	slots := make([]Slot, 0, (window.End-window.Start)/step+1)
	for t := window.Start; t+durationMinutes <= window.End; t += step {
		candidate := Range{Start: t, End: t + durationMinutes}
		if overlapsAny(candidate, bookings) || overlapsAny(candidate, blocked) {
			continue
		}
		slots = append(slots, Slot{
			StartTime:       models.FormatClock(candidate.Start),
			EndTime:         models.FormatClock(candidate.End),
			DurationMinutes: durationMinutes,
			PriceCents:      price,
		})
	}

	result := Result{Slots: slots}
	if len(slots) == 0 {
		result.Reason = ReasonFullyBooked
	}
	return result, nil
}

// Fits reports whether want lies inside the opening window and is free of
// the given bookings and blocks.
func Fits(hours OpeningHours, want Range, bookings, blocked []Range) (bool, error) {
	window, err := hours.Window()
	if err != nil {
		return false, err
	}
	if hours.Closed || want.Start < window.Start || want.End > window.End {
		return false, nil
	}
	return !overlapsAny(want, bookings) && !overlapsAny(want, blocked), nil
}

func overlapsAny(candidate Range, others []Range) bool {
	for _, other := range others {
		if candidate.Overlaps(other) {
			return true
		}
	}
	return false
}
