package split

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtledger/internal/db"
	"github.com/codr1/courtledger/internal/models"
	"github.com/codr1/courtledger/internal/testutil"
)

func createPlan(t *testing.T, database *db.DB, params CreateParams, now time.Time) Plan {
	t.Helper()

	var plan Plan
	err := database.RunInTx(context.Background(), func(txdb *db.DB) error {
		var err error
		plan, err = CreateTx(context.Background(), txdb.Queries, params, now)
		return err
	})
	if err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	return plan
}

func TestCreateTxSplitsEvenlyWithPlaceholders(t *testing.T) {
	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database, "UTC", 1000)
	booking := testutil.SeedBooking(t, database, facility, testutil.BookingSeed{TotalCents: 1000, PaymentType: "split"})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := createPlan(t, database, CreateParams{
		BookingID:         booking.ID,
		OrganizerID:       booking.UserID,
		TotalAmountCents:  1000,
		TotalParticipants: 4,
		Participants:      []ParticipantInput{{Email: " ana@example.com "}},
		ExpiresInHours:    24,
	}, now)

	if plan.Split.AmountPerPersonCents != 250 {
		t.Fatalf("per person = %d, want 250", plan.Split.AmountPerPersonCents)
	}
	if len(plan.Split.InviteCode) != inviteCodeLength {
		t.Fatalf("invite code %q has wrong length", plan.Split.InviteCode)
	}
	if !plan.Split.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expires at %v, want %v", plan.Split.ExpiresAt, now.Add(24*time.Hour))
	}
	if len(plan.Participants) != 4 {
		t.Fatalf("participants = %d, want 4", len(plan.Participants))
	}
	if plan.Participants[0].Email.String != "ana@example.com" {
		t.Fatalf("first participant email = %q", plan.Participants[0].Email.String)
	}
	var sum int64
	for i, p := range plan.Participants {
		sum += p.AmountCents
		if p.Status != string(models.ParticipantPending) {
			t.Fatalf("participant %d status %q", i, p.Status)
		}
		if i > 0 && p.Name.String == "" {
			t.Fatalf("placeholder participant %d has no name", i)
		}
	}
	if sum != 1000 {
		t.Fatalf("share sum = %d, want 1000", sum)
	}
}

func TestCreateTxRemainderGoesToFirstShare(t *testing.T) {
	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database, "UTC", 1000)
	booking := testutil.SeedBooking(t, database, facility, testutil.BookingSeed{TotalCents: 1001, PaymentType: "split"})

	plan := createPlan(t, database, CreateParams{
		BookingID:         booking.ID,
		OrganizerID:       1,
		TotalAmountCents:  1001,
		TotalParticipants: 3,
		ExpiresInHours:    1,
	}, time.Now().UTC())

	want := []int64{335, 333, 333}
	for i, p := range plan.Participants {
		if p.AmountCents != want[i] {
			t.Fatalf("share %d = %d, want %d", i, p.AmountCents, want[i])
		}
	}
}

func TestCreateTxRejectsBadInput(t *testing.T) {
	database := testutil.NewTestDB(t)
	facility := testutil.SeedFacility(t, database, "UTC", 1000)
	booking := testutil.SeedBooking(t, database, facility, testutil.BookingSeed{TotalCents: 1000})

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{
			name:   "one participant",
			params: CreateParams{TotalAmountCents: 1000, TotalParticipants: 1, ExpiresInHours: 24},
			want:   models.ErrInvalidParticipantCount,
		},
		{
			name: "more listed than shares",
			params: CreateParams{TotalAmountCents: 1000, TotalParticipants: 2, ExpiresInHours: 24, Participants: []ParticipantInput{
				{Name: "a"}, {Name: "b"}, {Name: "c"},
			}},
			want: models.ErrInvalidParticipantCount,
		},
		{
			name:   "total below share count",
			params: CreateParams{TotalAmountCents: 1, TotalParticipants: 2, ExpiresInHours: 24},
			want:   models.ErrInvalidPaymentAmount,
		},
		{
			name:   "bad email",
			params: CreateParams{TotalAmountCents: 1000, TotalParticipants: 2, ExpiresInHours: 24, Participants: []ParticipantInput{{Email: "nope"}}},
			want:   models.ErrValidation,
		},
		{
			name:   "bad phone",
			params: CreateParams{TotalAmountCents: 1000, TotalParticipants: 2, ExpiresInHours: 24, Participants: []ParticipantInput{{Phone: "12"}}},
			want:   models.ErrValidation,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.params.BookingID = booking.ID
			tc.params.OrganizerID = 1
			_, err := CreateTx(context.Background(), database.Queries, tc.params, time.Now().UTC())
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{raw: "(415) 555-2671", region: "US", want: "+14155552671"},
		{raw: "+44 20 7031 3000", region: "", want: "+442070313000"},
		{raw: "415.555.2671", region: "us", want: "+14155552671"},
		{raw: "555", region: "US", wantErr: true},
	}
	for _, tc := range tests {
		got, err := NormalizePhone(tc.raw, tc.region)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q) = %q, want error", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseExternalReference(t *testing.T) {
	tests := []struct {
		ref           string
		split, member int64
		ok            bool
	}{
		{"12_34", 12, 34, true},
		{" 1_2 ", 1, 2, true},
		{"12", 0, 0, false},
		{"a_1", 0, 0, false},
		{"1_0", 0, 0, false},
		{"1_2_3", 0, 0, false},
	}
	for _, tc := range tests {
		split, member, ok := ParseExternalReference(tc.ref)
		if ok != tc.ok || split != tc.split || member != tc.member {
			t.Errorf("ParseExternalReference(%q) = %d, %d, %v", tc.ref, split, member, ok)
		}
	}
	if got := ExternalReference(7, 9); got != "7_9" {
		t.Fatalf("ExternalReference = %q", got)
	}
}
