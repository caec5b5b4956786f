package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeeStatusTransitions(t *testing.T) {
	assert.True(t, FeeStatusUnpaid.CanTransitionTo(FeeStatusProcessing))
	assert.True(t, FeeStatusProcessing.CanTransitionTo(FeeStatusPaid))
	assert.True(t, FeeStatusProcessing.CanTransitionTo(FeeStatusFailed))
	assert.True(t, FeeStatusFailed.CanTransitionTo(FeeStatusProcessing))

	assert.False(t, FeeStatusUnpaid.CanTransitionTo(FeeStatusPaid))
	assert.False(t, FeeStatusUnpaid.CanTransitionTo(FeeStatusFailed))
	assert.False(t, FeeStatusPaid.CanTransitionTo(FeeStatusProcessing))
	assert.False(t, FeeStatusProcessing.CanTransitionTo(FeeStatusUnpaid))

	assert.True(t, FeeStatusUnpaid.Payable())
	assert.True(t, FeeStatusFailed.Payable())
	assert.False(t, FeeStatusProcessing.Payable())
	assert.False(t, FeeStatusPaid.Payable())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.Sendable())
	assert.True(t, PaymentStatusFailed.Sendable())
	assert.False(t, PaymentStatusProcessing.Sendable())
	assert.False(t, PaymentStatusPaid.Sendable())
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPaid))
	assert.False(t, PaymentStatus("refunded").Valid())
}

func TestPaymentFilterMatches(t *testing.T) {
	due := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	p := Payment{
		ClubID: 1,
		Member: Member{Name: "Mette Hansen", Email: "mette@example.dk"},
		Title:  "Spring fee",
		DueAt:  &due,
		Status: PaymentStatusPending,
	}
	day := func(s string) *time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return &d
	}

	assert.True(t, PaymentFilter{}.Matches(p))
	assert.True(t, PaymentFilter{Search: "METTE"}.Matches(p))
	assert.True(t, PaymentFilter{Search: "example.dk"}.Matches(p))
	assert.True(t, PaymentFilter{Search: "spring"}.Matches(p))
	assert.False(t, PaymentFilter{Search: "lars"}.Matches(p))
	assert.False(t, PaymentFilter{Status: PaymentStatusPaid}.Matches(p))
	assert.False(t, PaymentFilter{ClubID: 2}.Matches(p))
	assert.True(t, PaymentFilter{DateFrom: day("2026-03-10"), DateTo: day("2026-03-10")}.Matches(p))
	assert.False(t, PaymentFilter{DateTo: day("2026-03-09")}.Matches(p))
	assert.False(t, PaymentFilter{DateFrom: day("2026-03-11")}.Matches(p))

	p.DueAt = nil
	assert.False(t, PaymentFilter{DateFrom: day("2026-01-01")}.Matches(p))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150.00 DKK", FormatAmount(15000, CurrencyDKK))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, CurrencyEUR))
	assert.Equal(t, "1200.99 USD", FormatAmount(120099, CurrencyUSD))
}

func TestClubSettingsApplyMergesRSVPDefaults(t *testing.T) {
	s := ClubSettings{
		Name:         "Tigers FC",
		PrimaryColor: "#1F4ED8",
		RSVPDefaults: RSVPDefaults{DeadlineHours: 24, Visibility: "members", AutoReminders: true, ReminderHours: 2},
	}
	hours := 48
	name := "Tigers"
	got := s.Apply(ClubSettingsUpdate{Name: &name, RSVPDefaults: &RSVPDefaultsUpdate{DeadlineHours: &hours}})

	assert.Equal(t, "Tigers", got.Name)
	assert.Equal(t, 48, got.RSVPDefaults.DeadlineHours)
	assert.Equal(t, "members", got.RSVPDefaults.Visibility)
	assert.True(t, got.RSVPDefaults.AutoReminders)
	assert.Equal(t, 24, s.RSVPDefaults.DeadlineHours)
}

func TestActivityWithResponse(t *testing.T) {
	a := Activity{RSVP: RSVPSummary{Going: 3, NotGoing: 1}}

	a = a.WithResponse(nil, RSVPGoing)
	assert.Equal(t, 4, a.RSVP.Going)
	assert.Equal(t, RSVPGoing, *a.RSVP.UserResponse)

	prev := RSVPGoing
	a = a.WithResponse(&prev, RSVPNotGoing)
	assert.Equal(t, 3, a.RSVP.Going)
	assert.Equal(t, 2, a.RSVP.NotGoing)

	empty := Activity{}
	notGoing := RSVPNotGoing
	empty = empty.WithResponse(&notGoing, RSVPGoing)
	assert.Equal(t, 0, empty.RSVP.NotGoing)
	assert.Equal(t, 1, empty.RSVP.Going)
}

func TestStatusesBefore(t *testing.T) {
	assert.Empty(t, PaymentStatusesBefore(PaymentStatusPending))
	assert.ElementsMatch(t, []PaymentStatus{PaymentStatusPending, PaymentStatusFailed}, PaymentStatusesBefore(PaymentStatusProcessing))
}
