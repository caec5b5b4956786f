package store

import (
	"fmt"
	"time"

	"fanplatform.dk/internal/models"
)

// DemoProfileID is the profile served when authentication is not enforced.
const DemoProfileID = "1"

func DefaultClubSettings(clubID string) models.ClubSettings {
	return models.ClubSettings{
		ID:             clubID,
		Name:           "Tigers FC",
		LogoURL:        "https://images.unsplash.com/photo-1553778263-73a83bab9b0c?w=150&h=150&fit=crop",
		PrimaryColor:   "#1F4ED8",
		SecondaryColor: "#0EA5E9",
		RSVPDefaults: models.RSVPDefaults{
			DeadlineHours: 24,
			Visibility:    "members",
			AutoReminders: true,
			ReminderHours: 2,
		},
	}
}

func ptr(t time.Time) *time.Time { return &t }

// DemoRSVP is a seeded answer of a member to an activity.
type DemoRSVP struct {
	ActivityID string
	MemberID   string
	Response   models.RSVPResponse
}

// Demo is the development club: its fees, member payments, activities and the demo profile.
type Demo struct {
	Fees       []models.Fee
	Payments   []models.Payment
	Activities []models.Activity
	RSVPs      []DemoRSVP
	Profile    models.Profile
}

// DemoData builds the demo club with dates relative to now.
func DemoData(now time.Time) Demo {
	day := 24 * time.Hour
	var d Demo

	fees := []models.Fee{
		{ID: "fee-1", Title: "Monthly Membership Fee", AmountCents: 15000, DueAt: ptr(now.Add(7 * day)), Status: models.FeeStatusUnpaid, CreatedAt: now},
		{ID: "fee-2", Title: "Equipment Fund Contribution", AmountCents: 25000, DueAt: ptr(now.Add(14 * day)), Status: models.FeeStatusUnpaid, CreatedAt: now.Add(-2 * day)},
		{ID: "fee-3", Title: "Tournament Entry Fee", AmountCents: 30000, DueAt: ptr(now.Add(3 * day)), Status: models.FeeStatusUnpaid, CreatedAt: now.Add(-5 * day)},
		{ID: "fee-4", Title: "Annual Membership", AmountCents: 120000, Status: models.FeeStatusProcessing, CreatedAt: now.Add(-day), UpdatedAt: ptr(now.Add(-2 * time.Hour))},
		{ID: "fee-5", Title: "Training Camp Fee", AmountCents: 75000, DueAt: ptr(now.Add(-7 * day)), Status: models.FeeStatusPaid, CreatedAt: now.Add(-14 * day), UpdatedAt: ptr(now.Add(-6 * day))},
	}
	for _, f := range fees {
		f.ClubID = 1
		f.Currency = models.CurrencyDKK
		d.Fees = append(d.Fees, f)
	}

	members := []models.Member{
		{ID: "m-1", Name: "Mette Hansen", Email: "mette.hansen@example.dk", Phone: "+4520123456"},
		{ID: "m-2", Name: "Lars Nielsen", Email: "lars.nielsen@example.dk"},
		{ID: "m-3", Name: "Sofie Jensen", Email: "sofie.jensen@example.dk", Phone: "+4531234567"},
		{ID: "m-4", Name: "Anders Pedersen", Email: "anders.pedersen@example.dk"},
	}
	statuses := []models.PaymentStatus{
		models.PaymentStatusPending,
		models.PaymentStatusFailed,
		models.PaymentStatusProcessing,
		models.PaymentStatusPaid,
	}
	for i, member := range members {
		d.Payments = append(d.Payments, models.Payment{
			ID:          fmt.Sprintf("pay-%d", i+1),
			ClubID:      1,
			Member:      member,
			Title:       "Monthly Membership Fee",
			AmountCents: 15000,
			Currency:    models.CurrencyDKK,
			DueAt:       ptr(now.Add(time.Duration(i-1) * 7 * day)),
			Status:      statuses[i],
			CreatedAt:   now.Add(-time.Duration(10+i) * day),
		})
	}

	d.Activities = []models.Activity{
		{ID: "act-1", ClubID: 1, Title: "League Match vs. Lions", Type: models.ActivityMatch, StartsAt: now.Add(3 * day), Location: "Tigers Stadium", Opponent: &models.Opponent{Name: "Lions FC"}},
		{ID: "act-2", ClubID: 1, Title: "Tuesday Training", Type: models.ActivityTraining, StartsAt: now.Add(day), Location: "Training Ground B"},
		{ID: "act-3", ClubID: 1, Title: "Season Kick-off Dinner", Type: models.ActivitySocial, StartsAt: now.Add(10 * day), Location: "Clubhouse", Description: "Food, drinks and the new kit reveal."},
	}
	d.RSVPs = []DemoRSVP{
		{"act-1", "m-1", models.RSVPGoing},
		{"act-1", "m-2", models.RSVPGoing},
		{"act-1", "m-3", models.RSVPNotGoing},
		{"act-2", "m-1", models.RSVPGoing},
	}

	d.Profile = models.Profile{
		ID:          DemoProfileID,
		Name:        "John Doe",
		Email:       "john.doe@example.com",
		AvatarURL:   "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face",
		NotifyEmail: true,
		NotifyPush:  false,
	}
	return d
}

// Seed fills m with the demo club used during development.
func Seed(m *Memory, now time.Time) {
	d := DemoData(now)
	for _, f := range d.Fees {
		m.AddFee(f)
	}
	for _, p := range d.Payments {
		m.AddPayment(p)
	}
	for _, a := range d.Activities {
		m.AddActivity(a)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range d.RSVPs {
		m.rsvps[r.ActivityID] = setDefault(m.rsvps[r.ActivityID])
		m.rsvps[r.ActivityID][r.MemberID] = r.Response
	}
	m.profiles[d.Profile.ID] = d.Profile
}

func setDefault(in map[string]models.RSVPResponse) map[string]models.RSVPResponse {
	if in == nil {
		return make(map[string]models.RSVPResponse)
	}
	return in
}

// NewSeededMemory is a Memory with the demo club already loaded.
func NewSeededMemory(now time.Time) *Memory {
	m := NewMemory()
	Seed(m, now)
	return m
}
