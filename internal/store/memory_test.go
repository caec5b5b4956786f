package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanplatform.dk/internal/models"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMemory() *Memory {
	m := NewSeededMemory(testNow)
	m.SetClock(func() time.Time { return testNow.Add(time.Minute) })
	return m
}

func TestPageFollowsCursor(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	id := func(s string) string { return s }

	page, next := Page(items, "", 2, id)
	assert.Equal(t, []string{"a", "b"}, page)
	require.NotNil(t, next)
	assert.Equal(t, "b", *next)

	page, next = Page(items, *next, 2, id)
	assert.Equal(t, []string{"c", "d"}, page)
	require.NotNil(t, next)

	page, next = Page(items, *next, 2, id)
	assert.Equal(t, []string{"e"}, page)
	assert.Nil(t, next)

	page, next = Page(items, "e", 2, id)
	assert.Empty(t, page)
	assert.Nil(t, next)

	page, _ = Page(items, "unknown", 2, id)
	assert.Equal(t, []string{"a", "b"}, page)
}

func TestPageExactFit(t *testing.T) {
	items := []int{1, 2, 3, 4}
	id := func(i int) string { return strconv.Itoa(i) }

	page, next := Page(items, "", 4, id)
	assert.Len(t, page, 4)
	assert.Nil(t, next)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultPageLimit, ClampLimit(0))
	assert.Equal(t, DefaultPageLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxPageLimit, ClampLimit(1000))
}

func TestMemoryListPaymentsFilters(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	all, err := m.ListPayments(ctx, models.PaymentFilter{ClubID: 1})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	pending, err := m.ListPayments(ctx, models.PaymentFilter{Status: models.PaymentStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pay-1", pending[0].ID)

	byName, err := m.ListPayments(ctx, models.PaymentFilter{Search: "sofie"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "m-3", byName[0].Member.ID)
}

func TestMemoryStartIntentMovesFeeAndKeepsLatestAttempt(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()
	key := "pay:1:fee-1:c1"

	first, err := m.StartIntent(ctx, models.IntentRecord{IdempotencyKey: key, Attempt: 1, IntentID: "intent-a", ClubID: 1, FeeID: "fee-1"})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, first.Status)
	fee, err := m.GetFee(ctx, 1, "fee-1")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, fee.Status)

	_, err = m.StartIntent(ctx, models.IntentRecord{IdempotencyKey: key, Attempt: 1, IntentID: "intent-b", ClubID: 1, FeeID: "fee-1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = m.StartIntent(ctx, models.IntentRecord{IdempotencyKey: key, Attempt: 2, IntentID: "intent-b", ClubID: 1, FeeID: "fee-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "fee already processing")

	rec, fee, err := m.SettleIntent(ctx, "intent-a", models.FeeStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusFailed, rec.Status)
	assert.Equal(t, models.FeeStatusFailed, fee.Status)
	_, _, err = m.SettleIntent(ctx, "intent-a", models.FeeStatusPaid)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	second, err := m.StartIntent(ctx, models.IntentRecord{IdempotencyKey: key, Attempt: 2, IntentID: "intent-b", ClubID: 1, FeeID: "fee-1"})
	require.NoError(t, err)
	latest, err := m.GetIntentByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second.IntentID, latest.IntentID)
	assert.Equal(t, 2, latest.Attempt)

	_, err = m.GetIntentByKey(ctx, "pay:1:fee-2:c1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = m.SettleIntent(ctx, "intent-z", models.FeeStatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStartIntentRejectsPaidFee(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	_, err := m.StartIntent(ctx, models.IntentRecord{IdempotencyKey: "k", Attempt: 1, IntentID: "intent-a", ClubID: 1, FeeID: "fee-5"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.GetIntentByKey(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAccounts(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	acc := models.Account{ID: "acc-1", Name: "Ida", Email: "Ida@Example.dk", PasswordHash: "x", Role: models.RoleMember}
	require.NoError(t, m.CreateAccount(ctx, acc))
	assert.ErrorIs(t, m.CreateAccount(ctx, models.Account{ID: "acc-2", Email: "ida@example.dk"}), ErrDuplicate)

	got, err := m.GetAccountByEmail(ctx, "IDA@example.dk")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)

	profile, err := m.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Ida", profile.Name)
}

func TestMemoryRSVP(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	list, err := m.ListActivities(ctx, 1, "m-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "act-2", list[0].ID, "sorted by start time")

	act, err := m.SetRSVP(ctx, "act-1", "m-1", models.RSVPNotGoing)
	require.NoError(t, err)
	assert.Equal(t, 1, act.RSVP.Going)
	assert.Equal(t, 2, act.RSVP.NotGoing)
	require.NotNil(t, act.RSVP.UserResponse)
	assert.Equal(t, models.RSVPNotGoing, *act.RSVP.UserResponse)

	_, err = m.SetRSVP(ctx, "act-missing", "m-1", models.RSVPGoing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClubSettingsDefault(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	s, err := m.GetClubSettings(ctx, "tigers-fc")
	require.NoError(t, err)
	assert.Equal(t, "tigers-fc", s.ID)
	assert.Equal(t, 24, s.RSVPDefaults.DeadlineHours)

	s.Name = "Tigers"
	require.NoError(t, m.SaveClubSettings(ctx, *s))
	again, err := m.GetClubSettings(ctx, "tigers-fc")
	require.NoError(t, err)
	assert.Equal(t, "Tigers", again.Name)
}
