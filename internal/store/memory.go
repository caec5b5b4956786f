package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fanplatform.dk/internal/models"
)

// Memory keeps everything in process memory. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	now        func() time.Time
	fees       []models.Fee
	payments   []models.Payment
	intents    map[string]models.IntentRecord
	intentKeys map[string]string
	settings   map[string]models.ClubSettings
	profiles   map[string]models.Profile
	accounts   map[string]models.Account
	activities []models.Activity
	rsvps      map[string]map[string]models.RSVPResponse
}

func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		intents:    make(map[string]models.IntentRecord),
		intentKeys: make(map[string]string),
		settings:   make(map[string]models.ClubSettings),
		profiles:   make(map[string]models.Profile),
		accounts:   make(map[string]models.Account),
		rsvps:      make(map[string]map[string]models.RSVPResponse),
	}
}

// SetClock replaces the time source used for updated_at stamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) AddFee(fee models.Fee) {
	m.mu.Lock()
	m.fees = append(m.fees, fee)
	m.mu.Unlock()
}

func (m *Memory) AddPayment(p models.Payment) {
	m.mu.Lock()
	m.payments = append(m.payments, p)
	m.mu.Unlock()
}

func (m *Memory) AddActivity(a models.Activity) {
	m.mu.Lock()
	a.RSVP = models.RSVPSummary{}
	m.activities = append(m.activities, a)
	m.mu.Unlock()
}

func (m *Memory) ListFees(_ context.Context, clubID int64) ([]models.Fee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Fee, 0, len(m.fees))
	for _, f := range m.fees {
		if f.ClubID == clubID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) feeIndex(clubID int64, feeID string) int {
	for i, f := range m.fees {
		if f.ClubID == clubID && f.ID == feeID {
			return i
		}
	}
	return -1
}

func (m *Memory) GetFee(_ context.Context, clubID int64, feeID string) (*models.Fee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.feeIndex(clubID, feeID)
	if i < 0 {
		return nil, ErrNotFound
	}
	fee := m.fees[i]
	return &fee, nil
}

func (m *Memory) ListPayments(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) paymentIndex(id string) int {
	for i, p := range m.payments {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.paymentIndex(paymentID)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := m.payments[i]
	return &p, nil
}

func (m *Memory) TransitionPayment(_ context.Context, paymentID string, next models.PaymentStatus) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.paymentIndex(paymentID)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := m.payments[i]
	if !p.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: payment %s %s -> %s", ErrInvalidTransition, paymentID, p.Status, next)
	}
	now := m.now()
	p.Status = next
	p.UpdatedAt = &now
	m.payments[i] = p
	return &p, nil
}

func (m *Memory) StartIntent(_ context.Context, rec models.IntentRecord) (*models.IntentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intents[rec.IntentID]; ok {
		return nil, fmt.Errorf("%w: intent %s", ErrDuplicate, rec.IntentID)
	}
	if id, ok := m.intentKeys[rec.IdempotencyKey]; ok && m.intents[id].Attempt >= rec.Attempt {
		return nil, fmt.Errorf("%w: attempt %d of %s", ErrDuplicate, rec.Attempt, rec.IdempotencyKey)
	}
	i := m.feeIndex(rec.ClubID, rec.FeeID)
	if i < 0 {
		return nil, ErrNotFound
	}
	fee := m.fees[i]
	if !fee.Status.Payable() {
		return nil, fmt.Errorf("%w: fee %s %s -> %s", ErrInvalidTransition, fee.ID, fee.Status, models.FeeStatusProcessing)
	}

	now := m.now()
	fee.Status = models.FeeStatusProcessing
	fee.UpdatedAt = &now
	m.fees[i] = fee

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Status = models.FeeStatusProcessing
	m.intents[rec.IntentID] = rec
	m.intentKeys[rec.IdempotencyKey] = rec.IntentID
	return &rec, nil
}

func (m *Memory) SettleIntent(_ context.Context, intentID string, status models.FeeStatus) (*models.IntentRecord, *models.Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.intents[intentID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !rec.Open() || !rec.Status.CanTransitionTo(status) {
		return nil, nil, fmt.Errorf("%w: intent %s %s -> %s", ErrInvalidTransition, intentID, rec.Status, status)
	}
	i := m.feeIndex(rec.ClubID, rec.FeeID)
	if i < 0 {
		return nil, nil, ErrNotFound
	}
	fee := m.fees[i]
	if !fee.Status.CanTransitionTo(status) {
		return nil, nil, fmt.Errorf("%w: fee %s %s -> %s", ErrInvalidTransition, fee.ID, fee.Status, status)
	}

	now := m.now()
	fee.Status = status
	fee.UpdatedAt = &now
	m.fees[i] = fee
	rec.Status = status
	m.intents[intentID] = rec
	return &rec, &fee, nil
}

func (m *Memory) GetIntentByKey(_ context.Context, key string) (*models.IntentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.intentKeys[key]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.intents[id]
	return &rec, nil
}

// GetClubSettings falls back to the default branding for clubs without saved settings.
func (m *Memory) GetClubSettings(_ context.Context, clubID string) (*models.ClubSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[clubID]
	if !ok {
		s = DefaultClubSettings(clubID)
	}
	return &s, nil
}

func (m *Memory) SaveClubSettings(_ context.Context, settings models.ClubSettings) error {
	m.mu.Lock()
	m.settings[settings.ID] = settings
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetProfile(_ context.Context, accountID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SaveProfile(_ context.Context, profile models.Profile) error {
	m.mu.Lock()
	m.profiles[profile.ID] = profile
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateAccount(_ context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, a := range m.accounts {
		if strings.ToLower(a.Email) == email {
			return ErrDuplicate
		}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = m.now()
	}
	m.accounts[account.ID] = account
	if _, ok := m.profiles[account.ID]; !ok {
		m.profiles[account.ID] = models.Profile{ID: account.ID, Name: account.Name, Email: account.Email, NotifyEmail: true}
	}
	return nil
}

func (m *Memory) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, a := range m.accounts {
		if strings.ToLower(a.Email) == email {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetAccountByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) summarize(a models.Activity, memberID string) models.Activity {
	a.RSVP = models.RSVPSummary{}
	for member, resp := range m.rsvps[a.ID] {
		switch resp {
		case models.RSVPGoing:
			a.RSVP.Going++
		case models.RSVPNotGoing:
			a.RSVP.NotGoing++
		}
		if member == memberID {
			r := resp
			a.RSVP.UserResponse = &r
		}
	}
	return a
}

func (m *Memory) ListActivities(_ context.Context, clubID int64, memberID string) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		if a.ClubID == clubID {
			out = append(out, m.summarize(a, memberID))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *Memory) SetRSVP(_ context.Context, activityID, memberID string, response models.RSVPResponse) (*models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.activities {
		if a.ID != activityID {
			continue
		}
		if m.rsvps[activityID] == nil {
			m.rsvps[activityID] = make(map[string]models.RSVPResponse)
		}
		m.rsvps[activityID][memberID] = response
		out := m.summarize(a, memberID)
		return &out, nil
	}
	return nil, ErrNotFound
}

var _ Store = (*Memory)(nil)
