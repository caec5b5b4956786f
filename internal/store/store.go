// Package store defines the persistence contract of the API server and an
// in-memory implementation used for development and tests.
package store

import (
	"context"
	"errors"

	"fanplatform.dk/internal/models"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrInvalidTransition = errors.New("store: invalid status transition")
	ErrDuplicate         = errors.New("store: duplicate")
)

// Store is implemented by Memory and by the MySQL store in internal/db.
type Store interface {
	ListFees(ctx context.Context, clubID int64) ([]models.Fee, error)
	GetFee(ctx context.Context, clubID int64, feeID string) (*models.Fee, error)

	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	TransitionPayment(ctx context.Context, paymentID string, next models.PaymentStatus) (*models.Payment, error)

	// StartIntent moves the fee of rec to processing and stores rec as the
	// latest attempt of its key, both or neither. It fails with
	// ErrInvalidTransition when the fee is not payable and with ErrDuplicate
	// when the attempt is already stored.
	StartIntent(ctx context.Context, rec models.IntentRecord) (*models.IntentRecord, error)
	// SettleIntent moves an open intent and its fee to paid or failed together.
	SettleIntent(ctx context.Context, intentID string, status models.FeeStatus) (*models.IntentRecord, *models.Fee, error)
	// GetIntentByKey returns the latest attempt of key.
	GetIntentByKey(ctx context.Context, key string) (*models.IntentRecord, error)

	GetClubSettings(ctx context.Context, clubID string) (*models.ClubSettings, error)
	SaveClubSettings(ctx context.Context, settings models.ClubSettings) error

	GetProfile(ctx context.Context, accountID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile models.Profile) error

	CreateAccount(ctx context.Context, account models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	ListActivities(ctx context.Context, clubID int64, memberID string) ([]models.Activity, error)
	SetRSVP(ctx context.Context, activityID, memberID string, response models.RSVPResponse) (*models.Activity, error)
}
