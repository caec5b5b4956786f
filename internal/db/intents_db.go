// internal/db/intents_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

const intentColumns = `intent_id, idempotency_key, attempt, club_id, fee_id, client_id, provider, checkout_url, status, created_at`

func scanIntent(row rowScanner) (*models.IntentRecord, error) {
	var r models.IntentRecord
	err := row.Scan(&r.IntentID, &r.IdempotencyKey, &r.Attempt, &r.ClubID, &r.FeeID, &r.ClientID, &r.Provider, &r.CheckoutURL, &r.Status, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan intent: %w", err)
	}
	return &r, nil
}

// lockFee reads a fee under a row lock for the rest of tx.
func lockFee(ctx context.Context, tx *sql.Tx, clubID int64, feeID string) (*models.Fee, error) {
	f, err := scanFee(tx.QueryRowContext(ctx, `SELECT `+feeColumns+` FROM fees WHERE club_id = ? AND id = ? FOR UPDATE`, clubID, feeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock fee: %w", err)
	}
	return f, nil
}

func setFeeStatus(ctx context.Context, tx *sql.Tx, f *models.Fee, next models.FeeStatus, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE fees SET status = ?, updated_at = ? WHERE club_id = ? AND id = ?`, next, now, f.ClubID, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update fee status: %w", err)
	}
	f.Status = next
	f.UpdatedAt = &now
	return nil
}

// StartIntent inserts the attempt and moves the fee in one transaction. The
// unique (idempotency_key, attempt) index rejects a second writer.
func (s *MySQLStore) StartIntent(ctx context.Context, rec models.IntentRecord) (*models.IntentRecord, error) {
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Status = models.FeeStatusProcessing

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	fee, err := lockFee(ctx, tx, rec.ClubID, rec.FeeID)
	if err != nil {
		return nil, err
	}
	if !fee.Status.Payable() {
		return nil, fmt.Errorf("%w: fee %s %s -> %s", store.ErrInvalidTransition, fee.ID, fee.Status, models.FeeStatusProcessing)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_intents (`+intentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.IntentID, rec.IdempotencyKey, rec.Attempt, rec.ClubID, rec.FeeID, rec.ClientID, rec.Provider, rec.CheckoutURL, rec.Status, rec.CreatedAt,
	)
	if isDuplicate(err) {
		return nil, fmt.Errorf("%w: attempt %d of %s", store.ErrDuplicate, rec.Attempt, rec.IdempotencyKey)
	}
	if err != nil {
		slog.Error("Failed to save intent", "intent_id", rec.IntentID, "error", err)
		return nil, fmt.Errorf("failed to save intent: %w", err)
	}
	if err := setFeeStatus(ctx, tx, fee, models.FeeStatusProcessing, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit intent: %w", err)
	}
	return &rec, nil
}

func (s *MySQLStore) SettleIntent(ctx context.Context, intentID string, status models.FeeStatus) (*models.IntentRecord, *models.Fee, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	rec, err := scanIntent(tx.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE intent_id = ? FOR UPDATE`, intentID))
	if err != nil {
		return nil, nil, err
	}
	if !rec.Open() || !rec.Status.CanTransitionTo(status) {
		return nil, nil, fmt.Errorf("%w: intent %s %s -> %s", store.ErrInvalidTransition, intentID, rec.Status, status)
	}
	fee, err := lockFee(ctx, tx, rec.ClubID, rec.FeeID)
	if err != nil {
		return nil, nil, err
	}
	if !fee.Status.CanTransitionTo(status) {
		return nil, nil, fmt.Errorf("%w: fee %s %s -> %s", store.ErrInvalidTransition, fee.ID, fee.Status, status)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE payment_intents SET status = ? WHERE intent_id = ?`, status, intentID); err != nil {
		return nil, nil, fmt.Errorf("failed to settle intent: %w", err)
	}
	if err := setFeeStatus(ctx, tx, fee, status, s.now()); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	rec.Status = status
	return rec, fee, nil
}

func (s *MySQLStore) GetIntentByKey(ctx context.Context, key string) (*models.IntentRecord, error) {
	return scanIntent(s.db.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE idempotency_key = ? ORDER BY attempt DESC LIMIT 1`, key))
}
