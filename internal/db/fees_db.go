// internal/db/fees_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

const feeColumns = `id, club_id, title, amount_cents, currency, due_at, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFee(row rowScanner) (*models.Fee, error) {
	var f models.Fee
	var dueAt, updatedAt sql.NullTime
	err := row.Scan(&f.ID, &f.ClubID, &f.Title, &f.AmountCents, &f.Currency, &dueAt, &f.Status, &f.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.DueAt = timePtr(dueAt)
	f.UpdatedAt = timePtr(updatedAt)
	return &f, nil
}

// ListFees returns the club's fees in insertion order.
func (s *MySQLStore) ListFees(ctx context.Context, clubID int64) ([]models.Fee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+feeColumns+` FROM fees WHERE club_id = ? ORDER BY seq`, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees: %w", err)
	}
	defer rows.Close()

	fees := []models.Fee{}
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		fees = append(fees, *f)
	}
	return fees, rows.Err()
}

func (s *MySQLStore) GetFee(ctx context.Context, clubID int64, feeID string) (*models.Fee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feeColumns+` FROM fees WHERE club_id = ? AND id = ?`, clubID, feeID)
	f, err := scanFee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fee: %w", err)
	}
	return f, nil
}

// InsertFee is used by seeding and tests.
func (s *MySQLStore) InsertFee(ctx context.Context, f models.Fee) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fees (id, club_id, title, amount_cents, currency, due_at, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ClubID, f.Title, f.AmountCents, f.Currency, nullTime(f.DueAt), f.Status, f.CreatedAt, nullTime(f.UpdatedAt),
	)
	if isDuplicate(err) {
		return store.ErrDuplicate
	}
	return err
}
