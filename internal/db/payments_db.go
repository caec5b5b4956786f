// internal/db/payments_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

const paymentSelect = `SELECT p.id, p.club_id, p.title, p.amount_cents, p.currency, p.due_at, p.status, p.created_at, p.updated_at,
	m.id, m.name, m.email, m.phone, m.avatar
	FROM payments p JOIN members m ON m.id = p.member_id`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var dueAt, updatedAt sql.NullTime
	var phone, avatar sql.NullString
	err := row.Scan(
		&p.ID, &p.ClubID, &p.Title, &p.AmountCents, &p.Currency, &dueAt, &p.Status, &p.CreatedAt, &updatedAt,
		&p.Member.ID, &p.Member.Name, &p.Member.Email, &phone, &avatar,
	)
	if err != nil {
		return nil, err
	}
	p.DueAt = timePtr(dueAt)
	p.UpdatedAt = timePtr(updatedAt)
	p.Member.Phone = phone.String
	p.Member.Avatar = avatar.String
	return &p, nil
}

// paymentWhere translates a filter into a WHERE clause with the same
// semantics as models.PaymentFilter.Matches.
func paymentWhere(f models.PaymentFilter) (string, []any) {
	var conds []string
	var args []any
	if f.ClubID != 0 {
		conds = append(conds, "p.club_id = ?")
		args = append(args, f.ClubID)
	}
	if f.Status != "" {
		conds = append(conds, "p.status = ?")
		args = append(args, f.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		like := "%" + q + "%"
		conds = append(conds, "(LOWER(m.name) LIKE ? OR LOWER(m.email) LIKE ? OR LOWER(p.title) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.DateFrom != nil {
		conds = append(conds, "p.due_at >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		conds = append(conds, "p.due_at < ?")
		args = append(args, f.DateTo.AddDate(0, 0, 1))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *MySQLStore) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	where, args := paymentWhere(filter)
	rows, err := s.db.QueryContext(ctx, paymentSelect+where+" ORDER BY p.seq", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (s *MySQLStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, paymentSelect+" WHERE p.id = ?", paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		slog.Error("Failed to get payment by ID", "paymentID", paymentID, "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *MySQLStore) TransitionPayment(ctx context.Context, paymentID string, next models.PaymentStatus) (*models.Payment, error) {
	from := models.PaymentStatusesBefore(next)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: nothing moves to %s", store.ErrInvalidTransition, next)
	}
	args := []any{next, s.now(), paymentID}
	for _, st := range from {
		args = append(args, st)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		slog.Error("Failed to update payment status", "paymentID", paymentID, "next", next, "error", err)
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	p, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: payment %s %s -> %s", store.ErrInvalidTransition, paymentID, p.Status, next)
	}
	return p, nil
}

// InsertPayment upserts the member and inserts the payment.
func (s *MySQLStore) InsertPayment(ctx context.Context, p models.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (id, club_id, name, email, phone, avatar) VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email), phone = VALUES(phone), avatar = VALUES(avatar)`,
		p.Member.ID, p.ClubID, p.Member.Name, p.Member.Email, nullString(p.Member.Phone), nullString(p.Member.Avatar),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, club_id, member_id, title, amount_cents, currency, due_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClubID, p.Member.ID, p.Title, p.AmountCents, p.Currency, nullTime(p.DueAt), p.Status, p.CreatedAt, nullTime(p.UpdatedAt),
	)
	if isDuplicate(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return tx.Commit()
}
