// internal/db/accounts_db.go
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

// CreateAccount inserts the account together with its initial profile.
func (s *MySQLStore) CreateAccount(ctx context.Context, a models.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.Role == "" {
		a.Role = models.RoleMember
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, strings.ToLower(a.Email), a.PasswordHash, a.Role, a.CreatedAt,
	)
	if isDuplicate(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		slog.Error("Failed to create account", "email", a.Email, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT IGNORE INTO profiles (account_id, name, email, notify_email, notify_push) VALUES (?, ?, ?, TRUE, FALSE)`,
		a.ID, a.Name, a.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return tx.Commit()
}

func (s *MySQLStore) getAccount(ctx context.Context, where string, arg any) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, role, created_at FROM accounts WHERE `+where, arg)
	var a models.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (s *MySQLStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, "email = ?", strings.ToLower(email))
}

func (s *MySQLStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, "id = ?", id)
}

func (s *MySQLStore) GetProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, name, email, avatar_url, notify_email, notify_push FROM profiles WHERE account_id = ?`, accountID)
	var p models.Profile
	var avatar sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &avatar, &p.NotifyEmail, &p.NotifyPush); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.AvatarURL = avatar.String
	return &p, nil
}

func (s *MySQLStore) SaveProfile(ctx context.Context, p models.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (account_id, name, email, avatar_url, notify_email, notify_push) VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email), avatar_url = VALUES(avatar_url),
		notify_email = VALUES(notify_email), notify_push = VALUES(notify_push)`,
		p.ID, p.Name, p.Email, nullString(p.AvatarURL), p.NotifyEmail, p.NotifyPush,
	)
	if err != nil {
		slog.Error("Failed to save profile", "accountID", p.ID, "error", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
