// internal/db/settings_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

// GetClubSettings returns the stored settings or the default branding when
// the club has none yet.
func (s *MySQLStore) GetClubSettings(ctx context.Context, clubID string) (*models.ClubSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT club_id, name, logo_url, primary_color, secondary_color,
		rsvp_deadline_hours, rsvp_visibility, rsvp_auto_reminders, rsvp_reminder_hours
		FROM club_settings WHERE club_id = ?`, clubID)

	var cs models.ClubSettings
	var logo, secondary sql.NullString
	err := row.Scan(&cs.ID, &cs.Name, &logo, &cs.PrimaryColor, &secondary,
		&cs.RSVPDefaults.DeadlineHours, &cs.RSVPDefaults.Visibility, &cs.RSVPDefaults.AutoReminders, &cs.RSVPDefaults.ReminderHours)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			def := store.DefaultClubSettings(clubID)
			return &def, nil
		}
		slog.Error("Failed to get club settings", "clubID", clubID, "error", err)
		return nil, fmt.Errorf("failed to get club settings '%s': %w", clubID, err)
	}
	cs.LogoURL = logo.String
	cs.SecondaryColor = secondary.String
	return &cs, nil
}

func (s *MySQLStore) SaveClubSettings(ctx context.Context, cs models.ClubSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO club_settings (club_id, name, logo_url, primary_color, secondary_color,
		rsvp_deadline_hours, rsvp_visibility, rsvp_auto_reminders, rsvp_reminder_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), logo_url = VALUES(logo_url),
		primary_color = VALUES(primary_color), secondary_color = VALUES(secondary_color),
		rsvp_deadline_hours = VALUES(rsvp_deadline_hours), rsvp_visibility = VALUES(rsvp_visibility),
		rsvp_auto_reminders = VALUES(rsvp_auto_reminders), rsvp_reminder_hours = VALUES(rsvp_reminder_hours)`,
		cs.ID, cs.Name, nullString(cs.LogoURL), cs.PrimaryColor, nullString(cs.SecondaryColor),
		cs.RSVPDefaults.DeadlineHours, cs.RSVPDefaults.Visibility, cs.RSVPDefaults.AutoReminders, cs.RSVPDefaults.ReminderHours,
	)
	if err != nil {
		slog.Error("Failed to save club settings", "clubID", cs.ID, "error", err)
		return fmt.Errorf("failed to save club settings: %w", err)
	}
	return nil
}
