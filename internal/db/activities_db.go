// internal/db/activities_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

// The RSVP counters are aggregated per row; user_response is the caller's own answer.
const activitySelect = `SELECT a.id, a.club_id, a.title, a.type, a.starts_at, a.location,
	a.opponent_name, a.opponent_logo, a.description,
	COALESCE(SUM(r.response = 'going'), 0), COALESCE(SUM(r.response = 'not-going'), 0),
	MAX(CASE WHEN r.member_id = ? THEN r.response END)
	FROM activities a LEFT JOIN activity_rsvps r ON r.activity_id = a.id`

func scanActivity(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	var oppName, oppLogo, desc, userResp sql.NullString
	err := row.Scan(&a.ID, &a.ClubID, &a.Title, &a.Type, &a.StartsAt, &a.Location,
		&oppName, &oppLogo, &desc, &a.RSVP.Going, &a.RSVP.NotGoing, &userResp)
	if err != nil {
		return nil, err
	}
	if oppName.Valid {
		a.Opponent = &models.Opponent{Name: oppName.String, Logo: oppLogo.String}
	}
	a.Description = desc.String
	if userResp.Valid {
		r := models.RSVPResponse(userResp.String)
		a.RSVP.UserResponse = &r
	}
	return &a, nil
}

func (s *MySQLStore) ListActivities(ctx context.Context, clubID int64, memberID string) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, activitySelect+` WHERE a.club_id = ? GROUP BY a.id ORDER BY a.starts_at`, memberID, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *MySQLStore) getActivity(ctx context.Context, activityID, memberID string) (*models.Activity, error) {
	a, err := scanActivity(s.db.QueryRowContext(ctx, activitySelect+` WHERE a.id = ? GROUP BY a.id`, memberID, activityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

func (s *MySQLStore) SetRSVP(ctx context.Context, activityID, memberID string, response models.RSVPResponse) (*models.Activity, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_rsvps (activity_id, member_id, response, updated_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE response = VALUES(response), updated_at = VALUES(updated_at)`,
		activityID, memberID, response, s.now(),
	)
	if err != nil {
		if mysqlErrNumber(err) == errNoReferencedRow {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to save rsvp: %w", err)
	}
	return s.getActivity(ctx, activityID, memberID)
}

func (s *MySQLStore) InsertActivity(ctx context.Context, a models.Activity) error {
	var oppName, oppLogo sql.NullString
	if a.Opponent != nil {
		oppName = nullString(a.Opponent.Name)
		oppLogo = nullString(a.Opponent.Logo)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, club_id, title, type, starts_at, location, opponent_name, opponent_logo, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClubID, a.Title, a.Type, a.StartsAt, a.Location, oppName, oppLogo, nullString(a.Description),
	)
	if isDuplicate(err) {
		return store.ErrDuplicate
	}
	return err
}
