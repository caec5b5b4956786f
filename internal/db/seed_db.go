// internal/db/seed_db.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fanplatform.dk/internal/store"
)

// SeedDemo loads the demo club into an empty database. Rows that already
// exist are left alone.
func (s *MySQLStore) SeedDemo(ctx context.Context, now time.Time) error {
	d := store.DemoData(now)
	inserted := 0
	for _, f := range d.Fees {
		if err := s.InsertFee(ctx, f); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed fee %s: %w", f.ID, err)
		}
		inserted++
	}
	for _, p := range d.Payments {
		if err := s.InsertPayment(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed payment %s: %w", p.ID, err)
		}
		inserted++
	}
	for _, a := range d.Activities {
		if err := s.InsertActivity(ctx, a); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed activity %s: %w", a.ID, err)
		}
		inserted++
	}
	for _, r := range d.RSVPs {
		if _, err := s.SetRSVP(ctx, r.ActivityID, r.MemberID, r.Response); err != nil {
			return fmt.Errorf("seed rsvp %s/%s: %w", r.ActivityID, r.MemberID, err)
		}
	}
	if _, err := s.GetProfile(ctx, d.Profile.ID); errors.Is(err, store.ErrNotFound) {
		if err := s.SaveProfile(ctx, d.Profile); err != nil {
			return err
		}
	}
	slog.Info("Demo data seeded", "rows", inserted)
	return nil
}
