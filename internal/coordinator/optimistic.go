package coordinator

import (
	"context"
	"slices"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/querycache"
)

type mutation struct {
	// prefix is cancelled, snapshotted and invalidated around the call.
	prefix querycache.Key
	patch  func(*querycache.Cache)
	// revert undoes patch on failure. It puts back only the items patch
	// touched, taking them from before, so overlapping mutations on other
	// items under the same prefix survive.
	revert  func(cache *querycache.Cache, before querycache.Snapshot)
	success *Toast
	failure Toast
}

// mutate applies an optimistic patch, runs call and reverts the patched items
// if call fails. The prefix is invalidated either way.
func (c *Coordinator) mutate(ctx context.Context, m mutation, call func(context.Context) error) error {
	c.cache.Cancel(m.prefix)
	before := c.cache.Snapshot(m.prefix)
	if m.patch != nil {
		m.patch(c.cache)
	}

	err := call(ctx)
	if err != nil {
		if m.revert != nil {
			m.revert(c.cache, before)
		}
		c.notify(m.failure)
	} else if m.success != nil {
		c.notify(*m.success)
	}
	c.cache.Invalidate(m.prefix)
	return err
}

// revertKey applies undo to the current value under key.
func revertKey[T any](key querycache.Key, undo func(cur, before T) T) func(*querycache.Cache, querycache.Snapshot) {
	return func(cache *querycache.Cache, before querycache.Snapshot) {
		old, ok := querycache.SnapshotAs[T](before, key)
		if !ok {
			return
		}
		cache.Update(key, func(cur any) any {
			if v, ok := cur.(T); ok {
				return undo(v, old)
			}
			return cur
		})
	}
}

func (c *Coordinator) Profile(ctx context.Context) (models.Profile, error) {
	return querycache.FetchAs(ctx, c.cache, ProfileKey, func(ctx context.Context) (models.Profile, error) {
		p, err := c.api.GetProfile(ctx)
		if err != nil {
			return models.Profile{}, err
		}
		return *p, nil
	})
}

func (c *Coordinator) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	var saved *models.Profile
	err := c.mutate(ctx, mutation{
		prefix: ProfileKey,
		patch: func(cache *querycache.Cache) {
			cache.Update(ProfileKey, func(old any) any {
				if p, ok := old.(models.Profile); ok {
					return p.Apply(upd)
				}
				return old
			})
		},
		success: &ToastProfileUpdated,
		failure: ToastProfileFailed,
	}, func(ctx context.Context) error {
		var err error
		if saved, err = c.api.UpdateProfile(ctx, upd); err == nil {
			c.cache.Set(ProfileKey, *saved)
		}
		return err
	})
	return saved, err
}

func (c *Coordinator) ClubSettings(ctx context.Context, clubID string) (models.ClubSettings, error) {
	return querycache.FetchAs(ctx, c.cache, ClubSettingsKey(clubID), func(ctx context.Context) (models.ClubSettings, error) {
		s, err := c.api.GetClubSettings(ctx, clubID)
		if err != nil {
			return models.ClubSettings{}, err
		}
		return *s, nil
	})
}

func (c *Coordinator) UpdateClubSettings(ctx context.Context, clubID string, upd models.ClubSettingsUpdate) (*models.ClubSettings, error) {
	key := ClubSettingsKey(clubID)
	var saved *models.ClubSettings
	err := c.mutate(ctx, mutation{
		prefix: key,
		patch: func(cache *querycache.Cache) {
			cache.Update(key, func(old any) any {
				if s, ok := old.(models.ClubSettings); ok {
					return s.Apply(upd)
				}
				return old
			})
		},
		success: &ToastSettingsUpdated,
		failure: ToastSettingsFailed,
	}, func(ctx context.Context) error {
		var err error
		if saved, err = c.api.UpdateClubSettings(ctx, clubID, upd); err == nil {
			c.cache.Set(key, *saved)
		}
		return err
	})
	return saved, err
}

func (c *Coordinator) Activities(ctx context.Context, clubID int64) ([]models.Activity, error) {
	return querycache.FetchAs(ctx, c.cache, ActivitiesKey(clubID), func(ctx context.Context) ([]models.Activity, error) {
		return c.api.ListActivities(ctx, clubID)
	})
}

// RSVP records the member's answer. Counters move immediately and are
// restored if the server rejects the answer.
func (c *Coordinator) RSVP(ctx context.Context, clubID int64, activityID string, response models.RSVPResponse) (*models.Activity, error) {
	key := ActivitiesKey(clubID)
	var saved *models.Activity
	err := c.mutate(ctx, mutation{
		prefix: key,
		patch: func(cache *querycache.Cache) {
			cache.Update(key, func(old any) any {
				list, ok := old.([]models.Activity)
				if !ok {
					return old
				}
				i := slices.IndexFunc(list, func(a models.Activity) bool { return a.ID == activityID })
				if i < 0 {
					return old
				}
				list = slices.Clone(list)
				list[i] = list[i].WithResponse(list[i].RSVP.UserResponse, response)
				return list
			})
		},
		failure: ToastRSVPFailed,
	}, func(ctx context.Context) error {
		var err error
		saved, err = c.api.RSVP(ctx, activityID, response)
		return err
	})
	if err != nil {
		return nil, classify(err, ErrActivityNotFound)
	}
	return saved, nil
}
