package models

import "time"

type RSVPDefaults struct {
	DeadlineHours int    `json:"deadline_hours" validate:"gte=0,lte=720"`
	Visibility    string `json:"visibility" validate:"oneof=members public"`
	AutoReminders bool   `json:"auto_reminders"`
	ReminderHours int    `json:"reminder_hours" validate:"gte=0,lte=168"`
}

type ClubSettings struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	LogoURL        string       `json:"logo_url,omitempty"`
	PrimaryColor   string       `json:"primary_color"`
	SecondaryColor string       `json:"secondary_color,omitempty"`
	RSVPDefaults   RSVPDefaults `json:"rsvp_defaults"`
}

type RSVPDefaultsUpdate struct {
	DeadlineHours *int    `json:"deadline_hours,omitempty" validate:"omitempty,gte=0,lte=720"`
	Visibility    *string `json:"visibility,omitempty" validate:"omitempty,oneof=members public"`
	AutoReminders *bool   `json:"auto_reminders,omitempty"`
	ReminderHours *int    `json:"reminder_hours,omitempty" validate:"omitempty,gte=0,lte=168"`
}

type ClubSettingsUpdate struct {
	Name           *string             `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	LogoURL        *string             `json:"logo_url,omitempty" validate:"omitempty,url"`
	PrimaryColor   *string             `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor *string             `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	RSVPDefaults   *RSVPDefaultsUpdate `json:"rsvp_defaults,omitempty"`
}

// Apply merges an update; rsvp_defaults is merged field by field, not replaced.
func (s ClubSettings) Apply(u ClubSettingsUpdate) ClubSettings {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.LogoURL != nil {
		s.LogoURL = *u.LogoURL
	}
	if u.PrimaryColor != nil {
		s.PrimaryColor = *u.PrimaryColor
	}
	if u.SecondaryColor != nil {
		s.SecondaryColor = *u.SecondaryColor
	}
	if d := u.RSVPDefaults; d != nil {
		if d.DeadlineHours != nil {
			s.RSVPDefaults.DeadlineHours = *d.DeadlineHours
		}
		if d.Visibility != nil {
			s.RSVPDefaults.Visibility = *d.Visibility
		}
		if d.AutoReminders != nil {
			s.RSVPDefaults.AutoReminders = *d.AutoReminders
		}
		if d.ReminderHours != nil {
			s.RSVPDefaults.ReminderHours = *d.ReminderHours
		}
	}
	return s
}

// Undo returns the update that puts the fields u touches back to their values in before.
func (u ClubSettingsUpdate) Undo(before ClubSettings) ClubSettingsUpdate {
	var out ClubSettingsUpdate
	if u.Name != nil {
		out.Name = &before.Name
	}
	if u.LogoURL != nil {
		out.LogoURL = &before.LogoURL
	}
	if u.PrimaryColor != nil {
		out.PrimaryColor = &before.PrimaryColor
	}
	if u.SecondaryColor != nil {
		out.SecondaryColor = &before.SecondaryColor
	}
	if d := u.RSVPDefaults; d != nil {
		b := before.RSVPDefaults
		out.RSVPDefaults = &RSVPDefaultsUpdate{}
		if d.DeadlineHours != nil {
			out.RSVPDefaults.DeadlineHours = &b.DeadlineHours
		}
		if d.Visibility != nil {
			out.RSVPDefaults.Visibility = &b.Visibility
		}
		if d.AutoReminders != nil {
			out.RSVPDefaults.AutoReminders = &b.AutoReminders
		}
		if d.ReminderHours != nil {
			out.RSVPDefaults.ReminderHours = &b.ReminderHours
		}
	}
	return out
}

type ActivityType string

const (
	ActivityMatch    ActivityType = "match"
	ActivityTraining ActivityType = "training"
	ActivitySocial   ActivityType = "social"
	ActivityOther    ActivityType = "other"
)

type RSVPResponse string

const (
	RSVPGoing    RSVPResponse = "going"
	RSVPNotGoing RSVPResponse = "not-going"
)

type Opponent struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type RSVPSummary struct {
	Going        int           `json:"going"`
	NotGoing     int           `json:"not_going"`
	UserResponse *RSVPResponse `json:"user_response"`
}

type Activity struct {
	ID          string       `json:"id"`
	ClubID      int64        `json:"club_id"`
	Title       string       `json:"title"`
	Type        ActivityType `json:"type"`
	StartsAt    time.Time    `json:"starts_at"`
	Location    string       `json:"location"`
	Opponent    *Opponent    `json:"opponent,omitempty"`
	Description string       `json:"description,omitempty"`
	RSVP        RSVPSummary  `json:"rsvp"`
}

// WithResponse returns the activity as it looks after memberResponse changes
// from prev to next. Counters never go negative.
func (a Activity) WithResponse(prev *RSVPResponse, next RSVPResponse) Activity {
	if prev != nil {
		switch *prev {
		case RSVPGoing:
			if a.RSVP.Going > 0 {
				a.RSVP.Going--
			}
		case RSVPNotGoing:
			if a.RSVP.NotGoing > 0 {
				a.RSVP.NotGoing--
			}
		}
	}
	switch next {
	case RSVPGoing:
		a.RSVP.Going++
	case RSVPNotGoing:
		a.RSVP.NotGoing++
	}
	resp := next
	a.RSVP.UserResponse = &resp
	return a
}

type RSVPRequest struct {
	Response RSVPResponse `json:"response" validate:"required,oneof=going not-going"`
}
