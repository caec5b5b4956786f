package models

import "time"

// Account roles
const (
	RoleMember string = "member"
	RoleAdmin  string = "admin"
)

type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountView is the public part of an account returned by the auth endpoints.
type AccountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a Account) View() AccountView {
	return AccountView{ID: a.ID, Email: a.Email, Name: a.Name}
}

type SignupForm struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,complex_password"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *AccountView `json:"user,omitempty"`
}

type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	NotifyEmail bool   `json:"notify_email"`
	NotifyPush  bool   `json:"notify_push"`
}

// ProfileUpdate carries a partial profile. Nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	NotifyEmail *bool   `json:"notify_email,omitempty"`
	NotifyPush  *bool   `json:"notify_push,omitempty"`
}

func (p Profile) Apply(u ProfileUpdate) Profile {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	if u.NotifyEmail != nil {
		p.NotifyEmail = *u.NotifyEmail
	}
	if u.NotifyPush != nil {
		p.NotifyPush = *u.NotifyPush
	}
	return p
}

// Undo returns the update that puts the fields u touches back to their values in before.
func (u ProfileUpdate) Undo(before Profile) ProfileUpdate {
	var out ProfileUpdate
	if u.Name != nil {
		out.Name = &before.Name
	}
	if u.Email != nil {
		out.Email = &before.Email
	}
	if u.AvatarURL != nil {
		out.AvatarURL = &before.AvatarURL
	}
	if u.NotifyEmail != nil {
		out.NotifyEmail = &before.NotifyEmail
	}
	if u.NotifyPush != nil {
		out.NotifyPush = &before.NotifyPush
	}
	return out
}
