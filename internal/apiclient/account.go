package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"fanplatform.dk/internal/models"
)

// Messages shown for auth failures. Anything else falls back to "failed to <op>".
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "An account with this email already exists"
	MsgCheckInformation   = "Please check your information and try again"
)

var (
	loginMessages  = map[int]string{http.StatusUnauthorized: MsgInvalidCredentials}
	signupMessages = map[int]string{
		http.StatusConflict:            MsgEmailTaken,
		http.StatusUnprocessableEntity: MsgCheckInformation,
	}
)

func withAuthMessage(err error, messages map[int]string) error {
	var se *StatusError
	if errors.As(err, &se) {
		if msg, ok := messages[se.StatusCode]; ok {
			se.Message = msg
		}
	}
	return err
}

// Login stores the returned bearer token on success.
func (c *Client) Login(ctx context.Context, emailAddr, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, "sign in", http.MethodPost, "/api/auth/login", nil, models.LoginForm{Email: emailAddr, Password: password}, &out)
	if err != nil {
		return nil, withAuthMessage(err, loginMessages)
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, form models.SignupForm) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, "sign up", http.MethodPost, "/api/auth/signup", nil, form, &out); err != nil {
		return nil, withAuthMessage(err, signupMessages)
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "sign out", http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, "fetch profile", http.MethodGet, "/api/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, "update profile", http.MethodPut, "/api/profile", nil, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetClubSettings(ctx context.Context, clubID string) (*models.ClubSettings, error) {
	var s models.ClubSettings
	if err := c.do(ctx, "fetch club settings", http.MethodGet, "/api/clubs/"+url.PathEscape(clubID)+"/settings", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateClubSettings(ctx context.Context, clubID string, upd models.ClubSettingsUpdate) (*models.ClubSettings, error) {
	var s models.ClubSettings
	if err := c.do(ctx, "update club settings", http.MethodPut, "/api/clubs/"+url.PathEscape(clubID)+"/settings", nil, upd, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListActivities(ctx context.Context, clubID int64) ([]models.Activity, error) {
	var out []models.Activity
	if err := c.do(ctx, "fetch activities", http.MethodGet, fmt.Sprintf("/api/clubs/%d/activities", clubID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RSVP(ctx context.Context, activityID string, response models.RSVPResponse) (*models.Activity, error) {
	var a models.Activity
	path := "/api/activities/" + url.PathEscape(activityID) + "/rsvp"
	if err := c.do(ctx, "update RSVP", http.MethodPost, path, nil, models.RSVPRequest{Response: response}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UploadAvatar uploads an image and returns its public URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, file io.Reader) (string, error) {
	return c.upload(ctx, "upload avatar", "/api/uploads/avatar", filename, file, nil)
}

func (c *Client) UploadClubLogo(ctx context.Context, clubID, filename string, file io.Reader) (string, error) {
	return c.upload(ctx, "upload logo", "/api/uploads/club-logo", filename, file, map[string]string{"club_id": clubID})
}

func (c *Client) upload(ctx context.Context, op, path, filename string, file io.Reader, fields map[string]string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	err = c.doRaw(ctx, op, http.MethodPost, path, http.Header{"Content-Type": {mw.FormDataContentType()}}, &buf, &out)
	return out.URL, err
}
