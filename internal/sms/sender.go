// internal/sms/sender.go
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fanplatform.dk/internal/config"
)

// Sender posts messages to a form-encoded SMS gateway API.
type Sender struct {
	cfg        config.SMSConfig
	httpClient *http.Client
}

func NewSender(cfg config.SMSConfig) *Sender {
	return &Sender{cfg: cfg, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// Enabled reports whether a gateway key is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.APIKey != "" && s.cfg.APIURL != ""
}

func (s *Sender) SendSMS(ctx context.Context, phoneNumber, message string) error {
	if !s.Enabled() {
		slog.Warn("SMS gateway not configured, SMS not sent", "to", phoneNumber)
		return nil
	}

	data := url.Values{}
	data.Set("api_key", s.cfg.APIKey)
	data.Set("to", phoneNumber)
	data.Set("text", message)
	data.Set("from", s.cfg.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS gateway request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to call SMS gateway", "error", err)
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("SMS gateway returned an error", "status", resp.Status)
		return fmt.Errorf("failed to send SMS: status %d", resp.StatusCode)
	}

	slog.Info("SMS sent", "to", phoneNumber)
	return nil
}

// PaymentLinkText is the SMS body for a payment request.
func PaymentLinkText(clubName, title, amount, checkoutURL string) string {
	return fmt.Sprintf("%s: %s (%s). Pay here: %s", clubName, title, amount, checkoutURL)
}
