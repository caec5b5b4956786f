// internal/email/sender.go
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"fanplatform.dk/internal/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// PaymentLink is the data rendered into payment_link.html.
type PaymentLink struct {
	Name        string
	ClubName    string
	Title       string
	Amount      string
	DueDate     string
	CheckoutURL string
	Color       string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	cfg      config.EmailConfig
	devMode  bool
	sendMail sendFunc
}

// NewSender returns a Sender. Without an SMTP host it only logs messages in
// development and refuses to send elsewhere.
func NewSender(cfg config.EmailConfig, appEnv string) *Sender {
	return &Sender{cfg: cfg, devMode: appEnv != "production", sendMail: smtp.SendMail}
}

func (s *Sender) SendPaymentLink(ctx context.Context, to string, data PaymentLink) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "payment_link.html", data); err != nil {
		return fmt.Errorf("failed to render payment link email: %w", err)
	}
	return s.Send(ctx, to, fmt.Sprintf("Payment request: %s", data.Title), body.String(), true)
}

// Send delivers one message.
func (s *Sender) Send(ctx context.Context, to, subject, body string, isHTML bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.SMTPhost == "" || s.cfg.Sender == "" {
		slog.Warn("SMTP host or sender not configured, email not sent", "to", to, "subject", subject)
		if !s.devMode {
			return fmt.Errorf("SMTP host or sender not configured")
		}
		return nil
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPuser, s.cfg.SMTPpassword, s.cfg.SMTPhost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPhost, s.cfg.SMTPport)

	contentType := `text/plain; charset="UTF-8"`
	if isHTML {
		contentType = `text/html; charset="UTF-8"`
	}
	headers := [][2]string{
		{"From", s.cfg.Sender},
		{"To", to},
		{"Subject", subject},
		{"MIME-version", "1.0"},
		{"Content-Type", contentType},
	}
	var msg strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := s.sendMail(addr, auth, s.cfg.Sender, []string{to}, []byte(msg.String())); err != nil {
		slog.Error("Failed to send email", "to", to, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	slog.Info("Email sent", "to", to, "subject", subject)
	return nil
}
