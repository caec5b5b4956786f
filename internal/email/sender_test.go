package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanplatform.dk/internal/config"
)

func TestSendPaymentLinkRendersTemplate(t *testing.T) {
	s := NewSender(config.EmailConfig{SMTPhost: "smtp.example.dk", SMTPport: 587, Sender: "club@example.dk"}, "production")
	var gotAddr string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "club@example.dk", from)
		assert.Equal(t, []string{"mette.hansen@example.dk"}, to)
		return nil
	}

	err := s.SendPaymentLink(context.Background(), "mette.hansen@example.dk", PaymentLink{
		Name:        "Mette Hansen",
		ClubName:    "Tigers FC",
		Title:       "Monthly Membership Fee",
		Amount:      "150.00 DKK",
		CheckoutURL: "https://checkout.stripe.test/intent/pay-1",
		Color:       "#1F4ED8",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.dk:587", gotAddr)
	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: Payment request: Monthly Membership Fee\r\n")
	assert.Contains(t, msg, "text/html")
	assert.Contains(t, msg, "150.00 DKK")
	assert.Contains(t, msg, `href="https://checkout.stripe.test/intent/pay-1"`)
}

func TestSendWithoutSMTP(t *testing.T) {
	dev := NewSender(config.EmailConfig{}, "development")
	assert.NoError(t, dev.Send(context.Background(), "a@example.dk", "s", "b", false))

	prod := NewSender(config.EmailConfig{}, "production")
	assert.Error(t, prod.Send(context.Background(), "a@example.dk", "s", "b", false))
}

func TestSendWrapsTransportError(t *testing.T) {
	s := NewSender(config.EmailConfig{SMTPhost: "smtp", Sender: "x@example.dk"}, "production")
	boom := errors.New("connection refused")
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	assert.ErrorIs(t, s.Send(context.Background(), "a@example.dk", "s", "b", false), boom)
}
