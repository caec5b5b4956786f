package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/email"
	"fanplatform.dk/internal/handlers"
	"fanplatform.dk/internal/idempotency"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/utils"
)

type discardMailer struct{}

func (discardMailer) SendPaymentLink(context.Context, string, email.PaymentLink) error { return nil }

func startServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(handlers.NewRouter(handlers.Deps{
		Store:   store.NewSeededMemory(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		Tokens:  auth.NewTokenIssuer("test-secret", time.Hour),
		Keeper:  idempotency.NewMemory(time.Hour),
		Gateway: paymentgateway.NewMock(models.ProviderStripe, ""),
		Mailer:  discardMailer{},
		Uploads: handlers.NewUploader(t.TempDir(), "http://localhost"),
	}))
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("FAN_API_URL", srv.URL)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)
	t.Setenv("APP_ENV", "development")
	return home
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestFeesListAndPay(t *testing.T) {
	home := startServer(t)

	out, _, err := run(t, "fees", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "fee-1")
	assert.Contains(t, out, "150.00 DKK")
	assert.Contains(t, out, "fee-5")

	out, errOut, err := run(t, "--link", "fees", "pay", "fee-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Open this link to complete the payment: https://checkout.stripe.test/intent/fee-1")
	assert.Contains(t, errOut, "Payment initiated")

	// Same installation, same checkout.
	again, _, err := run(t, "--link", "fees", "pay", "fee-1")
	require.NoError(t, err)
	assert.Equal(t, out, again)

	id, err := utils.ReadStateFile(filepath.Join(home, "fanctl", "client_id"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, _, err = run(t, "fees", "pay", "fee-5")
	assert.Error(t, err)
}

func TestPaymentsListAndSend(t *testing.T) {
	startServer(t)

	out, _, err := run(t, "payments", "list", "--status", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "pay-2")
	assert.NotContains(t, out, "pay-1")

	_, _, err = run(t, "payments", "list", "--status", "lost")
	assert.Error(t, err)

	_, errOut, err := run(t, "payments", "send", "pay-2")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Payment link sent")

	out, _, err = run(t, "payments", "list", "--status", "failed")
	require.NoError(t, err)
	assert.NotContains(t, out, "pay-2")
}

func TestProfileAndRSVP(t *testing.T) {
	startServer(t)

	out, errOut, err := run(t, "profile", "set", "--name", "Jane Doe")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, errOut, "Profile updated")

	out, _, err = run(t, "rsvp", "act-2", "going")
	require.NoError(t, err)
	assert.Contains(t, out, "Tuesday Training")
	assert.Contains(t, out, "going")

	_, _, err = run(t, "rsvp", "act-2", "maybe")
	assert.Error(t, err)

	out, _, err = run(t, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Tigers FC")
}

func TestLoginStoresToken(t *testing.T) {
	home := startServer(t)
	t.Setenv("FAN_PASSWORD", "Sup3r$ecret")

	_, _, err := run(t, "signup", "--name", "Ida Holm", "--email", "ida@example.dk")
	require.NoError(t, err)
	token, err := utils.ReadStateFile(filepath.Join(home, "fanctl", "token"))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = run(t, "logout")
	require.NoError(t, err)
	token, err = utils.ReadStateFile(filepath.Join(home, "fanctl", "token"))
	require.NoError(t, err)
	assert.Empty(t, token)

	out, _, err := run(t, "login", "--email", "ida@example.dk")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ida Holm")

	_, _, err = run(t, "login", "--email", "ida@example.dk", "--password", "wrong-password1!")
	assert.EqualError(t, err, "Invalid email or password")
}
