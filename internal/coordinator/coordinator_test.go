package coordinator

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanplatform.dk/internal/apiclient"
	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/email"
	"fanplatform.dk/internal/handlers"
	"fanplatform.dk/internal/idempotency"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/querycache"
	"fanplatform.dk/internal/store"
)

type discardMailer struct{}

func (discardMailer) SendPaymentLink(context.Context, string, email.PaymentLink) error { return nil }

var errForced = &apiclient.StatusError{Op: "forced", StatusCode: http.StatusInternalServerError}

// observingAPI lets a test look at the cache while a request is in flight
// and force individual calls to fail.
type observingAPI struct {
	*apiclient.Client

	during      func()
	intentCalls int
	failIntent  error
	failSend    error
	failProfile error
	failRSVP    error
}

func (o *observingAPI) hook() {
	if o.during != nil {
		o.during()
	}
}

func (o *observingAPI) CreatePaymentIntent(ctx context.Context, clubID int64, feeID, clientID string) (*models.PaymentIntent, error) {
	o.intentCalls++
	o.hook()
	if o.failIntent != nil {
		return nil, o.failIntent
	}
	return o.Client.CreatePaymentIntent(ctx, clubID, feeID, clientID)
}

func (o *observingAPI) SendPaymentLink(ctx context.Context, paymentID string) error {
	o.hook()
	if o.failSend != nil {
		return o.failSend
	}
	return o.Client.SendPaymentLink(ctx, paymentID)
}

func (o *observingAPI) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	o.hook()
	if o.failProfile != nil {
		return nil, o.failProfile
	}
	return o.Client.UpdateProfile(ctx, upd)
}

func (o *observingAPI) RSVP(ctx context.Context, activityID string, response models.RSVPResponse) (*models.Activity, error) {
	o.hook()
	if o.failRSVP != nil {
		return nil, o.failRSVP
	}
	return o.Client.RSVP(ctx, activityID, response)
}

type fakeBrowser struct {
	mu          sync.Mutex
	unavailable error
	openErr     error
	opened      []string
}

func (b *fakeBrowser) Available() error { return b.unavailable }

func (b *fakeBrowser) OpenURL(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return b.openErr
	}
	b.opened = append(b.opened, url)
	return nil
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *toastRecorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *toastRecorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.toasts))
	for _, t := range r.toasts {
		out = append(out, t.Title)
	}
	return out
}

type testEnv struct {
	api     *observingAPI
	coord   *Coordinator
	browser *fakeBrowser
	toasts  *toastRecorder
	links   *bytes.Buffer
	url     string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	srv := httptest.NewServer(handlers.NewRouter(handlers.Deps{
		Store:   store.NewSeededMemory(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		Tokens:  auth.NewTokenIssuer("test-secret", time.Hour),
		Keeper:  idempotency.NewMemory(time.Hour),
		Gateway: paymentgateway.NewMock(models.ProviderStripe, ""),
		Mailer:  discardMailer{},
		Uploads: handlers.NewUploader(t.TempDir(), "http://localhost"),

		WebhookSecret: webhookSecret,
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, nil)
	require.NoError(t, err)

	env := &testEnv{
		api:     &observingAPI{Client: client},
		browser: &fakeBrowser{},
		toasts:  &toastRecorder{},
		links:   &bytes.Buffer{},
		url:     srv.URL,
	}
	if opts.ClientID == "" {
		opts.ClientID = "client-1"
	}
	if opts.Redirector == nil {
		opts.Redirector = PopupRedirector{Browser: env.browser}
	}
	opts.Fallback = LinkFallbackRedirector{Out: env.links}
	opts.Notifier = env.toasts
	env.coord = New(env.api, opts)
	return env
}

const webhookSecret = "whsec"

// settle reports a checkout outcome the way the provider does.
func (e *testEnv) settle(t *testing.T, intentID string, status models.FeeStatus) {
	t.Helper()
	body := []byte(`{"intent_id":"` + intentID + `","status":"` + string(status) + `"}`)
	req, err := http.NewRequest(http.MethodPost, e.url+handlers.WebhookPath, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(handlers.SignatureHeader, handlers.Sign(webhookSecret, body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func cachedFee(t *testing.T, c *Coordinator, clubID int64, feeID string) models.Fee {
	t.Helper()
	page, ok := querycache.GetAs[models.FeePage](c.Cache(), FeesKey(clubID))
	require.True(t, ok, "fee page not cached")
	for _, f := range page.Items {
		if f.ID == feeID {
			return f
		}
	}
	t.Fatalf("fee %s not cached", feeID)
	return models.Fee{}
}

func TestCreateIntentMarksFeeProcessingWhileInFlight(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	require.Equal(t, models.FeeStatusUnpaid, cachedFee(t, env.coord, 1, "fee-1").Status)

	var during models.FeeStatus
	env.api.during = func() { during = cachedFee(t, env.coord, 1, "fee-1").Status }

	intent, err := env.coord.CreateIntent(ctx, 1, "fee-1")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, during)
	assert.Equal(t, "https://checkout.stripe.test/intent/fee-1", intent.CheckoutURL)
	assert.Equal(t, []string{intent.CheckoutURL}, env.browser.opened)
	assert.Equal(t, []string{ToastPaymentInitiated.Title}, env.toasts.titles())
	assert.Empty(t, env.links.String())

	// The list was invalidated, so the next read comes from the server.
	page, err := env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, page.Items[0].Status)
	assert.Equal(t, "fee-1", page.Items[0].ID)
}

func TestCreateIntentIsIdempotentPerClient(t *testing.T) {
	env := newTestEnv(t, Options{ClientID: "laptop"})
	ctx := context.Background()

	first, err := env.coord.CreateIntent(ctx, 1, "fee-2")
	require.NoError(t, err)

	// A second installation with the same client id, e.g. after a restart.
	again := New(env.api, Options{ClientID: "laptop", Redirector: PopupRedirector{Browser: env.browser}})
	second, err := again.CreateIntent(ctx, 1, "fee-2")
	require.NoError(t, err)
	assert.Equal(t, first.IntentID, second.IntentID)

	// A retry from the same coordinator replays too, even with the fee now processing.
	_, err = env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	third, err := env.coord.CreateIntent(ctx, 1, "fee-2")
	require.NoError(t, err)
	assert.Equal(t, first.IntentID, third.IntentID)
}

func TestCreateIntentRetriesAfterFailedCheckout(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	first, err := env.coord.CreateIntent(ctx, 1, "fee-1")
	require.NoError(t, err)
	env.settle(t, first.IntentID, models.FeeStatusFailed)

	page, err := env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	require.Equal(t, models.FeeStatusFailed, page.Items[0].Status)

	var during models.FeeStatus
	env.api.during = func() { during = cachedFee(t, env.coord, 1, "fee-1").Status }
	second, err := env.coord.CreateIntent(ctx, 1, "fee-1")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, during)
	assert.NotEqual(t, first.IntentID, second.IntentID)
	assert.Equal(t, []string{first.CheckoutURL, second.CheckoutURL}, env.browser.opened)

	page, err = env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusProcessing, page.Items[0].Status)

	// The new checkout is the one the provider settles.
	env.settle(t, second.IntentID, models.FeeStatusPaid)
	page, err = env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, page.Items[0].Status)
}

func TestCreateIntentAfterPaidCheckoutIsNotPayable(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	intent, err := env.coord.CreateIntent(ctx, 1, "fee-2")
	require.NoError(t, err)
	env.settle(t, intent.IntentID, models.FeeStatusPaid)

	// Nothing cached says paid yet, so the server has to refuse.
	_, err = env.coord.CreateIntent(ctx, 1, "fee-2")
	assert.ErrorIs(t, err, ErrNotPayable)
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))
	assert.Equal(t, 2, env.api.intentCalls)
	assert.Equal(t, []string{intent.CheckoutURL}, env.browser.opened)

	_, err = env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)
	_, err = env.coord.CreateIntent(ctx, 1, "fee-2")
	assert.ErrorIs(t, err, ErrNotPayable)
	assert.Equal(t, 2, env.api.intentCalls, "rejected from the cached status")
}

func TestCreateIntentRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	before, err := env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)

	var during models.FeeStatus
	env.api.during = func() { during = cachedFee(t, env.coord, 1, "fee-3").Status }
	env.api.failIntent = errForced

	_, err = env.coord.CreateIntent(ctx, 1, "fee-3")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apiclient.StatusCode(err))
	assert.Equal(t, models.FeeStatusProcessing, during)

	after, ok := querycache.GetAs[models.FeePage](env.coord.Cache(), FeesKey(1))
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{ToastPaymentFailed.Title}, env.toasts.titles())
	assert.Equal(t, VariantDestructive, env.toasts.toasts[0].Variant)
	assert.Empty(t, env.browser.opened, "window must be closed, not navigated")
	assert.Empty(t, env.links.String())
}

func TestFailedMutationKeepsOverlappingChanges(t *testing.T) {
	t.Run("fees", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		ctx := context.Background()
		_, err := env.coord.Fees(ctx, 1, true)
		require.NoError(t, err)

		// fee-2 is paid for while the fee-1 request is still in flight.
		env.api.failIntent = errForced
		env.api.during = func() {
			env.api.during = nil
			env.api.failIntent = nil
			_, err := env.coord.CreateIntent(ctx, 1, "fee-2")
			require.NoError(t, err)
			env.api.failIntent = errForced
		}

		_, err = env.coord.CreateIntent(ctx, 1, "fee-1")
		require.Error(t, err)
		assert.Equal(t, models.FeeStatusUnpaid, cachedFee(t, env.coord, 1, "fee-1").Status)
		assert.Equal(t, models.FeeStatusProcessing, cachedFee(t, env.coord, 1, "fee-2").Status)
	})

	t.Run("profile", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		ctx := context.Background()
		before, err := env.coord.Profile(ctx)
		require.NoError(t, err)

		push := !before.NotifyPush
		env.api.failProfile = errForced
		env.api.during = func() {
			env.api.during = nil
			env.api.failProfile = nil
			_, err := env.coord.UpdateProfile(ctx, models.ProfileUpdate{NotifyPush: &push})
			require.NoError(t, err)
			env.api.failProfile = errForced
		}

		name := "Jane Doe"
		_, err = env.coord.UpdateProfile(ctx, models.ProfileUpdate{Name: &name})
		require.Error(t, err)
		after, _ := querycache.GetAs[models.Profile](env.coord.Cache(), ProfileKey)
		assert.Equal(t, before.Name, after.Name)
		assert.Equal(t, push, after.NotifyPush)
	})
}

func TestCreateIntentLocalChecks(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.coord.Fees(ctx, 1, true)
	require.NoError(t, err)

	_, err = env.coord.CreateIntent(ctx, 1, "fee-5")
	assert.ErrorIs(t, err, ErrNotPayable)
	_, err = env.coord.CreateIntent(ctx, 1, "fee-404")
	assert.ErrorIs(t, err, ErrFeeNotFound)
	assert.Zero(t, env.api.intentCalls)
	assert.Empty(t, env.toasts.titles())
}

func TestCreateIntentMapsServerErrors(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	// Nothing cached: the server decides.
	_, err := env.coord.CreateIntent(ctx, 1, "fee-404")
	assert.ErrorIs(t, err, ErrFeeNotFound)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)

	_, err = env.coord.CreateIntent(ctx, 1, "fee-5")
	assert.ErrorIs(t, err, ErrNotPayable)
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))
	assert.Equal(t, []string{ToastPaymentFailed.Title, ToastPaymentFailed.Title}, env.toasts.titles())
}

func TestCreateIntentFallsBackToLink(t *testing.T) {
	t.Run("popup blocked", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.browser.unavailable = errors.New("no display")

		intent, err := env.coord.CreateIntent(context.Background(), 1, "fee-1")
		require.NoError(t, err)
		assert.Empty(t, env.browser.opened)
		assert.Contains(t, env.links.String(), intent.CheckoutURL)
	})

	t.Run("navigation fails", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.browser.openErr = errors.New("exec failed")

		intent, err := env.coord.CreateIntent(context.Background(), 1, "fee-1")
		require.NoError(t, err)
		assert.Equal(t, "Open this link to complete the payment: "+intent.CheckoutURL+"\n", env.links.String())
	})

	t.Run("link mode", func(t *testing.T) {
		var out bytes.Buffer
		env := newTestEnv(t, Options{Redirector: NewRedirector("link", nil, &out)})

		intent, err := env.coord.CreateIntent(context.Background(), 1, "fee-1")
		require.NoError(t, err)
		assert.Contains(t, out.String(), intent.CheckoutURL)
		assert.Empty(t, env.links.String())
	})
}

func TestFeePagination(t *testing.T) {
	env := newTestEnv(t, Options{PageSize: 2})
	ctx := context.Background()

	page, err := env.coord.Fees(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	page, err = env.coord.LoadMoreFees(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)

	page, err = env.coord.LoadMoreFees(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Nil(t, page.NextCursor)

	page, err = env.coord.LoadMoreFees(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	other := New(env.api, Options{PageSize: 2})
	all, err := other.Fees(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, page, all)
}

func TestSendPaymentLinkUpdatesEveryList(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	allQuery := apiclient.PaymentQuery{ClubID: 1}
	failedQuery := apiclient.PaymentQuery{ClubID: 1, Status: models.PaymentStatusFailed}
	allBefore, err := env.coord.Payments(ctx, allQuery)
	require.NoError(t, err)
	failedBefore, err := env.coord.Payments(ctx, failedQuery)
	require.NoError(t, err)
	require.Len(t, failedBefore.Items, 1)

	statusIn := func(q apiclient.PaymentQuery) models.PaymentStatus {
		page, ok := querycache.GetAs[models.PaymentPage](env.coord.Cache(), PaymentsListKey(q))
		require.True(t, ok)
		for _, p := range page.Items {
			if p.ID == "pay-2" {
				return p.Status
			}
		}
		return ""
	}

	var during []models.PaymentStatus
	env.api.during = func() { during = []models.PaymentStatus{statusIn(allQuery), statusIn(failedQuery)} }
	env.api.failSend = errForced

	err = env.coord.SendPaymentLink(ctx, "pay-2")
	require.Error(t, err)
	assert.Equal(t, []models.PaymentStatus{models.PaymentStatusProcessing, models.PaymentStatusProcessing}, during)

	allAfter, _ := querycache.GetAs[models.PaymentPage](env.coord.Cache(), PaymentsListKey(allQuery))
	failedAfter, _ := querycache.GetAs[models.PaymentPage](env.coord.Cache(), PaymentsListKey(failedQuery))
	assert.Equal(t, allBefore, allAfter)
	assert.Equal(t, failedBefore, failedAfter)
	assert.Equal(t, []string{ToastLinkFailed.Title}, env.toasts.titles())

	env.api.failSend = nil
	require.NoError(t, env.coord.SendPaymentLink(ctx, "pay-2"))
	assert.Equal(t, []string{ToastLinkFailed.Title, ToastLinkSent.Title}, env.toasts.titles())

	refreshed, err := env.coord.Payments(ctx, failedQuery)
	require.NoError(t, err)
	assert.Empty(t, refreshed.Items)
}

func TestSendPaymentLinkErrors(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.coord.Payments(ctx, apiclient.PaymentQuery{ClubID: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, env.coord.SendPaymentLink(ctx, "pay-4"), ErrNotPayable)
	assert.Empty(t, env.toasts.titles())

	err = env.coord.SendPaymentLink(ctx, "pay-99")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	assert.Equal(t, []string{ToastLinkFailed.Title}, env.toasts.titles())
}

func TestUpdateProfileOptimistically(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	before, err := env.coord.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "John Doe", before.Name)

	name := "Jane Doe"
	var during string
	env.api.during = func() {
		p, _ := querycache.GetAs[models.Profile](env.coord.Cache(), ProfileKey)
		during = p.Name
	}
	env.api.failProfile = errForced

	_, err = env.coord.UpdateProfile(ctx, models.ProfileUpdate{Name: &name})
	require.Error(t, err)
	assert.Equal(t, "Jane Doe", during)
	after, _ := querycache.GetAs[models.Profile](env.coord.Cache(), ProfileKey)
	assert.Equal(t, before, after)

	env.api.failProfile = nil
	saved, err := env.coord.UpdateProfile(ctx, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", saved.Name)
	assert.Equal(t, []string{ToastProfileFailed.Title, ToastProfileUpdated.Title}, env.toasts.titles())

	fresh, err := env.coord.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", fresh.Name)
}

func TestUpdateClubSettingsOptimistically(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	before, err := env.coord.ClubSettings(ctx, "1")
	require.NoError(t, err)

	// The server rejects it, so the optimistic value is rolled back.
	bad := "red"
	_, err = env.coord.UpdateClubSettings(ctx, "1", models.ClubSettingsUpdate{PrimaryColor: &bad})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiclient.StatusCode(err))
	after, _ := querycache.GetAs[models.ClubSettings](env.coord.Cache(), ClubSettingsKey("1"))
	assert.Equal(t, before, after)

	color := "#112233"
	deadline := 12
	saved, err := env.coord.UpdateClubSettings(ctx, "1", models.ClubSettingsUpdate{
		PrimaryColor: &color,
		RSVPDefaults: &models.RSVPDefaultsUpdate{DeadlineHours: &deadline},
	})
	require.NoError(t, err)
	assert.Equal(t, "#112233", saved.PrimaryColor)
	assert.Equal(t, 12, saved.RSVPDefaults.DeadlineHours)
	assert.Equal(t, before.RSVPDefaults.Visibility, saved.RSVPDefaults.Visibility)
	assert.Equal(t, []string{ToastSettingsFailed.Title, ToastSettingsUpdated.Title}, env.toasts.titles())
}

func TestRSVPOptimistically(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	list, err := env.coord.Activities(ctx, 1)
	require.NoError(t, err)
	find := func(list []models.Activity, id string) models.Activity {
		for _, a := range list {
			if a.ID == id {
				return a
			}
		}
		t.Fatalf("activity %s missing", id)
		return models.Activity{}
	}
	before := find(list, "act-1")
	require.Equal(t, 2, before.RSVP.Going)

	var during models.Activity
	env.api.during = func() {
		cached, _ := querycache.GetAs[[]models.Activity](env.coord.Cache(), ActivitiesKey(1))
		during = find(cached, "act-1")
	}
	env.api.failRSVP = errForced

	_, err = env.coord.RSVP(ctx, 1, "act-1", models.RSVPGoing)
	require.Error(t, err)
	assert.Equal(t, 3, during.RSVP.Going)
	cached, _ := querycache.GetAs[[]models.Activity](env.coord.Cache(), ActivitiesKey(1))
	assert.Equal(t, before, find(cached, "act-1"))
	assert.Equal(t, []string{ToastRSVPFailed.Title}, env.toasts.titles())

	env.api.failRSVP = nil
	saved, err := env.coord.RSVP(ctx, 1, "act-1", models.RSVPGoing)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.RSVP.Going)
	require.NotNil(t, saved.RSVP.UserResponse)
	assert.Equal(t, models.RSVPGoing, *saved.RSVP.UserResponse)

	saved, err = env.coord.RSVP(ctx, 1, "act-1", models.RSVPNotGoing)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.RSVP.Going)
	assert.Equal(t, 2, saved.RSVP.NotGoing)

	_, err = env.coord.RSVP(ctx, 1, "act-404", models.RSVPGoing)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}
