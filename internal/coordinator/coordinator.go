// Package coordinator drives payment intents and payment links from the
// client side: optimistic "processing" updates in the query cache, rollback
// on failure, checkout redirects and notifications.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"fanplatform.dk/internal/apiclient"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/querycache"
)

var (
	ErrFeeNotFound     = errors.New("fee not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNotPayable      = errors.New("not payable in its current status")

	ErrActivityNotFound = errors.New("activity not found")
)

// API is the subset of apiclient.Client the coordinator uses.
type API interface {
	ListFees(ctx context.Context, clubID int64, cursor string, limit int) (*models.FeePage, error)
	ListPayments(ctx context.Context, q apiclient.PaymentQuery) (*models.PaymentPage, error)
	CreatePaymentIntent(ctx context.Context, clubID int64, feeID, clientID string) (*models.PaymentIntent, error)
	SendPaymentLink(ctx context.Context, paymentID string) error
	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error)
	GetClubSettings(ctx context.Context, clubID string) (*models.ClubSettings, error)
	UpdateClubSettings(ctx context.Context, clubID string, upd models.ClubSettingsUpdate) (*models.ClubSettings, error)
	ListActivities(ctx context.Context, clubID int64) ([]models.Activity, error)
	RSVP(ctx context.Context, activityID string, response models.RSVPResponse) (*models.Activity, error)
}

var _ API = (*apiclient.Client)(nil)

func FeesKey(clubID int64) querycache.Key {
	return querycache.K("payments", strconv.FormatInt(clubID, 10))
}

// PaymentsListPrefix covers every filter variant of the payments list.
var PaymentsListPrefix = querycache.K("payments-list")

func PaymentsListKey(q apiclient.PaymentQuery) querycache.Key {
	return querycache.K("payments-list", strconv.FormatInt(q.ClubID, 10), string(q.Status), q.Search, q.DateFrom, q.DateTo, q.Cursor, strconv.Itoa(q.Limit))
}

var ProfileKey = querycache.K("profile")

func ClubSettingsKey(clubID string) querycache.Key { return querycache.K("clubSettings", clubID) }

func ActivitiesKey(clubID int64) querycache.Key {
	return querycache.K("activities", strconv.FormatInt(clubID, 10))
}

type Options struct {
	// ClientID identifies this installation in idempotency keys. Empty means
	// a random id for the lifetime of the coordinator.
	ClientID   string
	Redirector Redirector
	// Fallback is used when Redirector cannot open a window.
	Fallback   Redirector
	Notifier   Notifier
	Cache      *querycache.Cache
	// PageSize of fee pages; 0 leaves it to the server.
	PageSize   int
}

type Coordinator struct {
	api        API
	cache      *querycache.Cache
	clientID   string
	redirector Redirector
	fallback   Redirector
	notifier   Notifier
	pageSize   int
}

func New(api API, opts Options) *Coordinator {
	c := &Coordinator{
		api:        api,
		cache:      opts.Cache,
		clientID:   opts.ClientID,
		redirector: opts.Redirector,
		fallback:   opts.Fallback,
		notifier:   opts.Notifier,
		pageSize:   opts.PageSize,
	}
	if c.cache == nil {
		c.cache = querycache.New(0)
	}
	if c.clientID == "" {
		c.clientID = uuid.NewString()
	}
	if c.fallback == nil {
		c.fallback = LinkFallbackRedirector{Out: os.Stdout}
	}
	if c.redirector == nil {
		c.redirector = c.fallback
	}
	return c
}

func (c *Coordinator) Cache() *querycache.Cache { return c.cache }

func (c *Coordinator) ClientID() string { return c.clientID }

func (c *Coordinator) notify(t Toast) {
	if c.notifier != nil {
		c.notifier.Notify(t)
	}
}

// classify maps server statuses onto the coordinator's sentinels.
func classify(err error, notFound error) error {
	switch apiclient.StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", notFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrNotPayable, err)
	}
	return err
}

// Fees returns the cached fee list of a club, fetching it when missing or
// stale. With all set every page is followed.
func (c *Coordinator) Fees(ctx context.Context, clubID int64, all bool) (models.FeePage, error) {
	return querycache.FetchAs(ctx, c.cache, FeesKey(clubID), func(ctx context.Context) (models.FeePage, error) {
		page, err := c.api.ListFees(ctx, clubID, "", c.pageSize)
		if err != nil {
			return models.FeePage{}, err
		}
		out := *page
		for all && out.NextCursor != nil {
			next, err := c.api.ListFees(ctx, clubID, *out.NextCursor, c.pageSize)
			if err != nil {
				return models.FeePage{}, err
			}
			out.Items = append(out.Items, next.Items...)
			out.NextCursor = next.NextCursor
		}
		return out, nil
	})
}

// LoadMoreFees appends the next page to the cached fee list.
func (c *Coordinator) LoadMoreFees(ctx context.Context, clubID int64) (models.FeePage, error) {
	key := FeesKey(clubID)
	current, ok := querycache.GetAs[models.FeePage](c.cache, key)
	if !ok {
		return c.Fees(ctx, clubID, false)
	}
	if current.NextCursor == nil {
		return current, nil
	}
	next, err := c.api.ListFees(ctx, clubID, *current.NextCursor, c.pageSize)
	if err != nil {
		return current, err
	}
	merged := models.FeePage{Items: append(slices.Clone(current.Items), next.Items...), NextCursor: next.NextCursor}
	c.cache.Set(key, merged)
	return merged, nil
}

func (c *Coordinator) Payments(ctx context.Context, q apiclient.PaymentQuery) (models.PaymentPage, error) {
	return querycache.FetchAs(ctx, c.cache, PaymentsListKey(q), func(ctx context.Context) (models.PaymentPage, error) {
		page, err := c.api.ListPayments(ctx, q)
		if err != nil {
			return models.PaymentPage{}, err
		}
		return *page, nil
	})
}

// CreateIntent starts a checkout for a fee. The cached fee is shown as
// processing while the request runs and restored exactly if it fails.
func (c *Coordinator) CreateIntent(ctx context.Context, clubID int64, feeID string) (*models.PaymentIntent, error) {
	key := FeesKey(clubID)
	if page, ok := querycache.GetAs[models.FeePage](c.cache, key); ok {
		i := slices.IndexFunc(page.Items, func(f models.Fee) bool { return f.ID == feeID })
		switch {
		case i < 0 && page.NextCursor == nil:
			return nil, ErrFeeNotFound
		case i >= 0 && page.Items[i].Status == models.FeeStatusPaid:
			return nil, ErrNotPayable
		}
	}

	// Claim the window before the request so it is not treated as unsolicited.
	win, err := c.redirector.Open()
	if err != nil {
		slog.Debug("Redirector unavailable, falling back to link", "error", err)
		if win, err = c.fallback.Open(); err != nil {
			return nil, err
		}
	}

	var intent *models.PaymentIntent
	err = c.mutate(ctx, mutation{
		prefix:  key,
		patch:   func(cache *querycache.Cache) { cache.Update(key, markFeeProcessing(feeID)) },
		revert:  revertKey(key, restoreFee(feeID)),
		failure: ToastPaymentFailed,
	}, func(ctx context.Context) error {
		var err error
		intent, err = c.api.CreatePaymentIntent(ctx, clubID, feeID, c.clientID)
		return err
	})
	if err != nil {
		win.Close()
		slog.Warn("Payment intent failed", "club_id", clubID, "fee_id", feeID, "error", err)
		return nil, classify(err, ErrFeeNotFound)
	}

	c.notify(ToastPaymentInitiated)
	if err := win.Navigate(intent.CheckoutURL); err != nil {
		slog.Warn("Failed to open checkout window, showing link instead", "error", err)
		if fw, ferr := c.fallback.Open(); ferr == nil {
			_ = fw.Navigate(intent.CheckoutURL)
		}
	}
	return intent, nil
}

// markFeeProcessing only ever sets processing, and only where the lifecycle allows it.
func markFeeProcessing(feeID string) func(any) any {
	return func(old any) any {
		page, ok := old.(models.FeePage)
		if !ok {
			return old
		}
		items := slices.Clone(page.Items)
		for i := range items {
			if items[i].ID == feeID && items[i].Status.CanTransitionTo(models.FeeStatusProcessing) {
				items[i].Status = models.FeeStatusProcessing
			}
		}
		page.Items = items
		return page
	}
}

// restoreFee puts back the status feeID had before the patch.
func restoreFee(feeID string) func(cur, before models.FeePage) models.FeePage {
	return func(cur, before models.FeePage) models.FeePage {
		j := slices.IndexFunc(before.Items, func(f models.Fee) bool { return f.ID == feeID })
		if j < 0 {
			return cur
		}
		items := slices.Clone(cur.Items)
		for i := range items {
			if items[i].ID == feeID {
				items[i].Status = before.Items[j].Status
			}
		}
		cur.Items = items
		return cur
	}
}

// SendPaymentLink sends a payment link for a pending or failed payment. Every
// cached payments list containing it shows it as processing until the
// request settles; all of them are rolled back on failure.
func (c *Coordinator) SendPaymentLink(ctx context.Context, paymentID string) error {
	for _, k := range c.cache.Keys(PaymentsListPrefix) {
		page, ok := querycache.GetAs[models.PaymentPage](c.cache, k)
		if !ok {
			continue
		}
		for _, p := range page.Items {
			if p.ID == paymentID && !p.Status.Sendable() && p.Status != models.PaymentStatusProcessing {
				return ErrNotPayable
			}
		}
	}

	err := c.mutate(ctx, mutation{
		prefix: PaymentsListPrefix,
		patch:  func(cache *querycache.Cache) { cache.UpdatePrefix(PaymentsListPrefix, markPaymentProcessing(paymentID)) },
		revert: func(cache *querycache.Cache, before querycache.Snapshot) {
			cache.UpdatePrefix(PaymentsListPrefix, restorePayment(paymentID, before))
		},
		success: &ToastLinkSent,
		failure: ToastLinkFailed,
	}, func(ctx context.Context) error {
		return c.api.SendPaymentLink(ctx, paymentID)
	})
	if err != nil {
		slog.Warn("Sending payment link failed", "payment_id", paymentID, "error", err)
		return classify(err, ErrPaymentNotFound)
	}
	return nil
}

func markPaymentProcessing(paymentID string) func(querycache.Key, any) (any, bool) {
	return func(_ querycache.Key, old any) (any, bool) {
		page, ok := old.(models.PaymentPage)
		if !ok {
			return old, false
		}
		i := slices.IndexFunc(page.Items, func(p models.Payment) bool { return p.ID == paymentID })
		if i < 0 || !page.Items[i].Status.CanTransitionTo(models.PaymentStatusProcessing) {
			return old, false
		}
		items := slices.Clone(page.Items)
		items[i].Status = models.PaymentStatusProcessing
		page.Items = items
		return page, true
	}
}

// restorePayment puts back the status paymentID had in each list before the
// patch. Lists cached since then are left alone.
func restorePayment(paymentID string, before querycache.Snapshot) func(querycache.Key, any) (any, bool) {
	return func(key querycache.Key, cur any) (any, bool) {
		page, ok := cur.(models.PaymentPage)
		if !ok {
			return cur, false
		}
		old, ok := querycache.SnapshotAs[models.PaymentPage](before, key)
		if !ok {
			return cur, false
		}
		i := slices.IndexFunc(page.Items, func(p models.Payment) bool { return p.ID == paymentID })
		j := slices.IndexFunc(old.Items, func(p models.Payment) bool { return p.ID == paymentID })
		if i < 0 || j < 0 || page.Items[i].Status == old.Items[j].Status {
			return cur, false
		}
		items := slices.Clone(page.Items)
		items[i].Status = old.Items[j].Status
		page.Items = items
		return page, true
	}
}
