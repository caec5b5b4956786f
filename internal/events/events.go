// Package events fans out fee and payment status changes to Kafka and to
// connected websocket clients.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	TypeIntentCreated   = "intent.created"
	TypeFeeStatus       = "fee.status"
	TypePaymentStatus   = "payment.status"
	TypePaymentLinkSent = "payment.link_sent"
)

type Event struct {
	Type       string    `json:"type"`
	ClubID     int64     `json:"club_id"`
	ResourceID string    `json:"resource_id"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to slog. Used when no broker is configured.
type Log struct{}

func (Log) Publish(_ context.Context, ev Event) error {
	slog.Info("Event", "type", ev.Type, "club_id", ev.ClubID, "resource_id", ev.ResourceID, "status", ev.Status)
	return nil
}

// Emit publishes ev and only logs failures; status events never fail a request.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish event", "type", ev.Type, "resource_id", ev.ResourceID, "error", err)
	}
}
