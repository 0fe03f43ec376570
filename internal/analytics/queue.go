package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

// EventCrash is the event name crash reports are recorded under.
const EventCrash = "core:crash"

// Queue implements paysdk.AnalyticsTransport over the SQLite store. SendEvent
// only appends; delivery happens asynchronously in the Worker.
type Queue struct {
	store *Store
}

// NewQueue wraps a migrated Store as an analytics transport.
func NewQueue(store *Store) *Queue {
	return &Queue{store: store}
}

// SendEvent implements paysdk.AnalyticsTransport.
func (q *Queue) SendEvent(
	ctx context.Context,
	cfg *paysdk.Configuration,
	event paysdk.AnalyticsEvent,
	integration paysdk.IntegrationType,
	_ paysdk.Authorization,
) error {
	if cfg.AnalyticsURL == "" {
		return fmt.Errorf("merchant configuration has no analytics url")
	}

	return q.store.Enqueue(ctx, Record{
		ID:           event.ID,
		Name:         event.Name,
		Timestamp:    unixMillis(event.Timestamp),
		SessionID:    event.SessionID,
		Integration:  string(integration),
		ContextID:    event.ContextID,
		LinkType:     event.LinkType,
		VaultRequest: event.VaultRequest,
		StartTime:    unixMillis(event.Start),
		EndTime:      unixMillis(event.End),
		Endpoint:     event.Endpoint,
		MerchantID:   cfg.MerchantID,
		AnalyticsURL: cfg.AnalyticsURL,
	})
}

// ReportCrash implements paysdk.AnalyticsTransport. Crash reports travel the
// same queue under their own event name.
func (q *Queue) ReportCrash(
	ctx context.Context,
	cfg *paysdk.Configuration,
	integration paysdk.IntegrationType,
	_ paysdk.Authorization,
) error {
	if cfg.AnalyticsURL == "" {
		return fmt.Errorf("merchant configuration has no analytics url")
	}

	return q.store.Enqueue(ctx, Record{
		ID:           ulid.Make().String(),
		Name:         EventCrash,
		Timestamp:    time.Now().UnixMilli(),
		Integration:  string(integration),
		MerchantID:   cfg.MerchantID,
		AnalyticsURL: cfg.AnalyticsURL,
	})
}
