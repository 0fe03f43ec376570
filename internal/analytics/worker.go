package analytics

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultFlushInterval = 30 * time.Second
	defaultBatchSize     = 100
	defaultMaxQueued     = 10_000
)

// wireEvent is the analytics backend's event shape.
type wireEvent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Timestamp    int64  `json:"timestamp"`
	SessionID    string `json:"session_id,omitempty"`
	Integration  string `json:"integration"`
	ContextID    string `json:"context_id,omitempty"`
	LinkType     string `json:"link_type,omitempty"`
	VaultRequest bool   `json:"is_vault_request,omitempty"`
	StartTime    int64  `json:"start_time,omitempty"`
	EndTime      int64  `json:"end_time,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	MerchantID   string `json:"merchant_id,omitempty"`
}

type wireBatch struct {
	Events []wireEvent `json:"events"`
}

// Worker drains the store in the background, shipping batches to each
// record's analytics URL. Failed batches stay queued and are retried on a
// later tick; the store is trimmed so an unreachable backend cannot grow it
// without bound.
type Worker struct {
	store      *Store
	httpClient *http.Client
	limiter    *rate.Limiter
	interval   time.Duration
	batchSize  int
	maxQueued  int
	log        *slog.Logger
}

// NewWorker creates a flush worker over the store. One flush may run per
// interval; the limiter additionally caps flushes to one per 10 seconds
// across bursts.
func NewWorker(store *Store, log *slog.Logger) *Worker {
	return &Worker{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(10*time.Second), 1),
		interval:   defaultFlushInterval,
		batchSize:  defaultBatchSize,
		maxQueued:  defaultMaxQueued,
		log:        log,
	}
}

// Run flushes on a fixed interval until ctx is cancelled, with one final
// best-effort flush on the way out.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			if !w.limiter.Allow() {
				continue
			}
			w.flush(ctx)
		}
	}
}

// flush ships one batch per analytics URL and removes delivered records.
func (w *Worker) flush(ctx context.Context) {
	if err := w.store.TrimOldest(ctx, w.maxQueued); err != nil {
		w.log.Warn("failed to trim analytics store", "error", err)
	}

	records, err := w.store.NextBatch(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("failed to read analytics batch", "error", err)
		return
	}
	if len(records) == 0 {
		return
	}

	for url, group := range groupByURL(records) {
		if err := w.ship(ctx, url, group); err != nil {
			w.log.Warn("analytics batch delivery failed, will retry",
				"url", url, "events", len(group), "error", err)
			continue
		}

		ids := make([]string, len(group))
		for i, rec := range group {
			ids[i] = rec.ID
		}
		if err := w.store.Remove(ctx, ids); err != nil {
			w.log.Warn("failed to remove delivered analytics events", "error", err)
		}
	}
}

func (w *Worker) ship(ctx context.Context, url string, records []Record) error {
	batch := wireBatch{Events: make([]wireEvent, len(records))}
	for i, rec := range records {
		batch.Events[i] = wireEvent{
			ID:           rec.ID,
			Name:         rec.Name,
			Timestamp:    rec.Timestamp,
			SessionID:    rec.SessionID,
			Integration:  rec.Integration,
			ContextID:    rec.ContextID,
			LinkType:     rec.LinkType,
			VaultRequest: rec.VaultRequest,
			StartTime:    rec.StartTime,
			EndTime:      rec.EndTime,
			Endpoint:     rec.Endpoint,
			MerchantID:   rec.MerchantID,
		}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics backend returned %d", resp.StatusCode)
	}
	return nil
}

func groupByURL(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, rec := range records {
		groups[rec.AnalyticsURL] = append(groups[rec.AnalyticsURL], rec)
	}
	return groups
}
