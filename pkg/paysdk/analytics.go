package paysdk

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventAPIRequestLatency is emitted once per successful gated call, labeled
// with the normalized endpoint and the transport timing window.
const EventAPIRequestLatency = "core:api-request-latency"

// AnalyticsEventParams are the optional correlation fields a caller can
// attach to an event.
type AnalyticsEventParams struct {
	// ContextID correlates the event with a remote payment session
	ContextID string

	// LinkType records how a browser switch was linked ("universal", "deeplink")
	LinkType string

	// VaultRequest marks events belonging to a vault-setup flow
	VaultRequest bool

	// Start and End bound the network exchange for latency events
	Start time.Time
	End   time.Time

	// Endpoint is the normalized endpoint label for latency events
	Endpoint string
}

// AnalyticsEvent is one fully-formed analytics record. Events are created
// once per completed call or domain event, handed to the transport, and never
// retained by the dispatcher afterward.
type AnalyticsEvent struct {
	ID           string
	Name         string
	Timestamp    time.Time
	SessionID    string
	ContextID    string
	LinkType     string
	VaultRequest bool
	Start        time.Time
	End          time.Time
	Endpoint     string
}

// AnalyticsTransport ships fully-formed events to the analytics backend.
// Implementations own batching and delivery; failures must never propagate
// into a business operation.
type AnalyticsTransport interface {
	SendEvent(ctx context.Context, cfg *Configuration, event AnalyticsEvent,
		integration IntegrationType, auth Authorization) error
	ReportCrash(ctx context.Context, cfg *Configuration,
		integration IntegrationType, auth Authorization) error
}

// noopAnalytics is the default sink when no analytics transport is wired.
type noopAnalytics struct{}

func (noopAnalytics) SendEvent(context.Context, *Configuration, AnalyticsEvent, IntegrationType, Authorization) error {
	return nil
}

func (noopAnalytics) ReportCrash(context.Context, *Configuration, IntegrationType, Authorization) error {
	return nil
}

// SendAnalyticsEvent queues a named analytics event. Analytics is best
// effort: a credential or configuration failure silently drops the event and
// never surfaces to the business operation that triggered it.
func (c *Client) SendAnalyticsEvent(ctx context.Context, name string, params AnalyticsEventParams) {
	timestamp := time.Now()

	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		c.log.Debug("dropping analytics event, configuration unavailable",
			"event", name, "error", err)
		return
	}

	c.emitEvent(ctx, cfg, name, timestamp, params)
}

// emitEvent hands a fully-formed event to the analytics transport. It takes
// the configuration as an argument so internal callers that already hold one
// never re-enter GetConfiguration.
func (c *Client) emitEvent(
	ctx context.Context,
	cfg *Configuration,
	name string,
	timestamp time.Time,
	params AnalyticsEventParams,
) {
	event := AnalyticsEvent{
		ID:           ulid.Make().String(),
		Name:         name,
		Timestamp:    timestamp,
		SessionID:    c.sessionID,
		ContextID:    params.ContextID,
		LinkType:     params.LinkType,
		VaultRequest: params.VaultRequest,
		Start:        params.Start,
		End:          params.End,
		Endpoint:     params.Endpoint,
	}
	if err := c.analytics.SendEvent(ctx, cfg, event, c.integrationType, c.authorization); err != nil {
		c.log.Debug("analytics transport rejected event", "event", name, "error", err)
	}
}

// ReportCrash forwards a crash report through the analytics pipeline. Like
// events, crash reports are best effort and silently dropped without
// configuration.
func (c *Client) ReportCrash(ctx context.Context) {
	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		c.log.Debug("dropping crash report, configuration unavailable", "error", err)
		return
	}
	if err := c.analytics.ReportCrash(ctx, cfg, c.integrationType, c.authorization); err != nil {
		c.log.Debug("analytics transport rejected crash report", "error", err)
	}
}

// sendTimingEvent emits the per-call latency event against an
// already-loaded configuration.
func (c *Client) sendTimingEvent(ctx context.Context, cfg *Configuration, endpoint string, timing Timing) {
	c.emitEvent(ctx, cfg, EventAPIRequestLatency, time.Now(), AnalyticsEventParams{
		Start:    timing.Start,
		End:      timing.End,
		Endpoint: endpoint,
	})
}

// ============================================================================
// Endpoint Normalization
// ============================================================================

var (
	merchantPathPattern     = regexp.MustCompile(`/merchants/[A-Za-z0-9]+/client_api/?`)
	threeDSecurePathPattern = regexp.MustCompile(`payment_methods/.+/three_d_secure`)
)

// normalizeEndpoint strips merchant- and instance-identifying path segments
// so aggregated analytics can group by logical endpoint. Normalization is
// idempotent.
func normalizeEndpoint(path string) string {
	cleaned := merchantPathPattern.ReplaceAllString(path, "")
	cleaned = threeDSecurePathPattern.ReplaceAllString(cleaned, "payment_methods/three_d_secure")
	return cleaned
}

// graphQLEndpointLabel derives the analytics label for a GraphQL call from
// the request's query text: everything from the first open parenthesis
// onward, discarding the operation name before it. A payload with no query
// yields no label, and the call emits no timing event.
func graphQLEndpointLabel(payload []byte) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Query == "" {
		return "", false
	}

	if idx := strings.Index(req.Query, "("); idx >= 0 {
		return req.Query[idx:], true
	}
	return req.Query, true
}
