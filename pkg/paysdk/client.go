package paysdk

import (
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IntegrationType describes how the host application integrates the SDK. It
// is attached to every analytics event so aggregated metrics can be grouped
// by integration style.
type IntegrationType string

const (
	IntegrationCustom IntegrationType = "custom"
	IntegrationDropIn IntegrationType = "dropin"
)

// deepLinkSchemeSuffix is appended to the host application's return scheme
// when the SDK handles deep links on the application's behalf.
const deepLinkSchemeSuffix = ".deeplinkhandler"

// Client is the configuration-gated request dispatcher. Every outbound call
// is gated behind a valid credential and a freshly loaded remote
// configuration, and every successful call feeds the analytics side channel.
//
// A Client is safe for concurrent use. The credential and return-URL scheme
// are immutable; the only mutable state is the browser-switch flag, which is
// read once at call time.
type Client struct {
	authorization   Authorization
	integrationType IntegrationType
	sessionID       string

	transport Transport
	loader    ConfigurationLoader
	analytics AnalyticsTransport
	log       *slog.Logger

	returnURLScheme         string
	deepLinkReturnURLScheme string

	mu                             sync.RWMutex
	launchesBrowserSwitchAsNewTask bool
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithConfigurationLoader replaces the default cached configuration loader.
func WithConfigurationLoader(l ConfigurationLoader) Option {
	return func(c *Client) { c.loader = l }
}

// WithAnalyticsTransport replaces the default analytics sink.
func WithAnalyticsTransport(a AnalyticsTransport) Option {
	return func(c *Client) { c.analytics = a }
}

// WithLogger sets the logger used for best-effort diagnostics. Dispatch
// results are returned to callers, never logged-and-suppressed; the logger
// only sees the analytics side channel.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithIntegrationType overrides the integration type reported on analytics
// events. Defaults to IntegrationCustom.
func WithIntegrationType(t IntegrationType) Option {
	return func(c *Client) { c.integrationType = t }
}

// WithReturnURLScheme declares the URI scheme the host application handles
// for browser-switch returns.
func WithReturnURLScheme(scheme string) Option {
	return func(c *Client) {
		c.returnURLScheme = scheme
		c.deepLinkReturnURLScheme = scheme + deepLinkSchemeSuffix
	}
}

// NewClient creates a Client from a raw credential string. A credential that
// fails to parse still yields a usable Client; every gated operation on it
// returns ErrAuthorizationRequired without performing I/O.
func NewClient(authorization string, opts ...Option) *Client {
	c := &Client{
		authorization:   ParseAuthorization(authorization),
		integrationType: IntegrationCustom,
		sessionID:       ulid.Make().String(),
		transport:       NewHTTPTransport(),
		loader:          NewCachedLoader(),
		analytics:       noopAnalytics{},
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authorization returns the parsed credential the Client was built with.
func (c *Client) Authorization() Authorization { return c.authorization }

// SessionID is the per-client analytics session identifier.
func (c *Client) SessionID() string { return c.sessionID }

// IntegrationType reports the integration style attached to analytics events.
func (c *Client) IntegrationType() IntegrationType { return c.integrationType }

// ReturnURLScheme returns the scheme browser-switch return URLs are built
// from. When the SDK launches the browser switch as a new task it handles the
// deep link itself, under a scheme derived from the application's.
func (c *Client) ReturnURLScheme() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.launchesBrowserSwitchAsNewTask {
		return c.deepLinkReturnURLScheme
	}
	return c.returnURLScheme
}

// LaunchesBrowserSwitchAsNewTask reports whether browser switches are
// launched in a task separate from the host application.
func (c *Client) LaunchesBrowserSwitchAsNewTask() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.launchesBrowserSwitchAsNewTask
}

// SetLaunchesBrowserSwitchAsNewTask allows the SDK to handle deep links on
// behalf of the host application for browser switched flows. Set once at
// setup time; in-flight call chains read it at most once.
func (c *Client) SetLaunchesBrowserSwitchAsNewTask(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launchesBrowserSwitchAsNewTask = v
}

// invalidAuth returns the fixed authorization error when the credential is
// invalid, nil otherwise.
func (c *Client) invalidAuth() error {
	if _, ok := c.authorization.(*InvalidAuthorization); ok {
		return ErrAuthorizationRequired
	}
	return nil
}
