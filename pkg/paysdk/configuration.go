package paysdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Timing records the wall-clock window of a single network exchange. It feeds
// the latency analytics pipeline.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Configuration is the remote gateway configuration required to address and
// authenticate every API call. It is immutable once loaded.
type Configuration struct {
	// Environment is the gateway environment name ("sandbox", "production")
	Environment string `json:"environment"`

	// ClientAPIURL is the base URL REST calls are resolved against
	ClientAPIURL string `json:"clientApiUrl"`

	// MerchantID identifies the merchant account
	MerchantID string `json:"merchantId"`

	// AnalyticsURL is where batched analytics events are shipped, empty when
	// analytics is disabled for the merchant
	AnalyticsURL string `json:"analyticsUrl"`

	// GraphQLURL is the single GraphQL endpoint, empty when unavailable
	GraphQLURL string `json:"graphQLUrl"`

	// PayPalEnabled reports whether the checkout provider is enabled
	PayPalEnabled bool `json:"paypalEnabled"`

	// PayPal carries provider-specific display settings
	PayPal struct {
		DisplayName     string `json:"displayName"`
		CurrencyISOCode string `json:"currencyIsoCode"`
		Environment     string `json:"environment"`
	} `json:"paypal"`
}

// ParseConfiguration decodes a configuration payload from the gateway.
func ParseConfiguration(body []byte) (*Configuration, error) {
	var cfg Configuration
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.ClientAPIURL == "" {
		return nil, fmt.Errorf("configuration is missing clientApiUrl")
	}
	return &cfg, nil
}

// ConfigurationLoader fetches the remote configuration for an authorization.
// Timing is non-nil only when a network fetch actually happened; cache hits
// return a nil Timing so the configuration fetch is measured exactly once.
type ConfigurationLoader interface {
	Load(ctx context.Context, auth Authorization) (*Configuration, *Timing, error)
}

// ============================================================================
// CachedLoader
// ============================================================================

const (
	configurationVersion  = "3"
	defaultConfigCacheTTL = 5 * time.Minute
)

// cacheEntry is one memoized configuration keyed by credential.
type cacheEntry struct {
	cfg     *Configuration
	fetched time.Time
}

// inflightFetch coalesces concurrent loads for the same credential. Waiters
// receive the fetched configuration but a nil Timing, so only the initiating
// call emits the configuration timing event.
type inflightFetch struct {
	done chan struct{}
	cfg  *Configuration
	err  error
}

// CachedLoader is the default ConfigurationLoader. It fetches the
// configuration over HTTP, memoizes it per credential for a fixed TTL, and
// coalesces concurrent fetches for the same credential into one request.
type CachedLoader struct {
	httpClient *http.Client
	ttl        time.Duration

	mu       sync.Mutex
	cache    map[string]cacheEntry
	inflight map[string]*inflightFetch
}

// NewCachedLoader creates a CachedLoader with a five minute cache TTL.
func NewCachedLoader() *CachedLoader {
	return &CachedLoader{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        defaultConfigCacheTTL,
		cache:      make(map[string]cacheEntry),
		inflight:   make(map[string]*inflightFetch),
	}
}

// Load implements ConfigurationLoader.
func (l *CachedLoader) Load(ctx context.Context, auth Authorization) (*Configuration, *Timing, error) {
	key := auth.ConfigURL() + "|" + auth.Bearer()

	l.mu.Lock()
	if entry, ok := l.cache[key]; ok && time.Since(entry.fetched) < l.ttl {
		l.mu.Unlock()
		return entry.cfg, nil, nil
	}
	if fetch, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		select {
		case <-fetch.done:
			return fetch.cfg, nil, fetch.err
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	fetch := &inflightFetch{done: make(chan struct{})}
	l.inflight[key] = fetch
	l.mu.Unlock()

	cfg, timing, err := l.fetch(ctx, auth)

	l.mu.Lock()
	delete(l.inflight, key)
	if err == nil {
		l.cache[key] = cacheEntry{cfg: cfg, fetched: time.Now()}
	}
	l.mu.Unlock()

	fetch.cfg, fetch.err = cfg, err
	close(fetch.done)

	return cfg, timing, err
}

func (l *CachedLoader) fetch(ctx context.Context, auth Authorization) (*Configuration, *Timing, error) {
	url := auth.ConfigURL() + "?configVersion=" + configurationVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create configuration request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	setAuthorizationHeaders(req, auth)

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch configuration: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	end := time.Now()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read configuration response: %w", err)
	}

	timing := &Timing{Start: start, End: end}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, timing, parseTransportError(resp.StatusCode, body)
	}

	cfg, err := ParseConfiguration(body)
	if err != nil {
		return nil, timing, err
	}
	return cfg, timing, nil
}
