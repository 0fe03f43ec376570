package paysdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Version is the SDK release version reported to the gateway.
const Version = "1.2.0"

// Response is a successful transport exchange: the raw body plus the timing
// window used for latency analytics.
type Response struct {
	Body   []byte
	Timing Timing
}

// Transport performs the actual HTTP exchanges against the gateway. The
// dispatch layer owns gating, decoding and analytics; the transport only
// moves bytes and reports timing. Implementations surface failures once,
// without retrying.
type Transport interface {
	Get(ctx context.Context, path string, cfg *Configuration, auth Authorization) (*Response, error)
	Post(ctx context.Context, path string, body []byte, cfg *Configuration, auth Authorization,
		headers map[string]string) (*Response, error)
	GraphQLPost(ctx context.Context, payload []byte, cfg *Configuration, auth Authorization) (*Response, error)
}

// graphQLVersion is the API version header required by the GraphQL endpoint.
const graphQLVersion = "2018-03-06"

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates the default transport with a 30 second timeout.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "tabpay-go/" + Version,
	}
}

// Get implements Transport.
func (t *HTTPTransport) Get(
	ctx context.Context,
	path string,
	cfg *Configuration,
	auth Authorization,
) (*Response, error) {
	return t.do(ctx, http.MethodGet, resolveURL(cfg.ClientAPIURL, path), nil, auth, nil)
}

// Post implements Transport.
func (t *HTTPTransport) Post(
	ctx context.Context,
	path string,
	body []byte,
	cfg *Configuration,
	auth Authorization,
	headers map[string]string,
) (*Response, error) {
	return t.do(ctx, http.MethodPost, resolveURL(cfg.ClientAPIURL, path), body, auth, headers)
}

// GraphQLPost implements Transport. There is a single GraphQL endpoint, so
// the URL comes from the configuration rather than the caller.
func (t *HTTPTransport) GraphQLPost(
	ctx context.Context,
	payload []byte,
	cfg *Configuration,
	auth Authorization,
) (*Response, error) {
	if cfg.GraphQLURL == "" {
		return nil, fmt.Errorf("configuration has no GraphQL endpoint")
	}
	headers := map[string]string{"TabPay-Version": graphQLVersion}
	return t.do(ctx, http.MethodPost, cfg.GraphQLURL, payload, auth, headers)
}

func (t *HTTPTransport) do(
	ctx context.Context,
	method, url string,
	body []byte,
	auth Authorization,
	headers map[string]string,
) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setAuthorizationHeaders(req, auth)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	end := time.Now()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseTransportError(resp.StatusCode, respBody)
	}

	return &Response{
		Body:   respBody,
		Timing: Timing{Start: start, End: end},
	}, nil
}

// setAuthorizationHeaders attaches the credential to a request. Tokenization
// keys travel in the Client-Key header; every other credential is a bearer.
func setAuthorizationHeaders(req *http.Request, auth Authorization) {
	switch auth.(type) {
	case *TokenizationKey:
		req.Header.Set("Client-Key", auth.Bearer())
	default:
		if auth.Bearer() != "" {
			req.Header.Set("Authorization", "Bearer "+auth.Bearer())
		}
	}
}

// resolveURL resolves a request path against the configuration's base URL.
// Absolute URLs pass through untouched.
func resolveURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
