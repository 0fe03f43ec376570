package paysdk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authorization is the caller's credential. Exactly one of the concrete
// types below backs any Authorization value; every gated operation branches
// on validity once at the top before doing any configuration or network work.
type Authorization interface {
	// Bearer is the credential value presented to the gateway on every call.
	Bearer() string

	// ConfigURL is the endpoint the remote configuration is fetched from.
	ConfigURL() string

	// String returns the raw credential as originally supplied.
	String() string
}

// tokenizationKeyPattern matches `<environment>_<fragment>_<merchant_id>`.
var tokenizationKeyPattern = regexp.MustCompile(`^([a-z]+)_[0-9a-z]+_([0-9a-z_]+)$`)

// gatewayHosts maps a tokenization key environment to its gateway base URL.
var gatewayHosts = map[string]string{
	"development": "http://localhost:3000",
	"sandbox":     "https://api.sandbox.tabpay.dev",
	"production":  "https://api.tabpay.dev",
}

// ParseAuthorization parses a raw credential string into one of the
// Authorization variants. It never fails: input that is neither a
// tokenization key nor a client token yields an InvalidAuthorization, and
// operations performed with it return ErrAuthorizationRequired.
func ParseAuthorization(raw string) Authorization {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &InvalidAuthorization{raw: raw, reason: "authorization string is empty"}
	}

	if m := tokenizationKeyPattern.FindStringSubmatch(raw); m != nil {
		host, ok := gatewayHosts[m[1]]
		if !ok {
			return &InvalidAuthorization{
				raw:    raw,
				reason: fmt.Sprintf("unknown tokenization key environment %q", m[1]),
			}
		}
		merchantID := m[2]
		return &TokenizationKey{
			raw:         raw,
			environment: m[1],
			merchantID:  merchantID,
			configURL:   fmt.Sprintf("%s/merchants/%s/client_api/v1/configuration", host, merchantID),
		}
	}

	if token, err := parseClientToken(raw); err == nil {
		return token
	}

	return &InvalidAuthorization{raw: raw, reason: "authorization string is not a tokenization key or client token"}
}

// ============================================================================
// TokenizationKey
// ============================================================================

// TokenizationKey is a static, merchant-scoped credential of the form
// `<environment>_<fragment>_<merchant_id>`. It is presented to the gateway
// via the Client-Key header rather than as a bearer token.
type TokenizationKey struct {
	raw         string
	environment string
	merchantID  string
	configURL   string
}

func (t *TokenizationKey) Bearer() string    { return t.raw }
func (t *TokenizationKey) ConfigURL() string { return t.configURL }
func (t *TokenizationKey) String() string    { return t.raw }

// Environment reports which gateway environment the key addresses.
func (t *TokenizationKey) Environment() string { return t.environment }

// MerchantID returns the merchant the key is scoped to.
func (t *TokenizationKey) MerchantID() string { return t.merchantID }

// ============================================================================
// ClientToken
// ============================================================================

// clientTokenClaims are the claims a merchant server embeds when minting a
// client token for the SDK.
type clientTokenClaims struct {
	jwt.RegisteredClaims

	// ConfigURL is the merchant-specific configuration endpoint
	ConfigURL string `json:"config_url"`

	// Fingerprint is the short-lived bearer credential for API calls
	Fingerprint string `json:"authorization_fingerprint"`
}

// ClientToken is a short-lived credential minted by the merchant's own
// server. The token is opaque to the SDK; the gateway verifies its signature,
// so the claims are read without verification here.
type ClientToken struct {
	raw    string
	claims clientTokenClaims
}

func parseClientToken(raw string) (*ClientToken, error) {
	var claims clientTokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, err
	}
	if claims.ConfigURL == "" {
		return nil, fmt.Errorf("client token is missing the config_url claim")
	}
	if claims.Fingerprint == "" {
		return nil, fmt.Errorf("client token is missing the authorization_fingerprint claim")
	}
	return &ClientToken{raw: raw, claims: claims}, nil
}

func (c *ClientToken) Bearer() string    { return c.claims.Fingerprint }
func (c *ClientToken) ConfigURL() string { return c.claims.ConfigURL }
func (c *ClientToken) String() string    { return c.raw }

// ============================================================================
// InvalidAuthorization
// ============================================================================

// InvalidAuthorization is a credential that failed to parse. It is permanent:
// a client holding one fails every gated operation with
// ErrAuthorizationRequired and performs no I/O.
type InvalidAuthorization struct {
	raw    string
	reason string
}

func (i *InvalidAuthorization) Bearer() string    { return "" }
func (i *InvalidAuthorization) ConfigURL() string { return "" }
func (i *InvalidAuthorization) String() string    { return i.raw }

// Reason reports why the credential failed to parse.
func (i *InvalidAuthorization) Reason() string { return i.reason }
