// Package checkout implements the multi-step checkout-initiation protocol on
// top of the paysdk dispatcher: building the provider-specific request body,
// issuing it, parsing the redirect response, correlating the opaque pairing
// and client-metadata identifiers, and handing back a descriptor the host
// application can continue with an out-of-process browser handoff.
package checkout

import (
	"context"
	"net/url"

	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

const (
	successURLPath = "onetouch/v1/success"
	cancelURLPath  = "onetouch/v1/cancel"
)

// gateway is the slice of the paysdk Client the initiator consumes.
type gateway interface {
	GetConfiguration(ctx context.Context) (*paysdk.Configuration, error)
	Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)
	Authorization() paysdk.Authorization
	ReturnURLScheme() string
}

// BrowserSwitchOptions are populated by the UI layer that performs the actual
// browser handoff; the initiator always leaves them nil.
type BrowserSwitchOptions struct {
	URL             string
	ReturnURLScheme string
	NewTask         bool
}

// AuthRequest is the completed authorization-request descriptor produced by
// one initiation attempt. Exactly one AuthRequest or error is returned per
// attempt.
type AuthRequest struct {
	// Request is the original caller-supplied request
	Request Request

	// BrowserSwitchOptions is a placeholder for the UI layer, always nil here
	BrowserSwitchOptions *BrowserSwitchOptions

	// ApprovalURL is where the buyer approves the payment
	ApprovalURL string

	// ClientMetadataID correlates risk signals with this attempt
	ClientMetadataID string

	// PairingID correlates the in-app flow with the remote payment session,
	// empty when the redirect carried no token
	PairingID string

	// SuccessURL is the callback URL the approval flow returns to
	SuccessURL string
}

// InitiatorOption configures an Initiator.
type InitiatorOption func(*Initiator)

// WithDeviceFingerprint replaces the default device-fingerprint collaborator.
func WithDeviceFingerprint(fp DeviceFingerprint) InitiatorOption {
	return func(i *Initiator) { i.fingerprint = fp }
}

// Initiator drives the checkout-initiation protocol. The success and cancel
// callback URLs are synthesized per attempt from the client's return-URI
// scheme at that moment, so a client switched to deep-link handling after
// construction is still honored.
type Initiator struct {
	client      gateway
	fingerprint DeviceFingerprint
}

// NewInitiator creates an Initiator over a paysdk Client.
func NewInitiator(client *paysdk.Client, opts ...InitiatorOption) *Initiator {
	i := &Initiator{
		client:      client,
		fingerprint: &deviceFingerprint{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// callbackURLs resolves the success and cancel callback URLs from the
// client's current return-URI scheme.
func (i *Initiator) callbackURLs() (successURL, cancelURL string) {
	scheme := i.client.ReturnURLScheme()
	return scheme + "://" + successURLPath, scheme + "://" + cancelURLPath
}

// InitiateCheckout runs one checkout-initiation attempt: load configuration,
// build the request body, post it, parse the redirect, resolve the
// correlation identifiers, and assemble the descriptor. The chain is
// one-shot; every failure is terminal and nothing is retried. Exactly one of
// the returned descriptor and error is non-nil.
func (i *Initiator) InitiateCheckout(ctx context.Context, req Request) (*AuthRequest, error) {
	cfg, err := i.client.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	successURL, cancelURL := i.callbackURLs()
	body, err := req.requestBody(cfg, i.client.Authorization(), successURL, cancelURL)
	if err != nil {
		return nil, err
	}

	respBody, err := i.client.Post(ctx, req.Endpoint(), body, nil)
	if err != nil {
		return nil, err
	}

	resource, err := parsePaymentResource(respBody)
	if err != nil {
		return nil, err
	}
	redirect, err := url.Parse(resource.RedirectURL)
	if err != nil {
		return nil, &ProtocolError{Message: "payment resource redirect url is unparseable", Err: err}
	}

	pairingID := findPairingID(redirect)
	clientMetadataID, err := i.resolveClientMetadataID(ctx, req, cfg, pairingID)
	if err != nil {
		return nil, err
	}

	return &AuthRequest{
		Request:              req,
		BrowserSwitchOptions: nil,
		ApprovalURL:          redirect.String(),
		ClientMetadataID:     clientMetadataID,
		PairingID:            pairingID,
		SuccessURL:           successURL,
	}, nil
}

// resolveClientMetadataID prefers a caller-supplied risk correlation ID
// verbatim; only without one is the device-fingerprint collaborator invoked.
func (i *Initiator) resolveClientMetadataID(
	ctx context.Context,
	req Request,
	cfg *paysdk.Configuration,
	pairingID string,
) (string, error) {
	if req.RiskCorrelationID != "" {
		return req.RiskCorrelationID, nil
	}

	guid, err := i.fingerprint.InstallationID(ctx)
	if err != nil {
		return "", &CorrelationError{Err: err}
	}

	id, err := i.fingerprint.ClientMetadataID(ctx, FingerprintRequest{
		HasUserLocationConsent: req.UserLocationConsent,
		ApplicationGUID:        guid,
		PairingID:              pairingID,
	}, cfg)
	if err != nil {
		return "", &CorrelationError{Err: err}
	}
	return id, nil
}
