package checkout

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Intent selects how a one-time payment is captured.
type Intent string

const (
	IntentAuthorize Intent = "authorize"
	IntentOrder     Intent = "order"
	IntentSale      Intent = "sale"
)

const (
	createPaymentResourceEndpoint = "/v1/paypal_hermes/create_payment_resource"
	setupBillingAgreementEndpoint = "/v1/paypal_hermes/setup_billing_agreement"
)

// Request describes the desired payment flow. A request is immutable once
// passed to the Initiator. The Vault flag selects the flow variant: vault
// requests set up a billing agreement for later charges, everything else
// creates a one-time payment resource.
type Request struct {
	// Vault selects the billing-agreement variant instead of a one-time payment
	Vault bool

	// Amount is the one-time payment amount, required unless Vault is set
	Amount string

	// CurrencyCode overrides the merchant's default currency
	CurrencyCode string

	// Intent selects authorize/order/sale capture behavior (one-time only)
	Intent Intent

	// OfferCredit offers the buyer provider credit during approval
	OfferCredit bool

	// BillingAgreementDescription is shown during vault approval
	BillingAgreementDescription string

	// RiskCorrelationID, when supplied by the caller, is used verbatim as the
	// client metadata ID and the device-fingerprint collaborator is skipped
	RiskCorrelationID string

	// UserLocationConsent records whether the user consented to location use
	// for risk scoring
	UserLocationConsent bool

	// DisplayName overrides the merchant display name during approval
	DisplayName string

	// LocaleCode localizes the approval page when set
	LocaleCode string

	// ShippingRequired asks the approval page to collect a shipping address
	ShippingRequired bool

	// AddressOverride marks the shipping address as caller-provided
	AddressOverride bool
}

// Endpoint resolves the checkout-creation endpoint for this request variant.
func (r Request) Endpoint() string {
	if r.Vault {
		return setupBillingAgreementEndpoint
	}
	return createPaymentResourceEndpoint
}

// requestBody builds the provider-specific JSON body for the checkout
// request. It fails without making a network call when a required field is
// unavailable.
func (r Request) requestBody(
	cfg *paysdk.Configuration,
	auth paysdk.Authorization,
	successURL, cancelURL string,
) ([]byte, error) {
	body := map[string]any{
		"return_url":          successURL,
		"cancel_url":          cancelURL,
		"offer_paypal_credit": r.OfferCredit,
	}

	// Client tokens authenticate the body with their fingerprint, static
	// tokenization keys with the key itself.
	switch auth.(type) {
	case *paysdk.ClientToken:
		body["authorization_fingerprint"] = auth.Bearer()
	default:
		body["client_key"] = auth.Bearer()
	}

	if r.Vault {
		if r.BillingAgreementDescription != "" {
			body["description"] = r.BillingAgreementDescription
		}
	} else {
		if r.Amount == "" {
			return nil, &ProtocolError{Message: "checkout request requires an amount"}
		}
		body["amount"] = r.Amount

		currency := r.CurrencyCode
		if currency == "" {
			currency = cfg.PayPal.CurrencyISOCode
		}
		if currency != "" {
			body["currency_iso_code"] = currency
		}

		if r.Intent != "" {
			body["intent"] = string(r.Intent)
		}
	}

	profile := map[string]any{
		"no_shipping":      !r.ShippingRequired,
		"address_override": r.AddressOverride,
	}
	if name := r.displayName(cfg); name != "" {
		profile["brand_name"] = name
	}
	if r.LocaleCode != "" {
		profile["locale_code"] = r.LocaleCode
	}
	body["experience_profile"] = profile

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &ProtocolError{Message: "failed to encode checkout request body", Err: err}
	}
	return encoded, nil
}

func (r Request) displayName(cfg *paysdk.Configuration) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return cfg.PayPal.DisplayName
}
