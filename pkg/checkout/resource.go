package checkout

import "net/url"

// PaymentResource is the server-returned value for a created checkout. The
// one-time and billing-agreement endpoints wrap the redirect URL differently;
// both shapes resolve to the same thing here.
type PaymentResource struct {
	RedirectURL string
}

type paymentResourcePayload struct {
	PaymentResource struct {
		RedirectURL string `json:"redirectUrl"`
	} `json:"paymentResource"`
	AgreementSetup struct {
		ApprovalURL string `json:"approvalUrl"`
	} `json:"agreementSetup"`
}

// parsePaymentResource extracts the redirect URL from a checkout-creation
// response. A response with neither shape is a ProtocolError.
func parsePaymentResource(body []byte) (*PaymentResource, error) {
	var payload paymentResourcePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ProtocolError{Message: "failed to decode payment resource", Err: err}
	}

	redirect := payload.PaymentResource.RedirectURL
	if redirect == "" {
		redirect = payload.AgreementSetup.ApprovalURL
	}
	if redirect == "" {
		return nil, &ProtocolError{Message: "payment resource has no redirect url"}
	}
	return &PaymentResource{RedirectURL: redirect}, nil
}

// findPairingID extracts the pairing token from a redirect URL's query
// parameters. Billing-agreement redirects carry ba_token, one-time payment
// redirects carry token; the first present wins, in that order.
func findPairingID(redirect *url.URL) string {
	query := redirect.Query()
	if token := query.Get("ba_token"); token != "" {
		return token
	}
	return query.Get("token")
}
