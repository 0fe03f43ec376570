package checkout

import "context"

const tokenizeEndpoint = "/v1/payment_methods/paypal_accounts"

// Account is an already-approved provider account payload, assembled from the
// browser-switch result, ready to exchange for a payment method nonce.
type Account struct {
	// PaymentToken and PayerID come from a one-time payment approval
	PaymentToken string
	PayerID      string

	// BillingToken comes from a billing-agreement approval
	BillingToken string

	// CorrelationID is the client metadata ID resolved during initiation
	CorrelationID string

	// Intent echoes the capture intent of the original request
	Intent Intent
}

// AccountNonce is the typed tokenization result: a one-time-use reference to
// the vaulted provider account.
type AccountNonce struct {
	Nonce string
	Type  string
	Email string
}

type accountNoncePayload struct {
	Accounts []struct {
		Nonce   string `json:"nonce"`
		Type    string `json:"type"`
		Details struct {
			Email string `json:"email"`
		} `json:"details"`
	} `json:"paypalAccounts"`
}

// Tokenize exchanges an approved provider account for a payment method
// nonce via the gated dispatcher. Decode failures propagate to the caller.
func (i *Initiator) Tokenize(ctx context.Context, account Account) (*AccountNonce, error) {
	body, err := account.tokenizePayload()
	if err != nil {
		return nil, err
	}

	respBody, err := i.client.Post(ctx, tokenizeEndpoint, body, nil)
	if err != nil {
		return nil, err
	}

	var payload accountNoncePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, &ProtocolError{Message: "failed to decode tokenization response", Err: err}
	}
	if len(payload.Accounts) == 0 || payload.Accounts[0].Nonce == "" {
		return nil, &ProtocolError{Message: "tokenization response has no account nonce"}
	}

	first := payload.Accounts[0]
	return &AccountNonce{
		Nonce: first.Nonce,
		Type:  first.Type,
		Email: first.Details.Email,
	}, nil
}

// tokenizePayload builds the tokenization request body from the approval
// result.
func (a Account) tokenizePayload() ([]byte, error) {
	details := map[string]any{}
	if a.PaymentToken != "" {
		details["payment_token"] = a.PaymentToken
		details["payer_id"] = a.PayerID
	}
	if a.BillingToken != "" {
		details["billing_token"] = a.BillingToken
	}
	if len(details) == 0 {
		return nil, &ProtocolError{Message: "account has no approval tokens to tokenize"}
	}

	account := map[string]any{
		"response":      details,
		"response_type": "web",
	}
	if a.CorrelationID != "" {
		account["correlation_id"] = a.CorrelationID
	}
	if a.Intent != "" {
		account["intent"] = string(a.Intent)
	}

	encoded, err := json.Marshal(map[string]any{
		"paypal_account": account,
	})
	if err != nil {
		return nil, &ProtocolError{Message: "failed to encode tokenization request", Err: err}
	}
	return encoded, nil
}
