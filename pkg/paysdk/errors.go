package paysdk

import (
	"fmt"
	"net/http"
)

// ============================================================================
// AuthorizationError
// ============================================================================

// AuthorizationError is returned when an operation is attempted with an
// invalid authorization. No network or configuration work happens in that
// case; the call fails before any I/O.
type AuthorizationError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	return e.Message
}

const clientSDKSetupURL = "https://docs.tabpay.dev/guides/client-sdk/setup#initialization"

// ErrAuthorizationRequired is the fixed error every gated operation returns
// when the client was constructed with an invalid credential.
var ErrAuthorizationRequired = &AuthorizationError{
	Message: "valid authorization required, see " + clientSDKSetupURL + " for more info",
}

// ============================================================================
// ConfigurationError
// ============================================================================

// ConfigurationError wraps a failure to load the remote configuration. A call
// that cannot obtain configuration never proceeds to the transport.
type ConfigurationError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration fetch failed: %v", e.Err)
}

// Unwrap returns the underlying loader error.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ============================================================================
// TransportError
// ============================================================================

// TransportError represents a non-2xx response from the gateway. It carries
// the HTTP status and, when the gateway returned a structured error payload,
// the parsed error message.
type TransportError struct {
	// Status is the HTTP status code of the gateway response
	Status int

	// Message is the gateway's error message, or the standard status text
	// when the body could not be parsed
	Message string

	// Body is the raw response body, useful for debugging
	Body []byte
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// ============================================================================
// DecodeError
// ============================================================================

// DecodeError is returned when a transport-level success carried a body that
// is not valid JSON. It is surfaced to the caller distinctly from transport
// failures and suppresses the call's analytics timing event.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response body: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *DecodeError) Unwrap() error { return e.Err }

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// gatewayErrorResponse is the error payload shape the gateway returns on
// non-2xx responses.
type gatewayErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseTransportError builds a TransportError from a non-2xx gateway
// response, preferring the gateway's own error message when present.
func parseTransportError(status int, body []byte) *TransportError {
	message := http.StatusText(status)

	var errResp gatewayErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil &&
		errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &TransportError{
		Status:  status,
		Message: message,
		Body:    body,
	}
}
