package checkout

import "fmt"

// ProtocolError reports that a checkout chain could not build a required
// request body or make sense of a gateway response. It is terminal for the
// chain that produced it.
type ProtocolError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ProtocolError) Unwrap() error { return e.Err }

// CorrelationError reports that the device-fingerprint collaborator failed to
// resolve a client metadata ID.
type CorrelationError struct {
	Err error
}

// Error implements the error interface.
func (e *CorrelationError) Error() string {
	return fmt.Sprintf("failed to resolve client metadata id: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *CorrelationError) Unwrap() error { return e.Err }
