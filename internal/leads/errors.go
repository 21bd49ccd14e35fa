package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrStoreNotConfigured is returned when the store endpoint or its
	// credential is missing. It is fatal for the request.
	ErrStoreNotConfigured = errors.New("leads: store not configured")
)

// ValidationError names the first field that failed validation. Message is
// safe to show to the submitter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreError describes a failed write or read against the lead store.
type StoreError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *StoreError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("leads: %s failed: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("leads: %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("leads: %s failed", e.Op)
	}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AsValidationError returns the validation failure carried by err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
