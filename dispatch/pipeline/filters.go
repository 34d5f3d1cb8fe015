package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// Filter inspects a signal during admission. Returning a non-nil error
// rejects the signal; a *RejectionError carries an explicit reason, any other
// error is a technical failure treated identically to a rejection.
//
// Filters may have their own side effects (e.g. metrics) but must not mutate
// the signal.
type Filter interface {
	Apply(ctx context.Context, sig signals.Signal) error
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(ctx context.Context, sig signals.Signal) error

// Apply implements the Filter interface.
func (f FilterFunc) Apply(ctx context.Context, sig signals.Signal) error {
	return f(ctx, sig)
}

// RejectionError is the explicit rejection of a signal by a filter.
type RejectionError struct {
	Reason string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return e.Reason
}

// Reject builds a filter rejection with the given reason.
func Reject(reason string) error {
	return &RejectionError{Reason: reason}
}

const (
	reasonEmptySignalID   = "signal id is empty"
	reasonInvalidKind     = "signal kind is invalid"
	reasonEmptySignalType = "signal type is empty"
	reasonEmptyTenantID   = "tenant id is empty"
	reasonInvalidPayload  = "payload json is not valid"
)

// validateSignal is the validation filter: structural correctness of the
// envelope and payload. It runs after the registered filters and before the
// dead-signal filter.
func validateSignal(sig signals.Signal) error {
	if sig.ID == "" {
		return Reject(reasonEmptySignalID)
	}

	if sig.Kind != signals.KindCommand && sig.Kind != signals.KindEvent && sig.Kind != signals.KindRejection {
		return Reject(reasonInvalidKind)
	}

	if sig.Type == "" {
		return Reject(reasonEmptySignalType)
	}

	if sig.TenantID == "" {
		return Reject(reasonEmptyTenantID)
	}

	if !json.Valid(sig.PayloadJSON) {
		return Reject(reasonInvalidPayload)
	}

	return nil
}

// reasonOf extracts the reported reason from a filter error. Technical
// errors surface their message so the poster learns why admission failed.
func reasonOf(err error) string {
	rejection := new(RejectionError)
	if errors.As(err, &rejection) {
		return rejection.Reason
	}

	return err.Error()
}
