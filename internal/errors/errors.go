package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code classifies every failure mode the sweep pipeline can surface.
type Code string

const (
	// CodePlanNotFound the plan id resolves to nothing in the plan store.
	// Fatal to the whole execution attempt.
	CodePlanNotFound Code = "PLAN_NOT_FOUND"
	// CodePlanExpired the plan outlived its quote validity window.
	// Fatal to the whole execution attempt.
	CodePlanExpired Code = "PLAN_EXPIRED"
	// CodePlanNoOp the plan carries no executable legs and no value on the
	// destination chain. Fatal, there is nothing to execute.
	CodePlanNoOp Code = "PLAN_NO_OP"
	// CodeQuoteUnavailable no quote could be resolved for a leg, neither
	// from cache nor from the copy embedded in the plan.
	CodeQuoteUnavailable Code = "QUOTE_UNAVAILABLE"
	// CodeQuoteExpired a transaction was requested from a quote past its
	// expiry.
	CodeQuoteExpired Code = "QUOTE_EXPIRED"
	// CodeLegSubmissionFailed submitting one leg's bridge transaction
	// failed; sibling legs continue.
	CodeLegSubmissionFailed Code = "LEG_SUBMISSION_FAILED"
	// CodeLegTrackingTimeout the status check budget for a leg was
	// exhausted and the leg was force-terminalized.
	CodeLegTrackingTimeout Code = "LEG_TRACKING_TIMEOUT"
	// CodeProviderTransient a network or provider failure while observing
	// status, as opposed to a definitive bridge failure. Retryable.
	CodeProviderTransient Code = "PROVIDER_TRANSIENT_ERROR"
)

// Error carries a code alongside the message so callers can branch on
// failure class without string matching.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying error with a code
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from an error chain, "" when uncoded
func CodeOf(err error) Code {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the failure class may resolve on its own.
// Only provider-transient observation failures qualify; everything else is
// either fatal or handled at the leg level.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeProviderTransient
}

// IsFatal reports whether the failure aborts the whole execution attempt
// rather than a single leg
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodePlanNotFound, CodePlanExpired, CodePlanNoOp:
		return true
	default:
		return false
	}
}
