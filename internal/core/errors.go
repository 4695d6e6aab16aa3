// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps base with a formatted cause.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Data errors: the symbol is skipped, the batch continues.
	ErrSymbolNotFound      = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData              = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrMalformedData       = &Error{Code: "MALFORMED_DATA", Message: "malformed price data"}
	ErrInsufficientHistory = &Error{Code: "INSUFFICIENT_HISTORY", Message: "insufficient history for analysis"}
	ErrFetchFailed         = &Error{Code: "FETCH_FAILED", Message: "market data fetch failed"}

	// Computation errors never leave the indicator boundary.
	ErrComputation = &Error{Code: "COMPUTATION", Message: "degenerate input"}

	// Analysis errors
	ErrAnalyzerFailed = &Error{Code: "ANALYZER_FAILED", Message: "context analyzer failed"}
	ErrPredictFailed  = &Error{Code: "PREDICT_FAILED", Message: "prediction failed"}
	ErrInvalidInput   = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrNotActionable  = &Error{Code: "NOT_ACTIONABLE", Message: "decision is not actionable"}

	// Scheduler errors
	ErrInFlight        = &Error{Code: "IN_FLIGHT", Message: "analysis already running for symbol"}
	ErrInvalidInterval = &Error{Code: "INVALID_INTERVAL", Message: "refresh interval below minimum"}

	// Delivery errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}
	ErrSinkFailed     = &Error{Code: "SINK_FAILED", Message: "result sink failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// API errors
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)

// IsDataError reports whether err belongs to the data error family.
func IsDataError(err error) bool {
	return errors.Is(err, ErrNoData) ||
		errors.Is(err, ErrMalformedData) ||
		errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrSymbolNotFound)
}

// IsConfigError reports whether err belongs to the configuration error family.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrConfigMissing) ||
		errors.Is(err, ErrInvalidInterval)
}
