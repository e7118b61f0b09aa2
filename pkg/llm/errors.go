package llm

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType categorizes provider errors for handling decisions.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypeEndpoint   ErrorType = "endpoint"
	ErrorTypeModel      ErrorType = "model"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a categorized provider error with retry guidance.
type Error struct {
	Type      ErrorType
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure is transient. Retry helpers
// check for this method before falling back to message inspection.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError builds a categorized provider error wrapping cause.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError maps a raw provider error to a categorized Error.
// Classification is by message inspection since the SDKs do not expose
// stable error types for every failure mode.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	msg := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{
			Type:      ErrorTypeConnection,
			Message:   "network error reaching provider",
			Retryable: true,
			Cause:     err,
		}
	}

	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "incorrect api key"):
		return &Error{
			Type:      ErrorTypeAuth,
			Message:   "authentication failed, check the API key",
			Retryable: false,
			Cause:     err,
		}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return &Error{
			Type:      ErrorTypeRateLimit,
			Message:   "provider rate limit exceeded",
			Retryable: true,
			Cause:     err,
		}
	case strings.Contains(msg, "404") && strings.Contains(msg, "model"):
		return &Error{
			Type:      ErrorTypeModel,
			Message:   "model not found, check the configured model name",
			Retryable: false,
			Cause:     err,
		}
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "timeout"):
		return &Error{
			Type:      ErrorTypeEndpoint,
			Message:   "provider endpoint unreachable",
			Retryable: true,
			Cause:     err,
		}
	default:
		return &Error{
			Type:      ErrorTypeUnknown,
			Message:   "provider request failed",
			Retryable: false,
			Cause:     err,
		}
	}
}
