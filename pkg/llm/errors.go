package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies provider failures.
type ErrorType string

const (
	// ErrorTypeTransient is a temporary upstream failure (5xx, timeouts,
	// dropped connections). Retried.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeRateLimited is a 429 or provider rate-limit error. Retried
	// with extra delay.
	ErrorTypeRateLimited ErrorType = "rate_limited"
	// ErrorTypeMalformed is a rejected request (400/422). Fatal.
	ErrorTypeMalformed ErrorType = "malformed"
	// ErrorTypeAuth is a credential problem. Fatal.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeModel is an unknown model or endpoint. Fatal.
	ErrorTypeModel ErrorType = "model"
	// ErrorTypeOther is anything else. Fatal.
	ErrorTypeOther ErrorType = "other"
)

// Error is a classified provider error.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
	Endpoint   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// IsRateLimited implements retry.RateLimitedError.
func (e *Error) IsRateLimited() bool {
	return e.Type == ErrorTypeRateLimited
}

// NewError creates a classified error. Retryability follows the type.
func NewError(errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeRateLimited,
		Cause:     cause,
	}
}

// ClassifyError maps a provider error onto the taxonomy. Typed SDK errors are
// classified by HTTP status or provider error type; anything else falls back
// to message matching.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeOther, "request cancelled", err)
	}

	if classified := classifyAnthropic(err); classified != nil {
		return classified
	}

	if status := statusCodeOf(err); status > 0 {
		classified := classifyStatus(status, err)
		classified.StatusCode = status
		return classified
	}

	return classifyMessage(err)
}

func classifyAnthropic(err error) *Error {
	var apiErr *anthropic.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	switch string(apiErr.Type) {
	case "rate_limit_error":
		return NewError(ErrorTypeRateLimited, "rate limited", err)
	case "overloaded_error", "api_error":
		return NewError(ErrorTypeTransient, "provider unavailable", err)
	case "invalid_request_error", "request_too_large":
		return NewError(ErrorTypeMalformed, "request rejected", err)
	case "authentication_error", "permission_error":
		return NewError(ErrorTypeAuth, "authentication failed", err)
	case "not_found_error":
		return NewError(ErrorTypeModel, "model or endpoint not found", err)
	}
	return nil
}

func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	var anthReqErr *anthropic.RequestError
	if errors.As(err, &anthReqErr) && anthReqErr.StatusCode > 0 {
		return anthReqErr.StatusCode
	}
	return 0
}

func classifyStatus(status int, err error) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(ErrorTypeRateLimited, "rate limited", err)
	case status >= 500:
		return NewError(ErrorTypeTransient, "server error", err)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusRequestEntityTooLarge:
		return NewError(ErrorTypeMalformed, "request rejected", err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewError(ErrorTypeAuth, "authentication failed", err)
	case status == http.StatusNotFound:
		return NewError(ErrorTypeModel, "model or endpoint not found", err)
	}
	return NewError(ErrorTypeOther, "llm error", err)
}

func classifyMessage(err error) *Error {
	errStr := err.Error()
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests"):
		return NewError(ErrorTypeRateLimited, "rate limited", err)

	case strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		return NewError(ErrorTypeAuth, "authentication failed", err)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return NewError(ErrorTypeModel, "model not found", err)

	case strings.Contains(errStr, "400") || strings.Contains(lower, "bad request") ||
		strings.Contains(lower, "invalid request"):
		return NewError(ErrorTypeMalformed, "request rejected", err)

	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(lower, "service unavailable") || strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "unexpected eof"):
		return NewError(ErrorTypeTransient, "provider unavailable", err)
	}

	return NewError(ErrorTypeOther, "llm error", err)
}

// GetErrorType extracts the ErrorType from an error, classifying it if needed.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	return ClassifyError(err).Type
}
