package llm

import (
	"context"
	"fmt"
	"time"
)

// CheckResult reports whether the configured provider answered a probe.
type CheckResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	Provider       string    `json:"provider,omitempty"`
	Model          string    `json:"model"`
	ErrorType      ErrorType `json:"error_type,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms,omitempty"`
}

// DefaultCheckTimeout bounds the probe call.
const DefaultCheckTimeout = 30 * time.Second

// CheckConnection sends a one-word prompt to client and classifies any
// failure so the caller can tell a bad key from a bad endpoint or model.
func CheckConnection(ctx context.Context, client LLMClient, timeout time.Duration) *CheckResult {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &CheckResult{Model: client.GetModel()}

	start := time.Now()
	resp, err := client.GenerateResponse(ctx, "Reply with the single word: ok", "You are a connectivity probe.", 0)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		classified := ClassifyError(err)
		result.ErrorType = classified.Type
		result.Message = checkMessage(classified)
		return result
	}
	if resp == nil || resp.Content == "" {
		result.ErrorType = ErrorTypeOther
		result.Message = "LLM returned an empty reply"
		return result
	}

	result.Success = true
	result.ResponseTimeMs = elapsed
	result.Message = fmt.Sprintf("LLM connection successful (model: %s, %dms)", result.Model, elapsed)
	return result
}

func checkMessage(err *Error) string {
	switch err.Type {
	case ErrorTypeAuth:
		return "LLM: Invalid API key"
	case ErrorTypeModel:
		return "LLM: Model or endpoint not found - check model and base URL"
	case ErrorTypeRateLimited:
		return "LLM: Rate limited - try again later"
	case ErrorTypeTransient:
		return "LLM: Connection failed - check base URL"
	case ErrorTypeMalformed:
		return "LLM: Request rejected by provider"
	}
	return "LLM: " + err.Message
}
