package provider

import (
	"context"
	"errors"
)

// Message is one chat turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params tunes a single call.
type Params struct {
	Temperature float32
	MaxTokens   int
}

// Telemetry captured for every call and written into the ledger.
type Telemetry struct {
	ProviderID   string
	ModelID      string
	LatencyMs    int64
	InputTokens  int
	OutputTokens int
	Confidence   float64
}

// Result is a successful completion.
type Result struct {
	Text      string
	Telemetry Telemetry
}

// Provider is one LLM backend. The set is closed: new providers are added as
// variants in the table, never loaded at runtime.
type Provider interface {
	Call(ctx context.Context, messages []Message, params Params) (Result, error)
	Name() string
}

// Error codes used to classify provider failures for fallback decisions.
const (
	ErrCodeTimeout      = "timeout"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeMalformed    = "malformed_response"
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeModelMissing = "model_not_found"
	ErrCodeRateLimit    = "rate_limit_exceeded"
)

// ProviderError is a classified failure from one backend.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure should trigger fallback to the next
// provider. Auth and missing-model failures are permanent for that provider.
func (e *ProviderError) Transient() bool {
	switch e.Code {
	case ErrCodeAPIKey, ErrCodeModelMissing:
		return false
	default:
		return true
	}
}

// ErrAllProvidersFailed is returned when the fallback chain is exhausted.
var ErrAllProvidersFailed = errors.New("all providers failed")

// ErrRateLimited is returned when the rate-limit collaborator still throttles
// after backoff.
var ErrRateLimited = errors.New("rate limited")
