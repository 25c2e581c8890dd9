package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// chatProvider speaks the OpenAI chat-completion protocol. DeepSeek exposes
// the same wire format, so both variants share this client and differ only in
// endpoint, key and model.
type chatProvider struct {
	name     string
	endpoint string
	key      string
	model    string
	timeout  time.Duration
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Call(ctx context.Context, messages []Message, params Params) (Result, error) {
	if p.key == "" {
		return Result{}, &ProviderError{Provider: p.name, Code: ErrCodeAPIKey, Message: "missing api key"}
	}
	timeout := p.timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := openai.NewClient(
		option.WithAPIKey(p.key),
		option.WithBaseURL(p.endpoint),
		option.WithMaxRetries(0),
	)

	temperature := params.Temperature
	if temperature <= 0 {
		temperature = 0.2
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	req := chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	start := time.Now()
	var out chatResponse
	err := client.Post(ctx, "/chat/completions", req, &out)
	elapsed := time.Since(start)

	if err != nil {
		return Result{}, p.classify(err)
	}
	if out.Error != nil {
		code := ErrCodeServiceDown
		switch {
		case strings.Contains(out.Error.Code, "model"):
			code = ErrCodeModelMissing
		case out.Error.Type == "invalid_request_error" && strings.Contains(out.Error.Message, "key"):
			code = ErrCodeAPIKey
		}
		return Result{}, &ProviderError{Provider: p.name, Code: code, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return Result{}, &ProviderError{Provider: p.name, Code: ErrCodeMalformed, Message: "no choices returned"}
	}

	choice := out.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return Result{}, &ProviderError{Provider: p.name, Code: ErrCodeMalformed, Message: "empty completion"}
	}

	return Result{
		Text: text,
		Telemetry: Telemetry{
			ProviderID:   p.name,
			ModelID:      p.model,
			LatencyMs:    elapsed.Milliseconds(),
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			Confidence:   confidence(choice.FinishReason, text),
		},
	}, nil
}

func (p *chatProvider) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: p.name, Code: ErrCodeTimeout, Message: "request timed out", Err: err}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &ProviderError{Provider: p.name, Code: ErrCodeAPIKey, Message: "authentication failed", Err: err}
		case http.StatusNotFound:
			return &ProviderError{Provider: p.name, Code: ErrCodeModelMissing, Message: "model not found", Err: err}
		case http.StatusTooManyRequests:
			return &ProviderError{Provider: p.name, Code: ErrCodeRateLimit, Message: "provider throttled", Err: err}
		}
	}
	return &ProviderError{Provider: p.name, Code: ErrCodeServiceDown, Message: "call failed", Err: err}
}

// confidence is a deterministic heuristic: a clean stop with a substantive
// answer scores high, truncation or very short answers score lower.
func confidence(finishReason, text string) float64 {
	score := 0.6
	if finishReason == "stop" {
		score = 0.9
	}
	runes := len([]rune(text))
	if runes < 40 {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	return score
}
