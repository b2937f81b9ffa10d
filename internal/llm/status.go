package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// apiFailure maps the HTTP status of a failed provider call onto the error
// taxonomy. status 0 means no response arrived.
//
//	429                  → ErrRateLimit (retried, honouring retryAfter)
//	0, 408, 409, 5xx     → ErrProviderUnavailable (retried)
//	any other 4xx        → ErrRequestRejected (final)
func apiFailure(status int, retryAfter time.Duration, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: retryAfter, Err: err}
	case status == 0,
		status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status >= http.StatusInternalServerError:
		return &ErrProviderUnavailable{Err: err}
	default:
		return &ErrRequestRejected{StatusCode: status, Err: err}
	}
}

// retryAfter reads a Retry-After header given in seconds. Dates and missing
// headers yield zero.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// reply assembles a Response from a provider answer. A truncated answer is
// ErrMaxTokensExceeded and an empty one ErrInvalidResponse; both keep the
// text they got so the event log shows it.
func reply(text, stop, model string, usage Usage) (*Response, error) {
	body := json.RawMessage(text)
	if stop == StopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: body}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ErrInvalidResponse{Content: body, Err: fmt.Errorf("%s returned no content", model)}
	}
	return &Response{
		Content:    body,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through so full IDs work too.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
