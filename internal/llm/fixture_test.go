package llm

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// curriculumSchema mirrors the shape of the curriculum output contract:
// units holding lessons holding challenges.
func curriculumSchema() *Schema {
	challenge := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":     map[string]any{"type": "string", "enum": []any{"SELECT", "ASSIST"}},
			"question": map[string]any{"type": "string", "minLength": 1},
			"options": map[string]any{
				"type":     "array",
				"minItems": 2,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":    map[string]any{"type": "string"},
						"correct": map[string]any{"type": "boolean"},
					},
					"required": []any{"text", "correct"},
				},
			},
		},
		"required": []any{"type", "question", "options"},
	}
	lesson := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":      map[string]any{"type": "string"},
			"challenges": map[string]any{"type": "array", "minItems": 1, "items": challenge},
		},
		"required": []any{"title", "challenges"},
	}
	unit := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"lessons":     map[string]any{"type": "array", "minItems": 1, "items": lesson},
		},
		"required": []any{"title", "description", "lessons"},
	}
	return &Schema{
		Name:        "curriculum-2",
		Description: "A two-unit Spanish course",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"units": map[string]any{"type": "array", "minItems": 2, "maxItems": 2, "items": unit},
			},
			"required": []any{"units"},
		},
	}
}

func curriculumRequest() Request {
	return Request{
		System:    "You design Spanish courses for English speakers.",
		Messages:  []Message{{Role: RoleUser, Content: "Create exactly 2 units for a beginner."}},
		Schema:    curriculumSchema(),
		MaxTokens: 4096,
	}
}

const curriculumReply = `{"units":[` +
	`{"title":"Greetings","description":"Say hello","lessons":[{"title":"Hola","challenges":[{"type":"SELECT","question":"Hello?","options":[{"text":"Hola","correct":true},{"text":"Adiós","correct":false}]}]}]},` +
	`{"title":"Numbers","description":"Count to ten","lessons":[{"title":"Uno","challenges":[{"type":"SELECT","question":"One?","options":[{"text":"Uno","correct":true},{"text":"Dos","correct":false}]}]}]}` +
	`]}`

// failureCase is one failed HTTP answer and the error class it must map to.
type failureCase struct {
	name       string
	status     int
	retryAfter string
	check      func(t *testing.T, err error)
}

func failureCases() []failureCase {
	rateLimited := func(wait time.Duration) func(*testing.T, error) {
		return func(t *testing.T, err error) {
			var rl *ErrRateLimit
			if !errors.As(err, &rl) {
				t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
			}
			if rl.RetryAfter != wait {
				t.Fatalf("RetryAfter = %s, want %s", rl.RetryAfter, wait)
			}
		}
	}
	unavailable := func(t *testing.T, err error) {
		var u *ErrProviderUnavailable
		if !errors.As(err, &u) {
			t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
		}
		if !IsTransient(err) {
			t.Fatal("outage must be transient")
		}
	}
	rejected := func(status int) func(*testing.T, error) {
		return func(t *testing.T, err error) {
			var rj *ErrRequestRejected
			if !errors.As(err, &rj) {
				t.Fatalf("expected ErrRequestRejected, got %T (%v)", err, err)
			}
			if rj.StatusCode != status {
				t.Fatalf("StatusCode = %d, want %d", rj.StatusCode, status)
			}
			if IsTransient(err) {
				t.Fatal("rejected request must not be transient")
			}
		}
	}
	return []failureCase{
		{"rate limited", http.StatusTooManyRequests, "", rateLimited(0)},
		{"rate limited with hint", http.StatusTooManyRequests, "2", rateLimited(2 * time.Second)},
		{"server error", http.StatusInternalServerError, "", unavailable},
		{"overloaded", 529, "", unavailable},
		{"bad gateway", http.StatusBadGateway, "", unavailable},
		{"bad key", http.StatusUnauthorized, "", rejected(http.StatusUnauthorized)},
		{"forbidden", http.StatusForbidden, "", rejected(http.StatusForbidden)},
		{"bad request", http.StatusBadRequest, "", rejected(http.StatusBadRequest)},
		{"unknown model", http.StatusNotFound, "", rejected(http.StatusNotFound)},
	}
}

// failWith answers every request with tc's status and body, counting hits.
func failWith(tc failureCase, body string, hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if tc.retryAfter != "" {
			w.Header().Set("Retry-After", tc.retryAfter)
		}
		w.WriteHeader(tc.status)
		io.WriteString(w, body)
	}
}

// requireContract fails unless the request body carries the curriculum
// contract.
func requireContract(t *testing.T, r *http.Request) string {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read body: %v", err)
		return ""
	}
	body := string(raw)
	for _, want := range []string{`"units"`, `"challenges"`, "Create exactly 2 units"} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s: %s", want, body)
		}
	}
	return body
}
