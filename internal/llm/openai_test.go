package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIProvider_Curriculum(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body := requireContract(t, r)
		if !strings.Contains(body, `"json_schema"`) || !strings.Contains(body, `"curriculum-2"`) {
			t.Errorf("response format not requested: %s", body)
		}
		if !strings.Contains(body, `"role":"system"`) {
			t.Errorf("system prompt missing: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(curriculumReply, "stop"))
	})

	resp, err := p.Generate(context.Background(), curriculumRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != curriculumReply {
		t.Fatalf("content = %s", resp.Content)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != StopEnd || resp.Model != "gpt-4o-mini-2024-07-18" {
		t.Fatalf("stop = %q, model = %q", resp.StopReason, resp.Model)
	}
}

func TestOpenAIProvider_Failures(t *testing.T) {
	bodies := map[string]string{
		"decoded": `{"error":{"type":"invalid_request_error","message":"nope"}}`,
		"opaque":  `<html>upstream said no</html>`,
	}
	for kind, body := range bodies {
		for _, tc := range failureCases() {
			t.Run(kind+"/"+tc.name, func(t *testing.T) {
				var hits atomic.Int32
				p := newTestOpenAIProvider(t, failWith(tc, body, &hits))

				_, err := p.Generate(context.Background(), curriculumRequest())
				if err == nil {
					t.Fatal("expected error")
				}
				if tc.retryAfter != "" {
					// go-openai does not expose response headers.
					var rl *ErrRateLimit
					if !errors.As(err, &rl) {
						t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
					}
					return
				}
				tc.check(t, err)
			})
		}
	}
}

func TestOpenAIProvider_UnusableReplies(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		finish    string
		truncated bool
	}{
		{"truncated", `{"units":[{"title":"Gree`, "length", true},
		{"filtered", "", "content_filter", false},
		{"empty", "", "stop", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(chatCompletion(tt.content, tt.finish))
			})
			_, err := p.Generate(context.Background(), curriculumRequest())

			var trunc *ErrMaxTokensExceeded
			var invalid *ErrInvalidResponse
			switch {
			case tt.truncated && !errors.As(err, &trunc):
				t.Fatalf("expected ErrMaxTokensExceeded, got %v", err)
			case !tt.truncated && !errors.As(err, &invalid):
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
			if IsTransient(err) {
				t.Fatalf("output errors must not be transient: %v", err)
			}
		})
	}
}

func TestOpenAIProvider_BaseURLOverride(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o", BaseURL: "http://localhost:1234/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gpt-4o" {
		t.Fatalf("expected 'gpt-4o', got %q", p.ModelID())
	}
	if _, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
