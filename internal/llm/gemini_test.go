package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-flash", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func geminiAnswer(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 90, "candidatesTokenCount": 60, "totalTokenCount": 150},
		"modelVersion":  "gemini-2.0-flash-001",
	}
}

func TestGeminiProvider_Curriculum(t *testing.T) {
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		body := requireContract(t, r)
		if !strings.Contains(body, `"responseSchema"`) || !strings.Contains(body, "application/json") {
			t.Errorf("response schema not requested: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiAnswer(curriculumReply, "STOP"))
	})

	resp, err := p.Generate(context.Background(), curriculumRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != curriculumReply {
		t.Fatalf("content = %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 150 || resp.Model != "gemini-2.0-flash-001" || resp.StopReason != StopEnd {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGeminiProvider_Failures(t *testing.T) {
	for _, tc := range failureCases() {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			body := fmt.Sprintf(`{"error":{"code":%d,"message":"nope","status":"FAILED"}}`, tc.status)
			p := newTestGeminiProvider(t, failWith(tc, body, &hits))

			_, err := p.Generate(context.Background(), curriculumRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.retryAfter != "" {
				// genai does not expose response headers.
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

func TestGeminiProvider_UnusableReplies(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		finish    string
		truncated bool
	}{
		{"truncated", `{"units":[{"title":"Gree`, "MAX_TOKENS", true},
		{"safety", "", "SAFETY", false},
		{"empty", "", "STOP", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(geminiAnswer(tt.text, tt.finish))
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
		})
	}
}

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	schema := buildGeminiSchema(curriculumSchema().Definition)

	units := schema.Properties["units"]
	if schema.Type != "OBJECT" || units == nil || units.Type != "ARRAY" {
		t.Fatalf("root = %+v", schema)
	}
	if units.MinItems == nil || *units.MinItems != 2 || units.MaxItems == nil || *units.MaxItems != 2 {
		t.Fatalf("unit bounds = %v..%v", units.MinItems, units.MaxItems)
	}

	challenge := units.Items.Properties["lessons"].Items.Properties["challenges"].Items
	if got := challenge.Properties["type"].Enum; len(got) != 2 || got[0] != "SELECT" {
		t.Fatalf("challenge type enum = %v", got)
	}
	if q := challenge.Properties["question"]; q.MinLength == nil || *q.MinLength != 1 {
		t.Fatalf("question minLength = %v", q.MinLength)
	}
	if opt := challenge.Properties["options"].Items; opt.Properties["correct"].Type != "BOOLEAN" || len(opt.Required) != 2 {
		t.Fatalf("option = %+v", opt)
	}

	decoded := map[string]any{"type": "array", "minItems": float64(3)}
	if got := buildGeminiSchema(decoded).MinItems; got == nil || *got != 3 {
		t.Fatalf("float bound from decoded JSON = %v", got)
	}
}
