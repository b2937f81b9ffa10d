package llm

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linguaforge/linguaforge/internal/store"
)

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "llm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"units":[]}`), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"units":[{"ti`)}},
	)
	p := WithLogging(mock, "mock", s.EventRepo(), nil)

	ctx := WithCall(context.Background(), CallInfo{Purpose: "assessment", RunID: "run-7"})
	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "make a test"}},
		Schema:   &Schema{Name: "assessment-15", Definition: map[string]any{"type": "object"}},
	}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected second call to fail")
	}

	events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	failed, ok := events[0], events[1]
	if failed.Success || failed.ErrorMessage == "" {
		t.Errorf("failed event = %+v", failed)
	}
	if failed.ResponseBody != `{"units":[{"ti` {
		t.Errorf("truncated reply not kept: %q", failed.ResponseBody)
	}
	if !ok.Success || ok.InputTokens != 12 || ok.Purpose != "assessment" || ok.Provider != "mock" || ok.RunID != "run-7" {
		t.Errorf("ok event = %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[schema: assessment-15]") || !strings.Contains(ok.RequestBody, "make a test") {
		t.Errorf("request body = %q", ok.RequestBody)
	}
	if ok.ResponseBody != `{"units":[]}` {
		t.Errorf("response body = %q", ok.ResponseBody)
	}

	byRun, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{RunID: "run-7"})
	if err != nil || len(byRun) != 2 {
		t.Fatalf("run filter = %d events, %v", len(byRun), err)
	}
	other, _ := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{RunID: "run-8"})
	if len(other) != 0 {
		t.Errorf("run filter leaked %d events", len(other))
	}
}

func TestLoggingProvider_NilRepo(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, "mock", nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLookupCost(t *testing.T) {
	if c := LookupCost("claude-haiku"); c == nil || c.InputPerMTok != 1 {
		t.Fatalf("friendly name lookup = %+v", c)
	}
	if c := LookupCost("gpt-4o-mini"); c == nil {
		t.Fatal("expected gpt-4o-mini pricing")
	}
	if c := LookupCost("no-such-model"); c != nil {
		t.Fatalf("expected nil, got %+v", c)
	}
	cost := ModelCost{InputPerMTok: 1, OutputPerMTok: 5}.Cost(1_000_000, 200_000)
	if cost != 2 {
		t.Fatalf("cost = %v, want 2", cost)
	}
}
