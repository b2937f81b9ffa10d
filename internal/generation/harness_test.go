package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
	"github.com/linguaforge/linguaforge/internal/store"
	"github.com/linguaforge/linguaforge/internal/validate"
)

var vocabTopics = assessment.DefaultVocabulary().Names()

type harness struct {
	store   *store.Store
	mock    *llm.MockProvider
	orch    *Orchestrator
	metrics *Metrics
}

type harnessOpt func(*Config, *llm.Provider)

func withConfig(fn func(*Config)) harnessOpt {
	return func(c *Config, _ *llm.Provider) { fn(c) }
}

// withTransportRetry puts the mock behind the standard retry decorator.
func withTransportRetry(attempts int) harnessOpt {
	return func(_ *Config, p *llm.Provider) {
		*p = llm.WithRetry(*p, llm.RetryConfig{MaxAttempts: attempts, Wait: time.Millisecond})
	}
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "generation.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	builder, err := prompt.NewBuilder(prompt.DefaultConfig())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	vocab := assessment.DefaultVocabulary()
	extractor := assessment.NewKeywordExtractor(vocab)

	mock := llm.NewMockProvider()
	var provider llm.Provider = mock
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg, &provider)
	}

	metrics := NewMetrics(prometheus.NewRegistry())
	orch, err := New(cfg, Deps{
		Provider:  provider,
		Builder:   builder,
		Validator: validate.New(prompt.DefaultConfig(), vocab),
		Analyzer:  assessment.NewAnalyzer(assessment.DefaultConfig(), extractor),
		Persister: persist.New(s, nil),
		Content:   s.Content(),
		Progress:  s.Progress(),
		Topics:    vocab.Names(),
		Extractor: extractor,
		Events:    s.EventRepo(),
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{store: s, mock: mock, orch: orch, metrics: metrics}
}

func (h *harness) course(t *testing.T) int64 {
	t.Helper()
	id, err := h.store.Content().CreateCourse(context.Background(), &content.Course{Title: "Spanish", Language: "Spanish"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	return id
}

func (h *harness) reply(doc any) {
	h.mock.AddResponse(llm.MockResponse{Content: mustJSON(doc)})
}

func (h *harness) units(t *testing.T, courseID int64) []content.Unit {
	t.Helper()
	units, err := h.store.Content().ListUnits(context.Background(), courseID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	return units
}

func (h *harness) runs(t *testing.T) []store.GenerationRunRecord {
	t.Helper()
	runs, err := h.store.EventRepo().QueryGenerationRuns(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("QueryGenerationRuns: %v", err)
	}
	return runs
}

// record stores an outcome for every challenge of the lesson; correct
// decides each one by position.
func (h *harness) record(t *testing.T, userID string, lessonID int64, correct func(i int) bool) {
	t.Helper()
	ctx := context.Background()
	challenges, err := h.store.Content().ListChallenges(ctx, lessonID)
	if err != nil {
		t.Fatalf("ListChallenges: %v", err)
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range challenges {
		err := h.store.Progress().RecordProgress(ctx, store.ProgressRecord{
			UserID:      userID,
			ChallengeID: c.ID,
			Completed:   correct(i),
			TimeSpent:   5 * time.Second,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordProgress: %v", err)
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func challengeDoc(i int, topic string) map[string]any {
	return map[string]any{
		"type":     "SELECT",
		"question": fmt.Sprintf("Which one is word %d?", i),
		"order":    i,
		"topic":    topic,
		"options": []any{
			map[string]any{"text": "uno", "correct": true},
			map[string]any{"text": "dos", "correct": false},
			map[string]any{"text": "tres", "correct": false},
		},
	}
}

func lessonDoc(title string, order int, topics ...string) map[string]any {
	var challenges []any
	for i := range 3 {
		challenges = append(challenges, challengeDoc(i+1, topics[i%len(topics)]))
	}
	return map[string]any{"title": title, "order": order, "challenges": challenges}
}

// assessmentDoc cycles the vocabulary across n challenges.
func assessmentDoc(n int) map[string]any {
	var challenges []any
	for i := range n {
		challenges = append(challenges, challengeDoc(i+1, vocabTopics[i%len(vocabTopics)]))
	}
	return map[string]any{"lessons": []any{
		map[string]any{"title": "Placement", "order": 1, "challenges": challenges},
	}}
}

// curriculumDoc builds one unit per topic, each practising that topic.
func curriculumDoc(topics ...string) map[string]any {
	var units []any
	for i, topic := range topics {
		units = append(units, map[string]any{
			"title":       "Unit " + topic,
			"description": "Practice " + topic,
			"order":       i + 1,
			"lessons":     []any{lessonDoc("Lesson "+topic, 1, topic)},
		})
	}
	return map[string]any{"units": units}
}

func adaptiveDoc(topics ...string) map[string]any {
	var lessons []any
	for i, topic := range topics {
		lessons = append(lessons, lessonDoc("Review "+topic, i+1, topic))
	}
	return map[string]any{"lessons": lessons}
}
