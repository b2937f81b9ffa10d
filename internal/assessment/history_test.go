package assessment

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/linguaforge/linguaforge/internal/content"
)

func at(minutes int, topic string, correct bool, question string) content.ChallengeOutcome {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return content.ChallengeOutcome{
		Topic:       topic,
		Correct:     correct,
		Question:    question,
		CompletedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestSummarize_RecentOutcomesDominate(t *testing.T) {
	// Passed input out of order to check that outcomes are sorted by time.
	history := []content.ChallengeOutcome{
		at(3, "food", true, "q4"),
		at(0, "food", false, "q1"),
		at(1, "food", false, "q2"),
		at(2, "verbs", false, "q3"),
	}
	s := Summarize(history, 0.5, nil)

	if s.Attempts != 4 {
		t.Fatalf("attempts = %d, want 4", s.Attempts)
	}
	// Newest first: food✓ w=1, verbs✗ w=.5, food✗ w=.25, food✗ w=.125.
	wantFood := 1 / (1 + 0.25 + 0.125)
	if len(s.Topics) != 2 {
		t.Fatalf("topics = %+v", s.Topics)
	}
	if s.Topics[0].Topic != "verbs" || s.Topics[0].WeightedAccuracy != 0 {
		t.Errorf("weakest = %+v, want verbs at 0", s.Topics[0])
	}
	if math.Abs(s.Topics[1].WeightedAccuracy-wantFood) > 1e-9 {
		t.Errorf("food accuracy = %v, want %v", s.Topics[1].WeightedAccuracy, wantFood)
	}
	if !slices.Equal(s.Topics[1].RecentMisses, []string{"q2", "q1"}) {
		t.Errorf("food misses = %v, want newest first", s.Topics[1].RecentMisses)
	}
	wantOverall := 1 / (1 + 0.5 + 0.25 + 0.125)
	if math.Abs(s.WeightedAccuracy-wantOverall) > 1e-9 {
		t.Errorf("overall = %v, want %v", s.WeightedAccuracy, wantOverall)
	}
	if !slices.Equal(s.WeakestTopics(1), []string{"verbs"}) {
		t.Errorf("WeakestTopics(1) = %v", s.WeakestTopics(1))
	}
}

func TestRecent_KeepsNewestRegardlessOfInputOrder(t *testing.T) {
	history := []content.ChallengeOutcome{
		at(9, "food", true, "newest"),
		at(0, "food", false, "oldest"),
		at(5, "verbs", false, "middle"),
		at(7, "colors", true, "recent"),
	}
	got := Recent(history, 2)
	if len(got) != 2 || got[0].Question != "recent" || got[1].Question != "newest" {
		t.Fatalf("Recent(2) = %+v", got)
	}
	if history[0].Question != "newest" {
		t.Fatal("input slice reordered")
	}
	if all := Recent(history, 10); len(all) != 4 || all[0].Question != "oldest" {
		t.Fatalf("Recent(10) = %+v", all)
	}
}

func TestSummarize_InvalidDecayIsUnweighted(t *testing.T) {
	history := []content.ChallengeOutcome{
		at(0, "food", true, ""),
		at(1, "food", false, ""),
	}
	for _, decay := range []float64{0, -1, 2} {
		s := Summarize(history, decay, nil)
		if s.WeightedAccuracy != 0.5 {
			t.Errorf("decay %v: accuracy = %v, want 0.5", decay, s.WeightedAccuracy)
		}
	}
}

func TestSummarize_UsesExtractorForUntagged(t *testing.T) {
	history := []content.ChallengeOutcome{
		at(0, "", false, "Translate 'red'"),
		at(1, "", true, "no topic here"),
	}
	s := Summarize(history, DefaultDecay, NewKeywordExtractor(DefaultVocabulary()))
	if len(s.Topics) != 1 || s.Topics[0].Topic != "colors" {
		t.Fatalf("topics = %+v, want colors only", s.Topics)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, DefaultDecay, nil)
	if s.Attempts != 0 || s.WeightedAccuracy != 0 || len(s.Topics) != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
