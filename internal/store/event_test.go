package store

import (
	"context"
	"testing"
	"time"

	"github.com/linguaforge/linguaforge/internal/content"
)

func TestLLMEvents_QueryAndUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.EventRepo()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude", Purpose: "assessment", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "anthropic", Model: "claude", Purpose: "curriculum", InputTokens: 300, OutputTokens: 150, LatencyMs: 400, Success: true},
		{Provider: "openai", Model: "gpt", Purpose: "assessment", InputTokens: 10, OutputTokens: 0, LatencyMs: 100, ErrorMessage: "rate limited"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Provider != "openai" || all[0].Success {
		t.Errorf("expected newest first, got %+v", all[0])
	}
	if all[0].Sequence <= all[1].Sequence {
		t.Errorf("sequence not descending: %d, %d", all[0].Sequence, all[1].Sequence)
	}

	limited, _ := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit: got %d events", len(limited))
	}

	assess, _ := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "assessment"})
	if len(assess) != 2 {
		t.Errorf("purpose filter: got %d events", len(assess))
	}

	after, _ := repo.QueryLLMEvents(ctx, QueryOpts{After: all[1].Sequence})
	if len(after) != 1 || after[0].ID != all[0].ID {
		t.Errorf("after filter: got %+v", after)
	}

	got, err := repo.GetLLMEvent(ctx, all[1].ID)
	if err != nil || got == nil || got.Purpose != "curriculum" {
		t.Fatalf("GetLLMEvent = %+v, %v", got, err)
	}
	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("GetLLMEvent(missing) = %+v, %v", missing, err)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("expected 2 purposes, got %+v", byPurpose)
	}
	if byPurpose[0].Purpose != "assessment" || byPurpose[0].Calls != 2 || byPurpose[0].InputTokens != 110 || byPurpose[0].AvgLatencyMs != 150 {
		t.Errorf("assessment usage = %+v", byPurpose[0])
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "claude" || byModel[0].OutputTokens != 200 {
		t.Errorf("model usage = %+v", byModel)
	}
}

func TestGenerationRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.EventRepo()

	runs := []GenerationRunData{
		{RunID: "r1", Intent: "ASSESSMENT", UserID: "u1", CourseID: 7, FinalState: "DONE", ModelCalls: 1, UnitsCreated: 1, LessonsCreated: 1, Duration: 1500 * time.Millisecond},
		{RunID: "r2", Intent: "CURRICULUM", UserID: "u1", CourseID: 7, FinalState: "FAILED", ModelCalls: 2, ErrorMessage: "schema violation"},
	}
	for _, r := range runs {
		if err := repo.AppendGenerationRun(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryGenerationRuns(ctx, QueryOpts{Intent: "ASSESSMENT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if got[0].RunID != "r1" || got[0].Duration != 1500*time.Millisecond || got[0].LessonsCreated != 1 {
		t.Errorf("run = %+v", got[0])
	}

	all, _ := repo.QueryGenerationRuns(ctx, QueryOpts{})
	if len(all) != 2 || all[0].FinalState != "FAILED" {
		t.Errorf("runs = %+v", all)
	}
}

// seedLesson creates a course with one unit holding one lesson of n challenges.
func seedLesson(t *testing.T, s *Store, n int) (courseID, unitID, lessonID int64, challengeIDs []int64) {
	t.Helper()
	ctx := context.Background()
	repo := s.Content()
	courseID = seedCourse(t, s)

	var err error
	unitID, err = repo.InsertUnit(ctx, &content.Unit{CourseID: courseID, Title: "Basics", Order: 1})
	if err != nil {
		t.Fatalf("insert unit: %v", err)
	}
	lessonID, err = repo.InsertLesson(ctx, &content.Lesson{UnitID: unitID, Title: "Colors", Order: 1})
	if err != nil {
		t.Fatalf("insert lesson: %v", err)
	}
	for i := 1; i <= n; i++ {
		id, err := repo.InsertChallenge(ctx, &content.Challenge{
			LessonID: lessonID, Type: content.ChallengeSelect, Question: "What color is the sky?", Order: i, Topic: "colors",
		})
		if err != nil {
			t.Fatalf("insert challenge: %v", err)
		}
		challengeIDs = append(challengeIDs, id)
	}
	return courseID, unitID, lessonID, challengeIDs
}

func TestProgress_RecordAndOutcomes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	courseID, unitID, lessonID, ids := seedLesson(t, s, 3)
	repo := s.Progress()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		err := repo.RecordProgress(ctx, ProgressRecord{
			UserID: "alice", ChallengeID: id, Completed: i != 1,
			TimeSpent: 2 * time.Second, CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// Another learner never leaks into alice's outcomes.
	if err := repo.RecordProgress(ctx, ProgressRecord{UserID: "bob", ChallengeID: ids[0], Completed: true}); err != nil {
		t.Fatalf("record bob: %v", err)
	}

	for name, load := range map[string]func() ([]content.ChallengeOutcome, error){
		"lesson": func() ([]content.ChallengeOutcome, error) { return repo.OutcomesForLesson(ctx, "alice", lessonID) },
		"unit":   func() ([]content.ChallengeOutcome, error) { return repo.OutcomesForUnit(ctx, "alice", unitID) },
		"course": func() ([]content.ChallengeOutcome, error) { return repo.OutcomesForCourse(ctx, "alice", courseID) },
	} {
		outcomes, err := load()
		if err != nil {
			t.Fatalf("%s outcomes: %v", name, err)
		}
		if len(outcomes) != 3 {
			t.Fatalf("%s: expected 3 outcomes, got %d", name, len(outcomes))
		}
		o := outcomes[1]
		if o.ChallengeID != ids[1] || o.Correct || o.Topic != "colors" || o.TimeSpent != 2*time.Second {
			t.Errorf("%s: outcome[1] = %+v", name, o)
		}
		if !outcomes[2].CompletedAt.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("%s: completed_at = %v", name, outcomes[2].CompletedAt)
		}
	}

	// A retry overwrites the earlier attempt.
	if err := repo.RecordProgress(ctx, ProgressRecord{UserID: "alice", ChallengeID: ids[1], Completed: true, CompletedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	outcomes, _ := repo.OutcomesForLesson(ctx, "alice", lessonID)
	if len(outcomes) != 3 {
		t.Fatalf("upsert duplicated row: %d outcomes", len(outcomes))
	}
	last := outcomes[len(outcomes)-1]
	if last.ChallengeID != ids[1] || !last.Correct {
		t.Errorf("upserted outcome = %+v", last)
	}
}

func TestProgress_LessonChallengeIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	courseID, unitID, lessonID, ids := seedLesson(t, s, 2)

	empty, err := s.Content().InsertLesson(ctx, &content.Lesson{UnitID: unitID, Title: "Empty", Order: 2})
	if err != nil {
		t.Fatalf("insert lesson: %v", err)
	}

	got, err := s.Progress().LessonChallengeIDs(ctx, courseID)
	if err != nil {
		t.Fatalf("LessonChallengeIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lessons, got %v", got)
	}
	if len(got[lessonID]) != 2 || got[lessonID][0] != ids[0] {
		t.Errorf("lesson challenges = %v", got[lessonID])
	}
	if ch, ok := got[empty]; !ok || len(ch) != 0 {
		t.Errorf("empty lesson = %v, %v", ch, ok)
	}
}
