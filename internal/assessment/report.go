package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/linguaforge/linguaforge/internal/content"
)

// ProgressSource is the read side of the progress tracker.
type ProgressSource interface {
	// LessonChallengeIDs maps every lesson of the course to its challenge ids.
	LessonChallengeIDs(ctx context.Context, courseID int64) (map[int64][]int64, error)

	// OutcomesForCourse returns the user's recorded outcomes across the course.
	OutcomesForCourse(ctx context.Context, userID string, courseID int64) ([]content.ChallengeOutcome, error)
}

// Report summarizes a learner's standing in one course.
type Report struct {
	SkillLevel       content.Level `json:"skillLevel"`
	Score            int           `json:"score"`
	CompletedLessons int           `json:"completedLessons"`
	TotalLessons     int           `json:"totalLessons"`
	Strengths        []string      `json:"strengths"`
	WeakAreas        []string      `json:"weakAreas"`
}

// Reporter builds progress reports from the progress tracker.
type Reporter struct {
	source   ProgressSource
	analyzer *Analyzer
}

func NewReporter(source ProgressSource, analyzer *Analyzer) *Reporter {
	return &Reporter{source: source, analyzer: analyzer}
}

// Progress reports lesson completion and a profile over every outcome in the
// course. A lesson counts as completed when all of its challenges are.
// Learners without outcomes are reported as beginners.
func (r *Reporter) Progress(ctx context.Context, userID string, courseID int64) (*Report, error) {
	lessons, err := r.source.LessonChallengeIDs(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course lessons: %w", err)
	}
	outcomes, err := r.source.OutcomesForCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	done := make(map[int64]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Correct {
			done[o.ChallengeID] = true
		}
	}

	report := &Report{
		SkillLevel:   content.LevelBeginner,
		TotalLessons: len(lessons),
		Strengths:    []string{},
		WeakAreas:    []string{},
	}
	for _, challenges := range lessons {
		if lessonComplete(challenges, done) {
			report.CompletedLessons++
		}
	}

	profile, err := r.analyzer.Analyze(outcomes)
	var insufficient *InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		return report, nil
	case err != nil:
		return nil, err
	}

	report.SkillLevel = profile.Level
	report.Score = profile.Score
	report.Strengths = profile.Strengths
	report.WeakAreas = profile.WeakAreas
	return report, nil
}

func lessonComplete(challenges []int64, done map[int64]bool) bool {
	if len(challenges) == 0 {
		return false
	}
	for _, id := range challenges {
		if !done[id] {
			return false
		}
	}
	return true
}
