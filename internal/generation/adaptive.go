package generation

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
)

// AdaptiveRequest asks for supplementary lessons in one unit.
type AdaptiveRequest struct {
	UserID string
	UnitID int64
	// Language defaults to the course language.
	Language string
	// History overrides the outcomes recorded for the unit.
	History []content.ChallengeOutcome
}

// AdaptiveResult lists the lessons created.
type AdaptiveResult struct {
	LessonsCreated []int64 `json:"lessonsCreated"`
}

// GenerateAdaptiveLessons appends lessons to a unit, aimed at the learner's
// weakest recent topics.
func (o *Orchestrator) GenerateAdaptiveLessons(ctx context.Context, req AdaptiveRequest) (*AdaptiveResult, error) {
	if req.UnitID <= 0 {
		return nil, &prompt.ConfigurationError{Field: "unitId", Reason: "required"}
	}
	unit, err := o.content.GetUnit(ctx, req.UnitID)
	if err != nil {
		return nil, fmt.Errorf("load unit: %w", err)
	}
	course, err := o.course(ctx, unit.CourseID)
	if err != nil {
		return nil, err
	}

	history := req.History
	if len(history) == 0 && req.UserID != "" {
		history, err = o.progress.OutcomesForUnit(ctx, req.UserID, unit.ID)
		if err != nil {
			return nil, fmt.Errorf("load outcomes: %w", err)
		}
	}
	history = assessment.Recent(history, o.cfg.HistoryWindow)
	summary := assessment.Summarize(history, o.cfg.HistoryDecay, o.extractor)

	return o.generateAdaptive(ctx, course, unit, req, &summary)
}

func (o *Orchestrator) generateAdaptive(ctx context.Context, course *content.Course, unit *content.Unit, req AdaptiveRequest, summary *assessment.PerformanceSummary) (res *AdaptiveResult, err error) {
	ctx, r := o.startRun(ctx, content.IntentAdaptive, req.UserID, course.ID, unit.ID)
	var persisted *persist.Result
	defer func() { r.finish(persisted, err) }()

	lessons, err := o.content.ListLessons(ctx, unit.ID)
	if err != nil {
		return nil, r.failed(fmt.Errorf("list lessons: %w", err))
	}

	p, err := o.builder.Build(content.IntentAdaptive, prompt.Params{
		CourseTitle: course.Title,
		Language:    languageOr(req.Language, course),
		Topics:      o.topics,
		History:     summary,
		UnitTitle:   unit.Title,
		ExistingTitles: lo.Map(lessons, func(l content.Lesson, _ int) string {
			return l.Title
		}),
	})
	if err != nil {
		return nil, err
	}

	frag, err := o.produce(ctx, r, p)
	if err != nil {
		return nil, err
	}
	persisted, err = o.persist(ctx, r, persist.Target{CourseID: course.ID, UnitID: unit.ID}, frag)
	if err != nil {
		return nil, err
	}
	return &AdaptiveResult{LessonsCreated: persisted.LessonIDs}, nil
}
