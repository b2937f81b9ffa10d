package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
)

// AssessmentRequest asks for the diagnostic assessment of a course.
type AssessmentRequest struct {
	CourseID int64
	// Language defaults to the course language.
	Language string
	// Refresh replaces an existing diagnostic lesson.
	Refresh bool
}

// AssessmentResult names the Assessment unit and its diagnostic lesson.
type AssessmentResult struct {
	UnitID   int64 `json:"unitId"`
	LessonID int64 `json:"lessonId"`
	Reused   bool  `json:"reused"`
}

// CreateAssessment returns the course's diagnostic assessment, generating it
// on first use. Concurrent calls for one course share a single run.
func (o *Orchestrator) CreateAssessment(ctx context.Context, req AssessmentRequest) (*AssessmentResult, error) {
	key := fmt.Sprintf("assessment:%d:%t", req.CourseID, req.Refresh)
	v, err := o.flight.do(ctx, key, func(ctx context.Context) (any, error) {
		return o.createAssessment(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*AssessmentResult)
	return &res, nil
}

func (o *Orchestrator) createAssessment(ctx context.Context, req AssessmentRequest) (res *AssessmentResult, err error) {
	course, err := o.course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	ctx, r := o.startRun(ctx, content.IntentAssessment, "", course.ID, 0)
	var persisted *persist.Result
	defer func() { r.finish(persisted, err) }()

	target := persist.Target{CourseID: course.ID, Refresh: req.Refresh}

	if !req.Refresh {
		unit, err := o.content.FindAssessmentUnit(ctx, course.ID)
		if err != nil {
			return nil, r.failed(err)
		}
		if unit != nil && unit.DiagnosticLessonID != 0 {
			if err := r.enter(StatePersisting); err != nil {
				return nil, err
			}
			persisted = &persist.Result{UnitIDs: []int64{unit.ID}, LessonIDs: []int64{unit.DiagnosticLessonID}, Reused: true}
			return resultFromPersist(persisted), nil
		}
	}

	p, err := o.builder.Build(content.IntentAssessment, prompt.Params{
		CourseTitle: course.Title,
		Language:    languageOr(req.Language, course),
		Topics:      o.topics,
	})
	if err != nil {
		return nil, err
	}

	frag, err := o.produce(ctx, r, p)
	if err != nil {
		return nil, err
	}
	persisted, err = o.persist(ctx, r, target, frag)
	if err != nil {
		return nil, err
	}
	return resultFromPersist(persisted), nil
}

func resultFromPersist(p *persist.Result) *AssessmentResult {
	return &AssessmentResult{
		UnitID:   p.UnitIDs[0],
		LessonID: p.LessonIDs[0],
		Reused:   p.Reused,
	}
}

// AnalyzeAssessment scores a learner's answers to the diagnostic lesson.
// A zero lessonID selects the course's current diagnostic lesson.
func (o *Orchestrator) AnalyzeAssessment(ctx context.Context, userID string, courseID, lessonID int64) (*content.SkillProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &prompt.ConfigurationError{Field: "userId", Reason: "required"}
	}
	if _, err := o.course(ctx, courseID); err != nil {
		return nil, err
	}

	if lessonID == 0 {
		unit, err := o.content.FindAssessmentUnit(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("find assessment unit: %w", err)
		}
		if unit == nil || unit.DiagnosticLessonID == 0 {
			return nil, &prompt.ConfigurationError{Field: "lessonId", Reason: "course has no assessment"}
		}
		lessonID = unit.DiagnosticLessonID
	} else if err := o.checkLessonInCourse(ctx, lessonID, courseID); err != nil {
		return nil, err
	}

	outcomes, err := o.progress.OutcomesForLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	profile, err := o.analyzer.Analyze(outcomes)
	if err != nil {
		return nil, err
	}
	o.log.Info("assessment analyzed",
		"user_id", userID,
		"course_id", courseID,
		"lesson_id", lessonID,
		"level", profile.Level,
		"score", profile.Score,
	)
	return profile, nil
}

func (o *Orchestrator) checkLessonInCourse(ctx context.Context, lessonID, courseID int64) error {
	lesson, err := o.content.GetLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}
	unit, err := o.content.GetUnit(ctx, lesson.UnitID)
	if err != nil {
		return fmt.Errorf("load unit: %w", err)
	}
	if unit.CourseID != courseID {
		return &prompt.ConfigurationError{
			Field:  "lessonId",
			Reason: fmt.Sprintf("lesson %d does not belong to course %d", lessonID, courseID),
		}
	}
	return nil
}
