package generation

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
)

// CurriculumRequest asks for units tailored to a skill profile.
type CurriculumRequest struct {
	UserID   string
	CourseID int64
	// Language defaults to the course language.
	Language string
	Profile  *content.SkillProfile
	// UnitCount defaults to Config.DefaultUnitCount.
	UnitCount int
	// LessonsPerUnit caps lessons per unit; zero uses the configured limit.
	LessonsPerUnit int
}

// CurriculumResult lists the units created by one run.
type CurriculumResult struct {
	UnitsCreated   []int64 `json:"unitsCreated"`
	LessonIDs      []int64 `json:"lessonIds"`
	LessonsCreated int     `json:"lessonsCreated"`
}

// GenerateCurriculum creates new units for the course, weak areas first.
func (o *Orchestrator) GenerateCurriculum(ctx context.Context, req CurriculumRequest) (*CurriculumResult, error) {
	course, err := o.course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	return o.generateCurriculum(ctx, course, req)
}

func (o *Orchestrator) generateCurriculum(ctx context.Context, course *content.Course, req CurriculumRequest) (res *CurriculumResult, err error) {
	ctx, r := o.startRun(ctx, content.IntentCurriculum, req.UserID, course.ID, 0)
	var persisted *persist.Result
	defer func() { r.finish(persisted, err) }()

	units, err := o.content.ListUnits(ctx, course.ID)
	if err != nil {
		return nil, r.failed(fmt.Errorf("list units: %w", err))
	}
	existing := lo.FilterMap(units, func(u content.Unit, _ int) (string, bool) {
		return u.Title, u.Kind == content.UnitContent
	})

	unitCount := req.UnitCount
	if unitCount == 0 {
		unitCount = o.cfg.DefaultUnitCount
	}
	p, err := o.builder.Build(content.IntentCurriculum, prompt.Params{
		CourseTitle:    course.Title,
		Language:       languageOr(req.Language, course),
		Topics:         o.topics,
		Profile:        req.Profile,
		UnitCount:      unitCount,
		LessonsPerUnit: req.LessonsPerUnit,
		ExistingTitles: existing,
	})
	if err != nil {
		return nil, err
	}

	frag, err := o.produce(ctx, r, p)
	if err != nil {
		return nil, err
	}

	if err := r.enter(StateAnalyzing); err != nil {
		return nil, err
	}
	alignToProfile(frag.Units, req.Profile)

	persisted, err = o.persist(ctx, r, persist.Target{CourseID: course.ID, Profile: req.Profile}, frag)
	if err != nil {
		return nil, err
	}
	return &CurriculumResult{
		UnitsCreated:   persisted.UnitIDs,
		LessonIDs:      persisted.LessonIDs,
		LessonsCreated: persisted.LessonsCreated,
	}, nil
}

// CourseContentRequest drives bulk generation for a course without a
// learner: the requested topics become the focus areas.
type CourseContentRequest struct {
	CourseID       int64
	Language       string
	Level          content.Level
	Topics         []string
	UnitCount      int
	LessonsPerUnit int
}

// GenerateCourseContent creates units for a course from an admin request.
func (o *Orchestrator) GenerateCourseContent(ctx context.Context, req CourseContentRequest) (*CurriculumResult, error) {
	course, err := o.course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	level := req.Level
	if level == "" {
		level = content.LevelBeginner
	}
	return o.generateCurriculum(ctx, course, CurriculumRequest{
		CourseID:       course.ID,
		Language:       req.Language,
		Profile:        content.ProfileFor(level, req.Topics),
		UnitCount:      req.UnitCount,
		LessonsPerUnit: req.LessonsPerUnit,
	})
}

// AssessAndGenerateRequest runs the whole placement flow in one call.
type AssessAndGenerateRequest struct {
	UserID         string
	CourseID       int64
	LessonID       int64
	Language       string
	UnitCount      int
	LessonsPerUnit int
}

// AssessAndGenerateResult carries the profile and the units built from it.
type AssessAndGenerateResult struct {
	Profile *content.SkillProfile `json:"profile"`
	CurriculumResult
}

// AssessAndGenerate analyzes the learner's assessment and generates a
// curriculum from the resulting profile.
func (o *Orchestrator) AssessAndGenerate(ctx context.Context, req AssessAndGenerateRequest) (*AssessAndGenerateResult, error) {
	profile, err := o.AnalyzeAssessment(ctx, req.UserID, req.CourseID, req.LessonID)
	if err != nil {
		return nil, err
	}
	res, err := o.GenerateCurriculum(ctx, CurriculumRequest{
		UserID:         req.UserID,
		CourseID:       req.CourseID,
		Language:       req.Language,
		Profile:        profile,
		UnitCount:      req.UnitCount,
		LessonsPerUnit: req.LessonsPerUnit,
	})
	if err != nil {
		return nil, err
	}
	return &AssessAndGenerateResult{Profile: profile, CurriculumResult: *res}, nil
}
