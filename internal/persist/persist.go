// Package persist writes validated curriculum fragments into the course
// hierarchy, one transaction per fragment.
package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/lock"
	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/store"
)

// DefaultMaxAttempts bounds transaction retries after an order collision.
const DefaultMaxAttempts = 3

// TxRunner runs fn inside one transaction. *store.Store implements it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(store.ContentRepo) error) error
}

// Target names where a fragment goes. ASSESSMENT and CURRICULUM need
// CourseID; ADAPTIVE needs UnitID.
type Target struct {
	CourseID int64
	UnitID   int64

	// Profile is the skill profile the fragment was generated for, if any.
	Profile *content.SkillProfile

	// Refresh replaces the course's diagnostic lesson instead of reusing it.
	Refresh bool
}

// Result lists the roots created by one Persist call. For a reused
// assessment it lists the existing ids and Reused is set.
type Result struct {
	UnitIDs           []int64 `json:"unitIds"`
	LessonIDs         []int64 `json:"lessonIds"`
	UnitsCreated      int     `json:"unitsCreated"`
	LessonsCreated    int     `json:"lessonsCreated"`
	ChallengesCreated int     `json:"challengesCreated"`
	Reused            bool    `json:"reused"`
}

// Persister appends fragments to the store.
type Persister struct {
	tx          TxRunner
	locker      lock.Locker
	log         *logger.Logger
	maxAttempts int
}

// Option configures a Persister.
type Option func(*Persister)

// WithLocker replaces the default in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(p *Persister) { p.locker = l }
}

// WithMaxAttempts sets how many times a transaction is tried when it loses
// an order collision.
func WithMaxAttempts(n int) Option {
	return func(p *Persister) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// New creates a Persister.
func New(tx TxRunner, log *logger.Logger, opts ...Option) *Persister {
	if log == nil {
		log = logger.Nop()
	}
	p := &Persister{
		tx:          tx,
		locker:      lock.NewLocal(),
		log:         log,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Persist writes f under t atomically. Either the whole subtree is visible
// afterwards or none of it is.
func (p *Persister) Persist(ctx context.Context, t Target, f *content.Fragment) (*Result, error) {
	if f == nil {
		return nil, errors.New("persist: nil fragment")
	}
	key, err := lockKey(t, f.Intent)
	if err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		var res *Result
		err := p.tx.InTx(ctx, func(repo store.ContentRepo) error {
			var err error
			res, err = p.write(ctx, repo, t, f)
			return err
		})
		if err == nil {
			p.log.Info("fragment persisted",
				"intent", f.Intent,
				"key", key,
				"units", res.UnitsCreated,
				"lessons", res.LessonsCreated,
				"challenges", res.ChallengesCreated,
				"reused", res.Reused,
				"level", profileLevel(t.Profile),
			)
			return res, nil
		}

		var conflict *store.PersistenceConflictError
		if !errors.As(err, &conflict) || attempt >= p.maxAttempts {
			return nil, err
		}
		// Another writer got there first. The next attempt re-reads its rows.
		p.log.Warn("persist conflict, retrying", "table", conflict.Table, "attempt", attempt, "key", key)
	}
}

func profileLevel(p *content.SkillProfile) content.Level {
	if p == nil {
		return ""
	}
	return p.Level
}

func lockKey(t Target, intent content.Intent) (string, error) {
	switch intent {
	case content.IntentAssessment, content.IntentCurriculum:
		if t.CourseID <= 0 {
			return "", fmt.Errorf("persist %s: course id is required", intent)
		}
		return fmt.Sprintf("course:%d", t.CourseID), nil
	case content.IntentAdaptive:
		if t.UnitID <= 0 {
			return "", fmt.Errorf("persist %s: unit id is required", intent)
		}
		return fmt.Sprintf("unit:%d", t.UnitID), nil
	}
	return "", fmt.Errorf("persist: unknown intent %q", intent)
}

func (p *Persister) write(ctx context.Context, repo store.ContentRepo, t Target, f *content.Fragment) (*Result, error) {
	switch f.Intent {
	case content.IntentAssessment:
		return p.writeAssessment(ctx, repo, t, f)
	case content.IntentCurriculum:
		return p.writeCurriculum(ctx, repo, t, f)
	default:
		return p.writeAdaptive(ctx, repo, t, f)
	}
}

func (p *Persister) writeAssessment(ctx context.Context, repo store.ContentRepo, t Target, f *content.Fragment) (*Result, error) {
	if len(f.Lessons) != 1 {
		return nil, fmt.Errorf("assessment fragment has %d lessons, want 1", len(f.Lessons))
	}
	if err := repo.LockCourse(ctx, t.CourseID); err != nil {
		return nil, err
	}

	unit, err := repo.FindAssessmentUnit(ctx, t.CourseID)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if unit == nil {
		unit = &content.Unit{
			CourseID:    t.CourseID,
			Title:       content.AssessmentUnitTitle,
			Description: content.AssessmentUnitDescription,
			Order:       content.AssessmentUnitOrder,
			Kind:        content.UnitAssessment,
		}
		if unit.ID, err = repo.InsertUnit(ctx, unit); err != nil {
			return nil, err
		}
		res.UnitsCreated = 1
	} else if unit.DiagnosticLessonID != 0 && !t.Refresh {
		return &Result{
			UnitIDs:   []int64{unit.ID},
			LessonIDs: []int64{unit.DiagnosticLessonID},
			Reused:    true,
		}, nil
	}
	res.UnitIDs = []int64{unit.ID}

	base, err := repo.MaxLessonOrder(ctx, unit.ID)
	if err != nil {
		return nil, err
	}
	ids, challenges, err := writeLessons(ctx, repo, unit.ID, base, f.Lessons)
	if err != nil {
		return nil, err
	}
	if err := repo.SetDiagnosticLesson(ctx, unit.ID, ids[0]); err != nil {
		return nil, err
	}

	res.LessonIDs = ids
	res.LessonsCreated = len(ids)
	res.ChallengesCreated = challenges
	return res, nil
}

func (p *Persister) writeCurriculum(ctx context.Context, repo store.ContentRepo, t Target, f *content.Fragment) (*Result, error) {
	if len(f.Units) == 0 {
		return nil, errors.New("curriculum fragment has no units")
	}
	if err := repo.LockCourse(ctx, t.CourseID); err != nil {
		return nil, err
	}
	base, err := repo.MaxUnitOrder(ctx, t.CourseID)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	lessonIDs := make([][]int64, 0, len(f.Units))
	for i, draft := range f.Units {
		unitID, err := repo.InsertUnit(ctx, &content.Unit{
			CourseID:    t.CourseID,
			Title:       draft.Title,
			Description: draft.Description,
			Order:       base + i + 1,
			Kind:        content.UnitContent,
		})
		if err != nil {
			return nil, err
		}
		ids, challenges, err := writeLessons(ctx, repo, unitID, 0, draft.Lessons)
		if err != nil {
			return nil, err
		}
		res.UnitIDs = append(res.UnitIDs, unitID)
		res.ChallengesCreated += challenges
		lessonIDs = append(lessonIDs, ids)
	}

	res.LessonIDs = lo.Flatten(lessonIDs)
	res.UnitsCreated = len(res.UnitIDs)
	res.LessonsCreated = len(res.LessonIDs)
	return res, nil
}

func (p *Persister) writeAdaptive(ctx context.Context, repo store.ContentRepo, t Target, f *content.Fragment) (*Result, error) {
	if len(f.Lessons) == 0 {
		return nil, errors.New("adaptive fragment has no lessons")
	}
	if err := repo.LockUnit(ctx, t.UnitID); err != nil {
		return nil, err
	}
	base, err := repo.MaxLessonOrder(ctx, t.UnitID)
	if err != nil {
		return nil, err
	}
	ids, challenges, err := writeLessons(ctx, repo, t.UnitID, base, f.Lessons)
	if err != nil {
		return nil, err
	}
	return &Result{
		UnitIDs:           []int64{t.UnitID},
		LessonIDs:         ids,
		LessonsCreated:    len(ids),
		ChallengesCreated: challenges,
	}, nil
}

// writeLessons inserts lessons at base+1.. under unitID, each with its
// challenges numbered from 1.
func writeLessons(ctx context.Context, repo store.ContentRepo, unitID int64, base int, lessons []content.LessonDraft) ([]int64, int, error) {
	ids := make([]int64, 0, len(lessons))
	challenges := 0
	for i, draft := range lessons {
		lessonID, err := repo.InsertLesson(ctx, &content.Lesson{
			UnitID: unitID,
			Title:  draft.Title,
			Order:  base + i + 1,
		})
		if err != nil {
			return nil, 0, err
		}
		for k, c := range draft.Challenges {
			if err := writeChallenge(ctx, repo, lessonID, k+1, c); err != nil {
				return nil, 0, err
			}
		}
		ids = append(ids, lessonID)
		challenges += len(draft.Challenges)
	}
	return ids, challenges, nil
}

func writeChallenge(ctx context.Context, repo store.ContentRepo, lessonID int64, order int, c content.ChallengeDraft) error {
	if n := lo.CountBy(c.Options, func(o content.OptionDraft) bool { return o.Correct }); n != 1 || len(c.Options) < 2 {
		return fmt.Errorf("challenge %d of lesson %d: %d options with %d correct", order, lessonID, len(c.Options), n)
	}
	challengeID, err := repo.InsertChallenge(ctx, &content.Challenge{
		LessonID: lessonID,
		Type:     c.Type,
		Question: c.Question,
		Order:    order,
		Topic:    c.Topic,
	})
	if err != nil {
		return err
	}
	for _, o := range c.Options {
		if _, err := repo.InsertOption(ctx, &content.ChallengeOption{
			ChallengeID: challengeID,
			Text:        o.Text,
			Correct:     o.Correct,
			ImageSrc:    o.ImageSrc,
			AudioSrc:    o.AudioSrc,
		}); err != nil {
			return err
		}
	}
	return nil
}
