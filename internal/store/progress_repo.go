package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/linguaforge/linguaforge/internal/content"
)

type progressRepo struct {
	q querier
	b *entsql.DialectBuilder
}

func (r *progressRepo) RecordProgress(ctx context.Context, rec ProgressRecord) error {
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	query, args := r.b.Insert("challenge_progress").
		Columns("user_id", "challenge_id", "completed", "time_spent_ms", "completed_at_ms").
		Values(rec.UserID, rec.ChallengeID, rec.Completed, rec.TimeSpent.Milliseconds(), completedAt.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("user_id", "challenge_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

// outcomeSelector joins progress rows to their challenges. Callers add joins
// and the scope predicate.
func (r *progressRepo) outcomeSelector(userID string) (*entsql.Selector, *entsql.SelectTable) {
	p := r.b.Table("challenge_progress").As("p")
	c := r.b.Table("challenges").As("c")
	sel := r.b.Select(
		p.C("challenge_id"), c.C("topic"), c.C("question"),
		p.C("completed"), p.C("time_spent_ms"), p.C("completed_at_ms"),
	).
		From(p).
		Join(c).On(p.C("challenge_id"), c.C("id")).
		Where(entsql.EQ(p.C("user_id"), userID)).
		OrderBy(p.C("completed_at_ms"), p.C("id"))
	return sel, c
}

func (r *progressRepo) scanOutcomes(ctx context.Context, sel *entsql.Selector) ([]content.ChallengeOutcome, error) {
	query, args := sel.Query()
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []content.ChallengeOutcome
	for rows.Next() {
		var (
			o                   content.ChallengeOutcome
			spentMs, completeMs int64
		)
		if err := rows.Scan(&o.ChallengeID, &o.Topic, &o.Question, &o.Correct, &spentMs, &completeMs); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.TimeSpent = time.Duration(spentMs) * time.Millisecond
		o.CompletedAt = time.UnixMilli(completeMs).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *progressRepo) OutcomesForLesson(ctx context.Context, userID string, lessonID int64) ([]content.ChallengeOutcome, error) {
	sel, c := r.outcomeSelector(userID)
	sel.Where(entsql.EQ(c.C("lesson_id"), lessonID))
	return r.scanOutcomes(ctx, sel)
}

func (r *progressRepo) OutcomesForUnit(ctx context.Context, userID string, unitID int64) ([]content.ChallengeOutcome, error) {
	sel, c := r.outcomeSelector(userID)
	l := r.b.Table("lessons").As("l")
	sel.Join(l).On(c.C("lesson_id"), l.C("id")).
		Where(entsql.EQ(l.C("unit_id"), unitID))
	return r.scanOutcomes(ctx, sel)
}

func (r *progressRepo) OutcomesForCourse(ctx context.Context, userID string, courseID int64) ([]content.ChallengeOutcome, error) {
	sel, c := r.outcomeSelector(userID)
	l := r.b.Table("lessons").As("l")
	u := r.b.Table("units").As("u")
	sel.Join(l).On(c.C("lesson_id"), l.C("id")).
		Join(u).On(l.C("unit_id"), u.C("id")).
		Where(entsql.EQ(u.C("course_id"), courseID))
	return r.scanOutcomes(ctx, sel)
}

func (r *progressRepo) LessonChallengeIDs(ctx context.Context, courseID int64) (map[int64][]int64, error) {
	l := r.b.Table("lessons").As("l")
	u := r.b.Table("units").As("u")
	c := r.b.Table("challenges").As("c")
	query, args := r.b.Select(l.C("id"), c.C("id")).
		From(l).
		Join(u).On(l.C("unit_id"), u.C("id")).
		LeftJoin(c).On(c.C("lesson_id"), l.C("id")).
		Where(entsql.EQ(u.C("course_id"), courseID)).
		OrderBy(l.C("id"), c.C("id")).
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson challenges: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var (
			lessonID    int64
			challengeID *int64
		)
		if err := rows.Scan(&lessonID, &challengeID); err != nil {
			return nil, fmt.Errorf("scan lesson challenge: %w", err)
		}
		if _, ok := out[lessonID]; !ok {
			out[lessonID] = []int64{}
		}
		if challengeID != nil {
			out[lessonID] = append(out[lessonID], *challengeID)
		}
	}
	return out, rows.Err()
}
