package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/linguaforge/linguaforge/internal/content"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	unitColumns      = []string{"id", "course_id", "title", "description", "sort_order", "kind", "diagnostic_lesson_id"}
	lessonColumns    = []string{"id", "unit_id", "title", "sort_order"}
	challengeColumns = []string{"id", "lesson_id", "type", "question", "sort_order", "topic"}
	optionColumns    = []string{"id", "challenge_id", "text", "correct", "image_src", "audio_src"}
)

type contentRepo struct {
	q querier
	b *entsql.DialectBuilder

	// locking is set for postgres transactions, where parent rows are
	// locked with SELECT ... FOR UPDATE.
	locking bool
}

// insert runs an insert and returns the new row id.
func (r *contentRepo) insert(ctx context.Context, ib *entsql.InsertBuilder) (int64, error) {
	return insertID(ctx, r.q, ib)
}

func insertID(ctx context.Context, q querier, ib *entsql.InsertBuilder) (int64, error) {
	if ib.Dialect() == dialect.Postgres {
		query, args := ib.Returning("id").Query()
		var id int64
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	query, args := ib.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *contentRepo) CreateCourse(ctx context.Context, c *content.Course) (int64, error) {
	id, err := r.insert(ctx, r.b.Insert("courses").
		Columns("title", "language", "image_src").
		Values(c.Title, c.Language, c.ImageSrc))
	if err != nil {
		return 0, wrapWrite("courses", err)
	}
	return id, nil
}

func (r *contentRepo) GetCourse(ctx context.Context, id int64) (*content.Course, error) {
	query, args := r.b.Select("id", "title", "language", "image_src").
		From(r.b.Table("courses")).
		Where(entsql.EQ("id", id)).
		Query()

	var c content.Course
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Title, &c.Language, &c.ImageSrc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "course", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

func (r *contentRepo) ListCourses(ctx context.Context) ([]content.Course, error) {
	query, args := r.b.Select("id", "title", "language", "image_src").
		From(r.b.Table("courses")).
		OrderBy("id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []content.Course
	for rows.Next() {
		var c content.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Language, &c.ImageSrc); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanUnit(row interface{ Scan(...any) error }) (*content.Unit, error) {
	var (
		u    content.Unit
		kind string
		diag sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.CourseID, &u.Title, &u.Description, &u.Order, &kind, &diag); err != nil {
		return nil, err
	}
	u.Kind = content.UnitKind(kind)
	u.DiagnosticLessonID = diag.Int64
	return &u, nil
}

func (r *contentRepo) GetUnit(ctx context.Context, id int64) (*content.Unit, error) {
	query, args := r.b.Select(unitColumns...).
		From(r.b.Table("units")).
		Where(entsql.EQ("id", id)).
		Query()

	u, err := scanUnit(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "unit", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (r *contentRepo) FindAssessmentUnit(ctx context.Context, courseID int64) (*content.Unit, error) {
	query, args := r.b.Select(unitColumns...).
		From(r.b.Table("units")).
		Where(entsql.And(
			entsql.EQ("course_id", courseID),
			entsql.EQ("kind", string(content.UnitAssessment)),
		)).
		Query()

	u, err := scanUnit(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find assessment unit: %w", err)
	}
	return u, nil
}

func (r *contentRepo) ListUnits(ctx context.Context, courseID int64) ([]content.Unit, error) {
	query, args := r.b.Select(unitColumns...).
		From(r.b.Table("units")).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy("sort_order", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []content.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *contentRepo) GetLesson(ctx context.Context, id int64) (*content.Lesson, error) {
	query, args := r.b.Select(lessonColumns...).
		From(r.b.Table("lessons")).
		Where(entsql.EQ("id", id)).
		Query()

	var l content.Lesson
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.UnitID, &l.Title, &l.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "lesson", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return &l, nil
}

func (r *contentRepo) ListLessons(ctx context.Context, unitID int64) ([]content.Lesson, error) {
	query, args := r.b.Select(lessonColumns...).
		From(r.b.Table("lessons")).
		Where(entsql.EQ("unit_id", unitID)).
		OrderBy("sort_order", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var out []content.Lesson
	for rows.Next() {
		var l content.Lesson
		if err := rows.Scan(&l.ID, &l.UnitID, &l.Title, &l.Order); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *contentRepo) ListChallenges(ctx context.Context, lessonID int64) ([]content.Challenge, error) {
	query, args := r.b.Select(challengeColumns...).
		From(r.b.Table("challenges")).
		Where(entsql.EQ("lesson_id", lessonID)).
		OrderBy("sort_order", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	var (
		out []content.Challenge
		ids []any
	)
	for rows.Next() {
		var (
			c     content.Challenge
			ctype string
		)
		if err := rows.Scan(&c.ID, &c.LessonID, &ctype, &c.Question, &c.Order, &c.Topic); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		c.Type = content.ChallengeType(ctype)
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	options, err := r.listOptions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Options = options[out[i].ID]
	}
	return out, nil
}

// listOptions returns options grouped by challenge id, in insertion order.
func (r *contentRepo) listOptions(ctx context.Context, challengeIDs []any) (map[int64][]content.ChallengeOption, error) {
	query, args := r.b.Select(optionColumns...).
		From(r.b.Table("challenge_options")).
		Where(entsql.In("challenge_id", challengeIDs...)).
		OrderBy("challenge_id", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]content.ChallengeOption)
	for rows.Next() {
		var o content.ChallengeOption
		if err := rows.Scan(&o.ID, &o.ChallengeID, &o.Text, &o.Correct, &o.ImageSrc, &o.AudioSrc); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out[o.ChallengeID] = append(out[o.ChallengeID], o)
	}
	return out, rows.Err()
}

func (r *contentRepo) CourseTree(ctx context.Context, courseID int64) (*content.CourseTree, error) {
	course, err := r.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	units, err := r.ListUnits(ctx, courseID)
	if err != nil {
		return nil, err
	}

	tree := &content.CourseTree{Course: *course}
	for _, u := range units {
		lessons, err := r.ListLessons(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		ut := content.UnitTree{Unit: u}
		for _, l := range lessons {
			challenges, err := r.ListChallenges(ctx, l.ID)
			if err != nil {
				return nil, err
			}
			ut.Lessons = append(ut.Lessons, content.LessonTree{Lesson: l, Challenges: challenges})
		}
		tree.Units = append(tree.Units, ut)
	}
	return tree, nil
}

func (r *contentRepo) lockRow(ctx context.Context, table, entity string, id int64) error {
	sel := r.b.Select("id").From(r.b.Table(table)).Where(entsql.EQ("id", id))
	if r.locking {
		sel.ForUpdate()
	}
	query, args := sel.Query()

	var got int64
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", entity, err)
	}
	return nil
}

func (r *contentRepo) LockCourse(ctx context.Context, courseID int64) error {
	return r.lockRow(ctx, "courses", "course", courseID)
}

func (r *contentRepo) LockUnit(ctx context.Context, unitID int64) error {
	return r.lockRow(ctx, "units", "unit", unitID)
}

func (r *contentRepo) maxOrder(ctx context.Context, table, parentColumn string, parentID int64) (int, error) {
	query, args := r.b.Select(entsql.Max("sort_order")).
		From(r.b.Table(table)).
		Where(entsql.EQ(parentColumn, parentID)).
		Query()

	var m sql.NullInt64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&m); err != nil {
		return 0, fmt.Errorf("max order of %s: %w", table, err)
	}
	return int(m.Int64), nil
}

func (r *contentRepo) MaxUnitOrder(ctx context.Context, courseID int64) (int, error) {
	return r.maxOrder(ctx, "units", "course_id", courseID)
}

func (r *contentRepo) MaxLessonOrder(ctx context.Context, unitID int64) (int, error) {
	return r.maxOrder(ctx, "lessons", "unit_id", unitID)
}

func (r *contentRepo) InsertUnit(ctx context.Context, u *content.Unit) (int64, error) {
	kind := u.Kind
	if kind == "" {
		kind = content.UnitContent
	}
	id, err := r.insert(ctx, r.b.Insert("units").
		Columns("course_id", "title", "description", "sort_order", "kind").
		Values(u.CourseID, u.Title, u.Description, u.Order, string(kind)))
	if err != nil {
		return 0, wrapWrite("units", err)
	}
	return id, nil
}

func (r *contentRepo) InsertLesson(ctx context.Context, l *content.Lesson) (int64, error) {
	id, err := r.insert(ctx, r.b.Insert("lessons").
		Columns("unit_id", "title", "sort_order").
		Values(l.UnitID, l.Title, l.Order))
	if err != nil {
		return 0, wrapWrite("lessons", err)
	}
	return id, nil
}

func (r *contentRepo) InsertChallenge(ctx context.Context, c *content.Challenge) (int64, error) {
	id, err := r.insert(ctx, r.b.Insert("challenges").
		Columns("lesson_id", "type", "question", "sort_order", "topic").
		Values(c.LessonID, string(c.Type), c.Question, c.Order, c.Topic))
	if err != nil {
		return 0, wrapWrite("challenges", err)
	}
	return id, nil
}

func (r *contentRepo) InsertOption(ctx context.Context, o *content.ChallengeOption) (int64, error) {
	id, err := r.insert(ctx, r.b.Insert("challenge_options").
		Columns("challenge_id", "text", "correct", "image_src", "audio_src").
		Values(o.ChallengeID, o.Text, o.Correct, o.ImageSrc, o.AudioSrc))
	if err != nil {
		return 0, wrapWrite("challenge_options", err)
	}
	return id, nil
}

func (r *contentRepo) SetDiagnosticLesson(ctx context.Context, unitID, lessonID int64) error {
	query, args := r.b.Update("units").
		Set("diagnostic_lesson_id", lessonID).
		Where(entsql.EQ("id", unitID)).
		Query()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set diagnostic lesson: %w", err)
	}
	return nil
}
