package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var generationEventColumns = []string{
	"id", "sequence", "created_at_ms", "run_id", "intent", "user_id", "course_id", "unit_id",
	"final_state", "model_calls", "units_created", "lessons_created", "error_message", "duration_ms",
}

func (r *eventRepo) AppendGenerationRun(ctx context.Context, data GenerationRunData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = insertID(ctx, r.q, r.b.Insert("generation_events").
		Columns(generationEventColumns[1:]...).
		Values(
			seqNum, time.Now().UnixMilli(), data.RunID, data.Intent, data.UserID, data.CourseID, data.UnitID,
			data.FinalState, data.ModelCalls, data.UnitsCreated, data.LessonsCreated, data.ErrorMessage,
			data.Duration.Milliseconds(),
		))
	if err != nil {
		return fmt.Errorf("save generation event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryGenerationRuns(ctx context.Context, opts QueryOpts) ([]GenerationRunRecord, error) {
	sel := r.b.Select(generationEventColumns...).From(r.b.Table("generation_events"))
	if opts.Intent != "" {
		sel.Where(entsql.EQ("intent", opts.Intent))
	}
	query, args := eventFilter(sel, opts).Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation events: %w", err)
	}
	defer rows.Close()

	var out []GenerationRunRecord
	for rows.Next() {
		var (
			e         GenerationRunRecord
			ts, durMs int64
		)
		err := rows.Scan(
			&e.ID, &e.Sequence, &ts, &e.RunID, &e.Intent, &e.UserID, &e.CourseID, &e.UnitID,
			&e.FinalState, &e.ModelCalls, &e.UnitsCreated, &e.LessonsCreated, &e.ErrorMessage, &durMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan generation event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
