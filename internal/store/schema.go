package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// schemaStatements create the course hierarchy, the progress table and the
// event logs. {{pk}} is filled per dialect. Timestamps are
// stored as unix milliseconds so both backends scan them identically.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		id {{pk}},
		title TEXT NOT NULL,
		language TEXT NOT NULL,
		image_src TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id {{pk}},
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL,
		kind TEXT NOT NULL DEFAULT 'content',
		diagnostic_lesson_id BIGINT
	)`,
	// Content units are unique per order; the assessment unit sits at
	// order 0 outside that index and is unique per course.
	`CREATE UNIQUE INDEX IF NOT EXISTS units_course_order ON units (course_id, sort_order) WHERE kind = 'content'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS units_course_assessment ON units (course_id) WHERE kind = 'assessment'`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id {{pk}},
		unit_id BIGINT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		sort_order INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS lessons_unit_order ON lessons (unit_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id {{pk}},
		lesson_id BIGINT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		question TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		topic TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS challenges_lesson_order ON challenges (lesson_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS challenge_options (
		id {{pk}},
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		image_src TEXT NOT NULL DEFAULT '',
		audio_src TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS challenge_options_challenge ON challenge_options (challenge_id)`,
	`CREATE TABLE IF NOT EXISTS challenge_progress (
		id {{pk}},
		user_id TEXT NOT NULL,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		completed BOOLEAN NOT NULL,
		time_spent_ms BIGINT NOT NULL DEFAULT 0,
		completed_at_ms BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS challenge_progress_user ON challenge_progress (user_id, challenge_id)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id {{pk}},
		sequence BIGINT NOT NULL,
		created_at_ms BIGINT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS generation_events (
		id {{pk}},
		sequence BIGINT NOT NULL,
		created_at_ms BIGINT NOT NULL,
		run_id TEXT NOT NULL,
		intent TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		course_id BIGINT NOT NULL DEFAULT 0,
		unit_id BIGINT NOT NULL DEFAULT 0,
		final_state TEXT NOT NULL,
		model_calls INTEGER NOT NULL DEFAULT 0,
		units_created INTEGER NOT NULL DEFAULT 0,
		lessons_created INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0
	)`,
}

func migrate(ctx context.Context, db *sql.DB, dia string) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dia == dialect.Postgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{pk}}", pk)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
