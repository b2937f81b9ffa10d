package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/store"
)

// run carries the bookkeeping of one generation request: its state machine,
// spans, metrics and the event recorded when it ends.
type run struct {
	o       *Orchestrator
	id      string
	intent  content.Intent
	machine *Machine
	log     *logger.Logger
	started time.Time
	calls   int

	userID   string
	courseID int64
	unitID   int64

	ctx        context.Context
	span       trace.Span
	stageSpan  trace.Span
	stageState State
	stageStart time.Time
}

func (o *Orchestrator) startRun(ctx context.Context, intent content.Intent, userID string, courseID, unitID int64) (context.Context, *run) {
	id := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "generation."+intent.Purpose(), trace.WithAttributes(
		attribute.String("generation.run_id", id),
		attribute.String("generation.intent", string(intent)),
		attribute.Int64("course.id", courseID),
		attribute.Int64("unit.id", unitID),
	))

	r := &run{
		o:        o,
		id:       id,
		intent:   intent,
		machine:  NewMachine(),
		log:      o.log.With("run_id", id, "intent", intent),
		started:  time.Now(),
		userID:   userID,
		courseID: courseID,
		unitID:   unitID,
		ctx:      ctx,
		span:     span,
	}
	r.beginStage(StatePrompting)
	return ctx, r
}

// enter moves the run to next, closing the current stage span.
func (r *run) enter(next State) error {
	if err := r.machine.Transition(next); err != nil {
		return err
	}
	r.endStage(nil)
	if !next.Terminal() {
		r.beginStage(next)
	}
	return nil
}

func (r *run) beginStage(s State) {
	_, r.stageSpan = r.o.tracer.Start(r.ctx, "generation.stage."+strings.ToLower(string(s)))
	r.stageState = s
	r.stageStart = time.Now()
}

func (r *run) endStage(err error) {
	if r.stageSpan == nil {
		return
	}
	if err != nil {
		r.stageSpan.RecordError(err)
		r.stageSpan.SetStatus(codes.Error, err.Error())
	}
	r.stageSpan.End()
	r.stageSpan = nil
	r.o.metrics.observeStage(string(r.intent), r.stageState, time.Since(r.stageStart))
}

// failed wraps cause as the run's terminal error at the current stage.
func (r *run) failed(cause error) error {
	return &GenerationFailedError{
		Intent:   r.intent,
		Stage:    r.machine.State(),
		Attempts: r.calls,
		Cause:    cause,
	}
}

// finish closes the run and records it. err is the error returned to the
// caller, if any.
func (r *run) finish(res *persist.Result, err error) {
	failedAt := r.machine.State()
	r.endStage(err)
	final := StateDone
	if err != nil {
		final = StateFailed
	}
	if !r.machine.State().Terminal() {
		if terr := r.machine.Transition(final); terr != nil {
			r.log.Error("generation state machine", "error", terr)
		}
	}

	outcome := outcomeOf(err)
	duration := time.Since(r.started)

	r.span.SetAttributes(
		attribute.String("generation.final_state", string(r.machine.State())),
		attribute.Int("generation.model_calls", r.calls),
	)
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.End()
	r.o.metrics.run(string(r.intent), outcome)

	data := store.GenerationRunData{
		RunID:      r.id,
		Intent:     string(r.intent),
		UserID:     r.userID,
		CourseID:   r.courseID,
		UnitID:     r.unitID,
		FinalState: string(r.machine.State()),
		ModelCalls: r.calls,
		Duration:   duration,
	}
	if res != nil {
		data.UnitsCreated = res.UnitsCreated
		data.LessonsCreated = res.LessonsCreated
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	if r.o.events != nil {
		if aerr := r.o.events.AppendGenerationRun(context.WithoutCancel(r.ctx), data); aerr != nil {
			r.log.Warn("failed to record generation run", "error", aerr)
		}
	}

	if err != nil {
		r.log.Warn("generation failed",
			"stage", failedAt,
			"outcome", outcome,
			"model_calls", r.calls,
			"duration", duration,
			"error", err,
		)
		return
	}
	r.log.Info("generation finished",
		"model_calls", r.calls,
		"units", data.UnitsCreated,
		"lessons", data.LessonsCreated,
		"duration", duration,
	)
}

func outcomeOf(err error) string {
	var upstream *UpstreamUnavailableError
	switch {
	case err == nil:
		return "done"
	case errors.As(err, &upstream):
		return "upstream_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "failed"
}
