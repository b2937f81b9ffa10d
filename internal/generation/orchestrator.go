// Package generation coordinates prompting, the model call, validation,
// analysis and persistence for each generation flow.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
	"github.com/linguaforge/linguaforge/internal/store"
	"github.com/linguaforge/linguaforge/internal/validate"
)

// maxModelRounds bounds model calls per run when output fails validation:
// the first call plus one retry.
const maxModelRounds = 2

// Config holds orchestration settings.
type Config struct {
	// ModelTimeout bounds one model round trip, transport retries included.
	ModelTimeout time.Duration `mapstructure:"model_timeout"`

	// DefaultUnitCount is used when a curriculum request names no count.
	DefaultUnitCount int `mapstructure:"default_unit_count"`

	// HistoryDecay is the per-step weight of older outcomes in ADAPTIVE.
	HistoryDecay float64 `mapstructure:"history_decay"`

	// HistoryWindow caps the outcomes loaded for ADAPTIVE, newest kept.
	HistoryWindow int `mapstructure:"history_window"`
}

// DefaultConfig returns the standard orchestration settings.
func DefaultConfig() Config {
	return Config{
		ModelTimeout:     150 * time.Second,
		DefaultUnitCount: 3,
		HistoryDecay:     assessment.DefaultDecay,
		HistoryWindow:    50,
	}
}

// Deps are the collaborators of an Orchestrator. Events, Metrics, Tracer,
// Extractor and Log are optional.
type Deps struct {
	Provider  llm.Provider
	Builder   *prompt.Builder
	Validator *validate.Validator
	Analyzer  *assessment.Analyzer
	Persister *persist.Persister
	Content   store.ContentRepo
	Progress  store.ProgressRepo

	// Topics is the vocabulary offered to the model for tagging.
	Topics []string

	Extractor assessment.TopicExtractor
	Events    store.EventRepo
	Metrics   *Metrics
	Tracer    trace.Tracer
	Log       *logger.Logger
}

// Orchestrator runs generation flows. It is safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	provider  llm.Provider
	builder   *prompt.Builder
	validator *validate.Validator
	analyzer  *assessment.Analyzer
	reporter  *assessment.Reporter
	persister *persist.Persister
	content   store.ContentRepo
	progress  store.ProgressRepo
	topics    []string
	extractor assessment.TopicExtractor
	events    store.EventRepo
	metrics   *Metrics
	tracer    trace.Tracer
	log       *logger.Logger

	flight flights
}

// New creates an Orchestrator.
func New(cfg Config, d Deps) (*Orchestrator, error) {
	switch {
	case d.Provider == nil:
		return nil, errors.New("generation: provider is required")
	case d.Builder == nil:
		return nil, errors.New("generation: prompt builder is required")
	case d.Validator == nil:
		return nil, errors.New("generation: validator is required")
	case d.Analyzer == nil:
		return nil, errors.New("generation: analyzer is required")
	case d.Persister == nil:
		return nil, errors.New("generation: persister is required")
	case d.Content == nil || d.Progress == nil:
		return nil, errors.New("generation: content and progress repositories are required")
	}

	def := DefaultConfig()
	if cfg.DefaultUnitCount <= 0 {
		cfg.DefaultUnitCount = def.DefaultUnitCount
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.HistoryDecay == 0 {
		cfg.HistoryDecay = def.HistoryDecay
	}

	o := &Orchestrator{
		cfg:       cfg,
		provider:  d.Provider,
		builder:   d.Builder,
		validator: d.Validator,
		analyzer:  d.Analyzer,
		reporter:  assessment.NewReporter(d.Progress, d.Analyzer),
		persister: d.Persister,
		content:   d.Content,
		progress:  d.Progress,
		topics:    d.Topics,
		extractor: d.Extractor,
		events:    d.Events,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		log:       d.Log,
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("github.com/linguaforge/linguaforge/internal/generation")
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o, nil
}

// produce runs AWAITING_MODEL → VALIDATING until the output validates or the
// retry budget is spent. Malformed and schema failures are retried once with
// the same prompt; semantic failures are not.
func (o *Orchestrator) produce(ctx context.Context, r *run, p *prompt.Prompt) (*content.Fragment, error) {
	for round := 1; ; round++ {
		if err := r.enter(StateAwaitingModel); err != nil {
			return nil, err
		}
		raw, callErr := o.callModel(ctx, r, p)
		if callErr != nil && !isOutputError(callErr) {
			return nil, o.modelFailure(ctx, r, callErr)
		}

		if err := r.enter(StateValidating); err != nil {
			return nil, err
		}
		var (
			frag *content.Fragment
			err  error
		)
		if callErr != nil {
			err = &validate.MalformedOutputError{Err: callErr}
		} else {
			frag, err = o.validator.Validate(p.Intent, p.Schema, raw)
		}
		if err == nil {
			return frag, nil
		}

		o.metrics.validationFailure(string(r.intent), validationKind(err))
		if validate.Retryable(err) && round < maxModelRounds && ctx.Err() == nil {
			r.log.Warn("model output rejected, asking again", "round", round, "error", err)
			continue
		}
		return nil, r.failed(err)
	}
}

func (o *Orchestrator) callModel(ctx context.Context, r *run, p *prompt.Prompt) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	callCtx := llm.WithCall(ctx, llm.CallInfo{Purpose: p.Intent.Purpose(), RunID: r.id})
	if o.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.cfg.ModelTimeout)
		defer cancel()
	}

	r.calls++
	o.metrics.modelCall(string(r.intent))
	resp, err := o.provider.Generate(callCtx, p.Request())
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// isOutputError reports provider errors that describe the model's output
// rather than the transport. They count against the validation retry.
func isOutputError(err error) bool {
	var invalid *llm.ErrInvalidResponse
	var truncated *llm.ErrMaxTokensExceeded
	return errors.As(err, &invalid) || errors.As(err, &truncated)
}

// modelFailure translates a provider error. Caller cancellation is returned
// as is.
func (o *Orchestrator) modelFailure(ctx context.Context, r *run, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if llm.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamUnavailableError{Intent: r.intent, Err: err}
	}
	return r.failed(err)
}

func validationKind(err error) string {
	var (
		malformed *validate.MalformedOutputError
		schema    *validate.SchemaViolationError
		semantic  *validate.SemanticViolationError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &schema):
		return "schema"
	case errors.As(err, &semantic):
		return "semantic"
	}
	return "other"
}

// persist enters PERSISTING and writes the fragment. Once the write starts
// it runs to completion even if the caller goes away, so the caller's
// cancellation is only honoured before this point.
func (o *Orchestrator) persist(ctx context.Context, r *run, t persist.Target, f *content.Fragment) (*persist.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.enter(StatePersisting); err != nil {
		return nil, err
	}
	res, err := o.persister.Persist(context.WithoutCancel(ctx), t, f)
	if err != nil {
		return nil, r.failed(err)
	}
	return res, nil
}

func (o *Orchestrator) course(ctx context.Context, id int64) (*content.Course, error) {
	if id <= 0 {
		return nil, &prompt.ConfigurationError{Field: "courseId", Reason: "required"}
	}
	c, err := o.content.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

func languageOr(requested string, c *content.Course) string {
	if requested != "" {
		return requested
	}
	return c.Language
}
