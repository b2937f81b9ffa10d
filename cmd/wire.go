package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/config"
	"github.com/linguaforge/linguaforge/internal/generation"
	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/lock"
	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/persist"
	"github.com/linguaforge/linguaforge/internal/prompt"
	"github.com/linguaforge/linguaforge/internal/store"
	"github.com/linguaforge/linguaforge/internal/tracing"
	"github.com/linguaforge/linguaforge/internal/validate"
)

// runtime holds what every command needs: config, logger and store.
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store

	closers []func()
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := resolveDSN(&cfg.DB); err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.OpenWith(cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log, store: st}
	rt.closers = append(rt.closers, func() { st.Close() }, log.Sync)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// orchestrator wires the generation pipeline. reg may be nil.
func (rt *runtime) orchestrator(ctx context.Context, reg prometheus.Registerer) (*generation.Orchestrator, error) {
	cfg := rt.cfg

	shutdown, err := tracing.Init(ctx, cfg.Tracing, version, os.Stderr, rt.log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.closers = append(rt.closers, func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			rt.log.Warn("tracing shutdown failed", "error", err)
		}
	})

	vocab, err := rt.vocabulary()
	if err != nil {
		return nil, err
	}
	extractor := assessment.NewKeywordExtractor(vocab)

	builder, err := prompt.NewBuilder(cfg.Generation.Limits)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, rt.store.EventRepo(), rt.log)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}

	locker, err := rt.locker(ctx)
	if err != nil {
		return nil, err
	}

	return generation.New(cfg.Generation.Orchestration, generation.Deps{
		Provider:  provider,
		Builder:   builder,
		Validator: validate.New(cfg.Generation.Limits, vocab),
		Analyzer:  assessment.NewAnalyzer(cfg.Analyzer, extractor),
		Persister: persist.New(rt.store, rt.log, persist.WithLocker(locker)),
		Content:   rt.store.Content(),
		Progress:  rt.store.Progress(),
		Topics:    vocab.Names(),
		Extractor: extractor,
		Events:    rt.store.EventRepo(),
		Metrics:   generation.NewMetrics(reg),
		Log:       rt.log,
	})
}

// vocabulary returns the configured topic vocabulary, or the built-in one.
func (rt *runtime) vocabulary() (*assessment.Vocabulary, error) {
	if rt.cfg.Topics.File == "" {
		return assessment.DefaultVocabulary(), nil
	}
	vocab, err := assessment.LoadVocabulary(rt.cfg.Topics.File)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	return vocab, nil
}

// locker serializes appends in-process, and across processes when Redis
// is configured.
func (rt *runtime) locker(ctx context.Context) (lock.Locker, error) {
	local := lock.NewLocal()
	if rt.cfg.Redis.URL == "" {
		return local, nil
	}
	client, err := lock.NewRedisClient(ctx, rt.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	rt.closers = append(rt.closers, func() { client.Close() })
	return lock.Chain{local, lock.NewRedis(client, rt.cfg.Redis, rt.log)}, nil
}

// withRuntime opens a runtime for the duration of fn.
func withRuntime(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// withOrchestrator opens a runtime and wires the pipeline for fn.
func withOrchestrator(cmd *cobra.Command, fn func(rt *runtime, o *generation.Orchestrator) error) error {
	return withRuntime(cmd, func(rt *runtime) error {
		o, err := rt.orchestrator(cmd.Context(), nil)
		if err != nil {
			return err
		}
		return fn(rt, o)
	})
}
