// Package server exposes the generation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/generation"
	"github.com/linguaforge/linguaforge/internal/logger"
)

// Config controls the HTTP listener.
type Config struct {
	Addr string `mapstructure:"addr"`

	// Mode is a gin mode: "release", "debug" or "test".
	Mode string `mapstructure:"mode"`

	// RequestTimeout bounds one API request, generation included.
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AllowOrigins enables CORS for the listed origins.
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the listener settings.
func (c Config) Validate() error {
	switch c.Mode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
	default:
		return fmt.Errorf("server.mode must be release, debug or test, got %q", c.Mode)
	}
	if c.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	return nil
}

// Service is the pipeline surface the handlers call.
type Service interface {
	CreateAssessment(ctx context.Context, req generation.AssessmentRequest) (*generation.AssessmentResult, error)
	AnalyzeAssessment(ctx context.Context, userID string, courseID, lessonID int64) (*content.SkillProfile, error)
	GenerateCurriculum(ctx context.Context, req generation.CurriculumRequest) (*generation.CurriculumResult, error)
	GenerateAdaptiveLessons(ctx context.Context, req generation.AdaptiveRequest) (*generation.AdaptiveResult, error)
	GenerateCourseContent(ctx context.Context, req generation.CourseContentRequest) (*generation.CurriculumResult, error)
	AssessAndGenerate(ctx context.Context, req generation.AssessAndGenerateRequest) (*generation.AssessAndGenerateResult, error)
	Progress(ctx context.Context, userID string, courseID int64) (*assessment.Report, error)
}

// Server owns the gin engine and the listener lifecycle.
type Server struct {
	cfg    Config
	svc    Service
	log    *logger.Logger
	engine *gin.Engine
}

// New builds the router. reg receives the HTTP metrics and backs /metrics;
// nil creates a private registry.
func New(cfg Config, svc Service, reg *prometheus.Registry, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gin.SetMode(cfg.Mode)

	s := &Server{cfg: cfg, svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(newHTTPMetrics(reg).middleware())
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type", userHeader},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api/ai")
	api.Use(otelgin.Middleware("linguaforge"))
	api.Use(requestTimeout(cfg.RequestTimeout))
	{
		api.POST("/assessment", s.createAssessment)
		api.POST("/generate-lessons", s.generateLessons)

		learner := api.Group("/")
		learner.Use(requireUser())
		learner.POST("/analyze-assessment", s.analyzeAssessment)
		learner.POST("/generate-curriculum", s.generateCurriculum)
		learner.POST("/adaptive-lessons", s.adaptiveLessons)
		learner.POST("/assess-and-generate", s.assessAndGenerate)
		learner.GET("/progress", s.progress)
	}

	s.engine = r
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
