package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no provider keys set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
		"LINGUAFORGE_ANTHROPIC_API_KEY", "LINGUAFORGE_DB",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15, cfg.Generation.Limits.AssessmentSize)
	assert.Equal(t, 150*time.Second, cfg.Generation.Orchestration.ModelTimeout)
	assert.Equal(t, 3, cfg.Generation.Orchestration.DefaultUnitCount)
	assert.Equal(t, 40, cfg.Analyzer.IntermediateMin)
	assert.Equal(t, 75, cfg.Analyzer.AdvancedMin)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "custom.yaml", `
db:
  driver: postgres
  dsn: postgres://localhost/linguaforge
server:
  addr: ":9090"
  allow_origins: ["https://app.example.com"]
generation:
  assessment_size: 12
  model_timeout: 90s
  default_unit_count: 2
analyzer:
  advanced_min: 80
llm:
  provider: mock
  retry:
    wait: 1s
topics:
  file: topics.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 12, cfg.Generation.Limits.AssessmentSize)
	assert.Equal(t, 10, cfg.Generation.Limits.MaxChallenges, "unset keys keep defaults")
	assert.Equal(t, 90*time.Second, cfg.Generation.Orchestration.ModelTimeout)
	assert.Equal(t, 2, cfg.Generation.Orchestration.DefaultUnitCount)
	assert.Equal(t, 80, cfg.Analyzer.AdvancedMin)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, time.Second, cfg.LLM.Retry.Wait)
	assert.Equal(t, "topics.yaml", cfg.Topics.File)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "linguaforge.yaml", "server:\n  addr: \":7070\"\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LINGUAFORGE_SERVER_ADDR", ":6060")
	t.Setenv("LINGUAFORGE_GENERATION_MAX_UNIT_COUNT", "5")
	t.Setenv("LINGUAFORGE_GENERATION_MODEL_TIMEOUT", "2m")
	t.Setenv("LINGUAFORGE_LLM_PROVIDER", "openai")
	t.Setenv("LINGUAFORGE_OPENAI_API_KEY", "sk-legacy")
	t.Setenv("LINGUAFORGE_DB", "/tmp/lf.db")
	t.Setenv("LINGUAFORGE_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Generation.Limits.MaxUnitCount)
	assert.Equal(t, 2*time.Minute, cfg.Generation.Orchestration.ModelTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-legacy", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "/tmp/lf.db", cfg.DB.DSN)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_DBPathEnvKeepsSection(t *testing.T) {
	dir := isolate(t)
	t.Setenv("LINGUAFORGE_DB", filepath.Join(dir, "lf.db"))
	writeFile(t, dir, "linguaforge.yaml", "db:\n  max_open_conns: 4\n")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, filepath.Join(dir, "lf.db"), cfg.DB.DSN)
	assert.Equal(t, 4, cfg.DB.MaxOpenConns)
}

func TestLoad_DiscoversVendorKey(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("LINGUAFORGE_LLM_RATE_PER_MINUTE", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 5, cfg.LLM.RatePerMinute)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "server: [unclosed\n")
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.DB.Driver = "mysql" }},
		{"postgres dsn", func(c *Config) { c.DB.Driver = "postgres" }},
		{"server mode", func(c *Config) { c.Server.Mode = "loud" }},
		{"challenge bounds", func(c *Config) { c.Generation.Limits.MinChallenges = 20 }},
		{"analyzer bands", func(c *Config) { c.Analyzer.AdvancedMin = 10 }},
		{"model timeout", func(c *Config) { c.Generation.Orchestration.ModelTimeout = 0 }},
		{"default unit count", func(c *Config) { c.Generation.Orchestration.DefaultUnitCount = 99 }},
		{"history decay", func(c *Config) { c.Generation.Orchestration.HistoryDecay = 1.5 }},
		{"history window", func(c *Config) { c.Generation.Orchestration.HistoryWindow = 0 }},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }},
		{"redis ttl", func(c *Config) { c.Redis.URL = "redis://x"; c.Redis.TTL = 0 }},
	}

	def := Default()
	require.NoError(t, def.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
