// Package config loads linguaforge settings from an optional YAML file and
// LINGUAFORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/generation"
	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/lock"
	"github.com/linguaforge/linguaforge/internal/logger"
	"github.com/linguaforge/linguaforge/internal/prompt"
	"github.com/linguaforge/linguaforge/internal/server"
	"github.com/linguaforge/linguaforge/internal/store"
	"github.com/linguaforge/linguaforge/internal/tracing"
)

const (
	envPrefix       = "LINGUAFORGE"
	defaultFileName = "linguaforge"
)

type Config struct {
	DB         store.Config      `mapstructure:"db"`
	Log        logger.Config     `mapstructure:"log"`
	Server     server.Config     `mapstructure:"server"`
	Redis      lock.Config       `mapstructure:"redis"`
	Tracing    tracing.Config    `mapstructure:"tracing"`
	Generation Generation        `mapstructure:"generation"`
	Analyzer   assessment.Config `mapstructure:"analyzer"`
	Topics     Topics            `mapstructure:"topics"`
	LLM        llm.Config        `mapstructure:"llm"`
}

// Generation flattens the prompt limits and the run settings into one
// section.
type Generation struct {
	Limits        prompt.Config     `mapstructure:",squash"`
	Orchestration generation.Config `mapstructure:",squash"`
}

type Topics struct {
	// File replaces the built-in topic vocabulary.
	File string `mapstructure:"file"`
}

func Default() Config {
	return Config{
		DB:      store.Config{Driver: "sqlite", MaxOpenConns: 10},
		Log:     logger.DefaultConfig(),
		Server:  server.DefaultConfig(),
		Redis:   lock.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
		Generation: Generation{
			Limits:        prompt.DefaultConfig(),
			Orchestration: generation.DefaultConfig(),
		},
		Analyzer: assessment.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
	}
}

// legacyEnv keeps the short provider variables working alongside the
// section-derived names.
var legacyEnv = map[string]string{
	"llm.anthropic.api_key":     "LINGUAFORGE_ANTHROPIC_API_KEY",
	"llm.anthropic.model":       "LINGUAFORGE_ANTHROPIC_MODEL",
	"llm.openai.api_key":        "LINGUAFORGE_OPENAI_API_KEY",
	"llm.openai.model":          "LINGUAFORGE_OPENAI_MODEL",
	"llm.openai.base_url":       "LINGUAFORGE_OPENAI_BASE_URL",
	"llm.gemini.api_key":        "LINGUAFORGE_GEMINI_API_KEY",
	"llm.gemini.model":          "LINGUAFORGE_GEMINI_MODEL",
	"llm.openrouter.api_key":    "LINGUAFORGE_OPENROUTER_API_KEY",
	"llm.openrouter.model":      "LINGUAFORGE_OPENROUTER_MODEL",
	"llm.retry.max_attempts":    "LINGUAFORGE_LLM_MAX_ATTEMPTS",
	"llm.retry.attempt_timeout": "LINGUAFORGE_LLM_ATTEMPT_TIMEOUT",
	"db.dsn":                    "LINGUAFORGE_DB",
}

// Load reads path, or ./linguaforge.yaml when path is empty and the file
// exists, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	keys, err := setDefaults(v, Default())
	if err != nil {
		return nil, err
	}
	if err := bindEnv(v, keys); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(defaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Fall back to the vendor variables when no provider was configured.
	if !providerConfigured(v) && cfg.LLM.Validate() != nil {
		if found, ok := llm.DiscoverConfig(); ok {
			found.Retry = cfg.LLM.Retry
			found.RatePerMinute = cfg.LLM.RatePerMinute
			cfg.LLM = found
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func providerConfigured(v *viper.Viper) bool {
	if v.InConfig("llm.provider") {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_LLM_PROVIDER")
	return ok
}

// setDefaults registers every leaf of defaults and returns the leaf keys.
func setDefaults(v *viper.Viper, defaults Config) ([]string, error) {
	var tree map[string]any
	if err := mapstructure.Decode(defaults, &tree); err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var keys []string
	flatten("", tree, func(key string, val any) {
		v.SetDefault(key, val)
		keys = append(keys, key)
	})
	return keys, nil
}

// bindEnv binds each leaf key to LINGUAFORGE_<SECTION>_<FIELD> and its legacy
// alias. Only leaves are bound: a section key such as "db" must never read
// the environment, or LINGUAFORGE_DB would replace the whole section.
func bindEnv(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		names := []string{key, envName(key)}
		if alias, ok := legacyEnv[key]; ok {
			names = append(names, alias)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func flatten(prefix string, m map[string]any, set func(string, any)) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// Validate checks every section that does not depend on the command being
// run. Provider credentials are checked when a provider is built.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.DB.Driver == "postgres" && c.DB.DSN == "" {
		return errors.New("db.dsn is required for postgres")
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Analyzer.Validate(); err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	o := c.Generation.Orchestration
	if o.ModelTimeout <= 0 {
		return errors.New("generation.model_timeout must be positive")
	}
	if o.DefaultUnitCount < 1 || o.DefaultUnitCount > c.Generation.Limits.MaxUnitCount {
		return fmt.Errorf("generation.default_unit_count must be between 1 and %d, got %d",
			c.Generation.Limits.MaxUnitCount, o.DefaultUnitCount)
	}
	if o.HistoryDecay <= 0 || o.HistoryDecay > 1 {
		return fmt.Errorf("generation.history_decay must be in (0, 1], got %v", o.HistoryDecay)
	}
	if o.HistoryWindow < 1 {
		return errors.New("generation.history_window must be positive")
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be stdout or otlp, got %q", c.Tracing.Exporter)
	}
	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		return errors.New("redis.lock_ttl must be positive")
	}
	return nil
}
