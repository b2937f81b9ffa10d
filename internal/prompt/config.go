package prompt

import "fmt"

// Config holds the generation limits shared by the prompter, the validator
// contract and the orchestrator.
type Config struct {
	// AssessmentSize is the exact number of challenges in a diagnostic lesson.
	AssessmentSize int `mapstructure:"assessment_size"`

	// MaxUnitCount bounds the units one CURRICULUM request may ask for.
	MaxUnitCount int `mapstructure:"max_unit_count"`

	// LessonsPerUnit is the default and maximum lesson count per unit.
	LessonsPerUnit int `mapstructure:"lessons_per_unit"`

	// AdaptiveLessons is the most lessons one ADAPTIVE request produces.
	AdaptiveLessons int `mapstructure:"adaptive_lessons"`

	MinChallenges int `mapstructure:"min_challenges"`
	MaxChallenges int `mapstructure:"max_challenges"`
	MaxOptions    int `mapstructure:"max_options"`

	// FocusTopics caps how many weak topics an ADAPTIVE prompt targets.
	FocusTopics int `mapstructure:"focus_topics"`

	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultConfig returns the standard generation limits.
func DefaultConfig() Config {
	return Config{
		AssessmentSize:  15,
		MaxUnitCount:    10,
		LessonsPerUnit:  3,
		AdaptiveLessons: 3,
		MinChallenges:   3,
		MaxChallenges:   10,
		MaxOptions:      4,
		FocusTopics:     3,
		MaxTokens:       8192,
		Temperature:     0.7,
	}
}

// Validate reports the first out-of-range limit as a ConfigurationError.
func (c Config) Validate() error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"assessment_size", c.AssessmentSize > 0},
		{"max_unit_count", c.MaxUnitCount > 0},
		{"lessons_per_unit", c.LessonsPerUnit > 0},
		{"adaptive_lessons", c.AdaptiveLessons > 0},
		{"min_challenges", c.MinChallenges > 0},
		{"max_challenges", c.MaxChallenges >= c.MinChallenges},
		{"max_options", c.MaxOptions >= 2},
		{"max_tokens", c.MaxTokens > 0},
		{"temperature", c.Temperature >= 0 && c.Temperature <= 1},
	}
	for _, chk := range checks {
		if !chk.ok {
			return &ConfigurationError{Field: "generation." + chk.field, Reason: "out of range"}
		}
	}
	return nil
}

// ConfigurationError reports a missing or invalid generation parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
