// Package prompt turns a generation intent and its parameters into model
// instructions plus an explicit output contract.
package prompt

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/llm"
)

const systemPrompt = `You are a curriculum designer for a language-learning app. You write short multiple-choice exercises for adult learners.

Rules:
- Respond with a single JSON object that matches the output contract. No prose, no markdown, no code fences.
- Every challenge is either SELECT (pick the option that matches the prompt) or ASSIST (pick the option that completes or translates the phrase).
- Every challenge has between 2 and the allowed maximum of options, and exactly one option has "correct": true.
- Option texts within a challenge must all be different.
- Questions are self-contained and name the target language where it helps, e.g. "Which one of these is 'the apple'?".
- Tag every challenge with a topic from the topic list when one applies.
- Number units, lessons and challenges from 1 in the order a learner should meet them.`

// Params carries the per-request inputs. Which fields are required depends on
// the intent.
type Params struct {
	CourseTitle string
	Language    string

	// Topics is the topic vocabulary challenges are tagged from.
	Topics []string

	// Profile steers CURRICULUM generation.
	Profile *content.SkillProfile

	// UnitCount is the number of units a CURRICULUM request asks for.
	UnitCount int

	// LessonsPerUnit overrides Config.LessonsPerUnit when set.
	LessonsPerUnit int

	// History steers ADAPTIVE generation.
	History *assessment.PerformanceSummary

	// UnitTitle names the unit ADAPTIVE lessons are appended to.
	UnitTitle string

	// ExistingTitles lists sibling titles the model should not repeat.
	ExistingTitles []string
}

// Prompt is a ready-to-send request for one intent.
type Prompt struct {
	Intent      content.Intent
	System      string
	Instruction string
	Schema      *llm.Schema
	MaxTokens   int
	Temperature float64
}

// Request converts the prompt into a single-turn model request.
func (p *Prompt) Request() llm.Request {
	return llm.Request{
		System:      p.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: p.Instruction}},
		Schema:      p.Schema,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
}

// Builder builds prompts under one Config.
type Builder struct {
	cfg Config
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// Config returns the limits the builder was created with.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build returns the prompt for intent. Identical inputs give byte-identical
// output.
func (b *Builder) Build(intent content.Intent, p Params) (*Prompt, error) {
	if strings.TrimSpace(p.Language) == "" {
		return nil, &ConfigurationError{Field: "language", Reason: "required"}
	}

	var (
		body   string
		bounds Bounds
	)
	switch intent {
	case content.IntentAssessment:
		if len(p.Topics) == 0 {
			return nil, &ConfigurationError{Field: "topics", Reason: "assessment needs a topic vocabulary"}
		}
		bounds = b.cfg.BoundsFor(intent, 0)
		body = b.assessmentBody(p)
	case content.IntentCurriculum:
		if p.Profile == nil {
			return nil, &ConfigurationError{Field: "profile", Reason: "required for curriculum generation"}
		}
		if p.UnitCount < 1 || p.UnitCount > b.cfg.MaxUnitCount {
			return nil, &ConfigurationError{
				Field:  "unitCount",
				Reason: fmt.Sprintf("must be between 1 and %d, got %d", b.cfg.MaxUnitCount, p.UnitCount),
			}
		}
		if p.LessonsPerUnit < 0 || p.LessonsPerUnit > b.cfg.LessonsPerUnit {
			return nil, &ConfigurationError{
				Field:  "lessonsPerUnit",
				Reason: fmt.Sprintf("must be between 1 and %d, got %d", b.cfg.LessonsPerUnit, p.LessonsPerUnit),
			}
		}
		bounds = b.cfg.BoundsFor(intent, p.UnitCount)
		if p.LessonsPerUnit > 0 {
			bounds.MaxLessons = p.LessonsPerUnit
		}
		body = b.curriculumBody(p)
	case content.IntentAdaptive:
		if p.History == nil || p.History.Attempts == 0 {
			return nil, &ConfigurationError{Field: "history", Reason: "adaptive generation needs recent outcomes"}
		}
		bounds = b.cfg.BoundsFor(intent, 0)
		body = b.adaptiveBody(p)
	default:
		return nil, &ConfigurationError{Field: "intent", Reason: fmt.Sprintf("unknown intent %q", intent)}
	}

	schema := OutputSchema(intent, bounds)
	contract, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal output contract: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(body)
	writeTopics(&sb, p.Topics)
	if len(p.ExistingTitles) > 0 {
		fmt.Fprintf(&sb, "\nAlready in the course (do not repeat): %s\n", strings.Join(p.ExistingTitles, "; "))
	}
	sb.WriteString("\nOutput contract (JSON Schema):\n")
	sb.Write(contract)
	sb.WriteString("\n\nReturn only the JSON object.")

	return &Prompt{
		Intent:      intent,
		System:      systemPrompt,
		Instruction: sb.String(),
		Schema:      schema,
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	}, nil
}

func (b *Builder) assessmentBody(p Params) string {
	var sb strings.Builder
	writeHeader(&sb, "Diagnostic assessment", p)
	fmt.Fprintf(&sb, "Create one lesson with exactly %d challenges.\n", b.cfg.AssessmentSize)
	sb.WriteString("Order the challenges from basic to advanced difficulty so the results place the learner as beginner, intermediate or advanced.\n")
	sb.WriteString("Spread the challenges across as many topics from the topic list as possible.\n")
	sb.WriteString("Every challenge must carry a topic tag.\n")
	return sb.String()
}

func (b *Builder) curriculumBody(p Params) string {
	lessons := p.LessonsPerUnit
	if lessons == 0 {
		lessons = b.cfg.LessonsPerUnit
	}

	var sb strings.Builder
	writeHeader(&sb, "Personalized curriculum", p)
	fmt.Fprintf(&sb, "Learner level: %s", p.Profile.Level)
	if p.Profile.Score > 0 {
		fmt.Fprintf(&sb, " (assessment score %d/100)", p.Profile.Score)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Difficulty: %s\n", difficultyFor(p.Profile.Level))
	fmt.Fprintf(&sb, "Create exactly %d units with up to %d lessons each and %d to %d challenges per lesson.\n",
		p.UnitCount, lessons, b.cfg.MinChallenges, b.cfg.MaxChallenges)

	sb.WriteString("\nFocus areas, weakest first:\n")
	if len(p.Profile.WeakAreas) == 0 {
		sb.WriteString("None. Balance the units across the topic list.\n")
	} else {
		for i, topic := range p.Profile.WeakAreas {
			if i < p.UnitCount {
				fmt.Fprintf(&sb, "%d. %s (unit %d focus)\n", i+1, topic, i+1)
			} else {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, topic)
			}
		}
	}

	sb.WriteString("\nStrengths to review or extend:\n")
	if len(p.Profile.Strengths) == 0 {
		sb.WriteString("None\n")
	} else {
		for _, topic := range p.Profile.Strengths {
			fmt.Fprintf(&sb, "- %s\n", topic)
		}
	}
	return sb.String()
}

func (b *Builder) adaptiveBody(p Params) string {
	h := p.History

	var sb strings.Builder
	writeHeader(&sb, "Supplementary lessons", p)
	if p.UnitTitle != "" {
		fmt.Fprintf(&sb, "Unit: %s\n", p.UnitTitle)
	}
	fmt.Fprintf(&sb, "Recent accuracy (recency weighted): %.0f%% over %d attempts\n", h.WeightedAccuracy*100, h.Attempts)
	fmt.Fprintf(&sb, "Create between 1 and %d lessons with %d to %d challenges each.\n",
		b.cfg.AdaptiveLessons, b.cfg.MinChallenges, b.cfg.MaxChallenges)

	focus := h.WeakestTopics(b.cfg.FocusTopics)
	sb.WriteString("\nFocus topics, weakest first:\n")
	if len(focus) == 0 {
		sb.WriteString("None. Reinforce the unit's material at a slightly higher difficulty.\n")
	}
	for i, trend := range h.Topics[:len(focus)] {
		fmt.Fprintf(&sb, "%d. %s: %.0f%% over %d attempts\n", i+1, trend.Topic, trend.WeightedAccuracy*100, trend.Attempts)
		for _, q := range trend.RecentMisses {
			fmt.Fprintf(&sb, "   missed: %s\n", q)
		}
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, task string, p Params) {
	fmt.Fprintf(sb, "Task: %s\n", task)
	fmt.Fprintf(sb, "Target language: %s\n", p.Language)
	if p.CourseTitle != "" {
		fmt.Fprintf(sb, "Course: %s\n", p.CourseTitle)
	}
}

func writeTopics(sb *strings.Builder, topics []string) {
	if len(topics) == 0 {
		return
	}
	sorted := slices.Clone(topics)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	fmt.Fprintf(sb, "\nTopic list: %s\n", strings.Join(sorted, ", "))
}

func difficultyFor(level content.Level) string {
	switch level {
	case content.LevelAdvanced:
		return "longer sentences, past and future tenses, idioms"
	case content.LevelIntermediate:
		return "short sentences, common verbs in the present tense, everyday situations"
	default:
		return "single words and fixed phrases with pictures and audio"
	}
}
