package prompt

import (
	"fmt"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/llm"
)

// Bounds are the array limits one output contract enforces.
type Bounds struct {
	MinUnits, MaxUnits           int
	MinLessons, MaxLessons       int
	MinChallenges, MaxChallenges int
	MaxOptions                   int

	// RequireTopic makes the topic tag mandatory on every challenge.
	RequireTopic bool
}

// BoundsFor derives the contract limits for intent. unitCount only matters
// for CURRICULUM, where the reply must carry exactly that many units.
func (c Config) BoundsFor(intent content.Intent, unitCount int) Bounds {
	switch intent {
	case content.IntentAssessment:
		return Bounds{
			MinLessons: 1, MaxLessons: 1,
			MinChallenges: c.AssessmentSize, MaxChallenges: c.AssessmentSize,
			MaxOptions:   c.MaxOptions,
			RequireTopic: true,
		}
	case content.IntentAdaptive:
		return Bounds{
			MinLessons: 1, MaxLessons: c.AdaptiveLessons,
			MinChallenges: c.MinChallenges, MaxChallenges: c.MaxChallenges,
			MaxOptions: c.MaxOptions,
		}
	default:
		return Bounds{
			MinUnits: unitCount, MaxUnits: unitCount,
			MinLessons: 1, MaxLessons: c.LessonsPerUnit,
			MinChallenges: c.MinChallenges, MaxChallenges: c.MaxChallenges,
			MaxOptions: c.MaxOptions,
		}
	}
}

// OutputSchema builds the JSON Schema contract for intent. The schema name
// encodes the bounds, so equal names always describe equal schemas.
//
// CURRICULUM responses are {"units": [...]}; ASSESSMENT and ADAPTIVE
// responses are {"lessons": [...]}. order fields are optional and extra
// fields are tolerated.
func OutputSchema(intent content.Intent, b Bounds) *llm.Schema {
	lessons := map[string]any{
		"type":     "array",
		"minItems": b.MinLessons,
		"maxItems": b.MaxLessons,
		"items":    lessonSchema(b),
	}

	var root map[string]any
	var name, desc string
	switch intent {
	case content.IntentCurriculum:
		name = fmt.Sprintf("curriculum-u%d-%d-l%d-%d-c%d-%d-o%d",
			b.MinUnits, b.MaxUnits, b.MinLessons, b.MaxLessons, b.MinChallenges, b.MaxChallenges, b.MaxOptions)
		desc = "Course units, each with lessons of multiple-choice challenges"
		root = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"units": map[string]any{
					"type":     "array",
					"minItems": b.MinUnits,
					"maxItems": b.MaxUnits,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":       nonEmptyString("Unit title"),
							"description": map[string]any{"type": "string", "description": "One sentence on what the unit teaches"},
							"order":       orderSchema(),
							"lessons":     lessons,
						},
						"required": []any{"title", "description", "lessons"},
					},
				},
			},
			"required": []any{"units"},
		}
	default:
		prefix := "adaptive"
		desc = "Supplementary lessons of multiple-choice challenges"
		if intent == content.IntentAssessment {
			prefix = "assessment"
			desc = "A single diagnostic lesson of multiple-choice challenges"
		}
		name = fmt.Sprintf("%s-l%d-%d-c%d-%d-o%d",
			prefix, b.MinLessons, b.MaxLessons, b.MinChallenges, b.MaxChallenges, b.MaxOptions)
		if b.RequireTopic {
			name += "-t"
		}
		root = map[string]any{
			"type":       "object",
			"properties": map[string]any{"lessons": lessons},
			"required":   []any{"lessons"},
		}
	}

	return &llm.Schema{Name: name, Description: desc, Definition: root}
}

func lessonSchema(b Bounds) map[string]any {
	challengeRequired := []any{"type", "question", "options"}
	if b.RequireTopic {
		challengeRequired = append(challengeRequired, "topic")
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": nonEmptyString("Lesson title"),
			"order": orderSchema(),
			"challenges": map[string]any{
				"type":     "array",
				"minItems": b.MinChallenges,
				"maxItems": b.MaxChallenges,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "SELECT to pick the matching option, ASSIST to complete or translate a phrase",
						},
						"question": nonEmptyString("The prompt shown to the learner"),
						"order":    orderSchema(),
						"topic":    map[string]any{"type": "string", "description": "Topic tag from the vocabulary"},
						"options": map[string]any{
							"type":     "array",
							"minItems": 2,
							"maxItems": b.MaxOptions,
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"text":     nonEmptyString("Option text"),
									"correct":  map[string]any{"type": "boolean"},
									"imageSrc": map[string]any{"type": "string"},
									"audioSrc": map[string]any{"type": "string"},
								},
								"required": []any{"text", "correct"},
							},
							"description": "Answer options; exactly one has correct=true",
						},
					},
					"required": challengeRequired,
				},
			},
		},
		"required": []any{"title", "challenges"},
	}
}

func nonEmptyString(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

func orderSchema() map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "description": "Position among siblings, starting at 1"}
}
