package prompt

import (
	"encoding/json"
	"testing"

	"github.com/linguaforge/linguaforge/internal/content"
)

func TestBoundsFor(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		intent content.Intent
		units  int
		want   Bounds
	}{
		{content.IntentAssessment, 0, Bounds{MinLessons: 1, MaxLessons: 1, MinChallenges: 15, MaxChallenges: 15, MaxOptions: 4, RequireTopic: true}},
		{content.IntentAdaptive, 0, Bounds{MinLessons: 1, MaxLessons: 3, MinChallenges: 3, MaxChallenges: 10, MaxOptions: 4}},
		{content.IntentCurriculum, 4, Bounds{MinUnits: 4, MaxUnits: 4, MinLessons: 1, MaxLessons: 3, MinChallenges: 3, MaxChallenges: 10, MaxOptions: 4}},
	}
	for _, tt := range tests {
		if got := cfg.BoundsFor(tt.intent, tt.units); got != tt.want {
			t.Errorf("BoundsFor(%s) = %+v, want %+v", tt.intent, got, tt.want)
		}
	}
}

func TestOutputSchema_Shape(t *testing.T) {
	cfg := DefaultConfig()

	curriculum := OutputSchema(content.IntentCurriculum, cfg.BoundsFor(content.IntentCurriculum, 2))
	props := curriculum.Definition["properties"].(map[string]any)
	if _, ok := props["units"]; !ok {
		t.Fatal("curriculum contract must have units")
	}

	assess := OutputSchema(content.IntentAssessment, cfg.BoundsFor(content.IntentAssessment, 0))
	lessons := assess.Definition["properties"].(map[string]any)["lessons"].(map[string]any)
	if lessons["minItems"] != 1 || lessons["maxItems"] != 1 {
		t.Errorf("assessment lessons bounds = %v..%v", lessons["minItems"], lessons["maxItems"])
	}
	challenges := lessons["items"].(map[string]any)["properties"].(map[string]any)["challenges"].(map[string]any)
	if challenges["minItems"] != 15 || challenges["maxItems"] != 15 {
		t.Errorf("assessment challenge bounds = %v..%v", challenges["minItems"], challenges["maxItems"])
	}
	required := challenges["items"].(map[string]any)["required"].([]any)
	if len(required) != 4 || required[3] != "topic" {
		t.Errorf("assessment challenges must require a topic, got %v", required)
	}

	// Contracts must serialize; providers send them verbatim.
	if _, err := json.Marshal(curriculum.Definition); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestOutputSchema_NameEncodesBounds(t *testing.T) {
	cfg := DefaultConfig()
	a := OutputSchema(content.IntentCurriculum, cfg.BoundsFor(content.IntentCurriculum, 2))
	b := OutputSchema(content.IntentCurriculum, cfg.BoundsFor(content.IntentCurriculum, 3))
	if a.Name == b.Name {
		t.Fatalf("different bounds share schema name %q", a.Name)
	}
	c := OutputSchema(content.IntentCurriculum, cfg.BoundsFor(content.IntentCurriculum, 2))
	if a.Name != c.Name {
		t.Fatalf("equal bounds produced %q and %q", a.Name, c.Name)
	}
}
