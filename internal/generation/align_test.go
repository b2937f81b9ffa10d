package generation

import (
	"testing"

	"github.com/linguaforge/linguaforge/internal/content"
)

func unitWith(title string, topics ...string) content.UnitDraft {
	var challenges []content.ChallengeDraft
	for _, t := range topics {
		challenges = append(challenges, content.ChallengeDraft{Topic: t})
	}
	return content.UnitDraft{Title: title, Lessons: []content.LessonDraft{{Challenges: challenges}}}
}

func TestAlignToProfile(t *testing.T) {
	tests := []struct {
		name    string
		units   []content.UnitDraft
		profile *content.SkillProfile
		want    []string
	}{
		{
			name:    "weakest area first",
			units:   []content.UnitDraft{unitWith("a", "colors"), unitWith("b", "food"), unitWith("c", "verbs")},
			profile: &content.SkillProfile{WeakAreas: []string{"verbs", "food"}},
			want:    []string{"c", "b", "a"},
		},
		{
			name:    "unit covering several areas ranks by its weakest",
			units:   []content.UnitDraft{unitWith("a", "food"), unitWith("b", "colors", "verbs")},
			profile: &content.SkillProfile{WeakAreas: []string{"verbs", "food"}},
			want:    []string{"b", "a"},
		},
		{
			name:    "stable for ties",
			units:   []content.UnitDraft{unitWith("a", "colors"), unitWith("b", "numbers"), unitWith("c", "food")},
			profile: &content.SkillProfile{WeakAreas: []string{"food"}},
			want:    []string{"c", "a", "b"},
		},
		{
			name:    "weak areas match regardless of case and spacing",
			units:   []content.UnitDraft{unitWith("a", "food"), unitWith("b", "colors"), unitWith("c", "Verbs ")},
			profile: &content.SkillProfile{WeakAreas: []string{" Colors ", "VERBS"}},
			want:    []string{"b", "c", "a"},
		},
		{
			name:    "no weak areas keeps order",
			units:   []content.UnitDraft{unitWith("a", "food"), unitWith("b", "verbs")},
			profile: &content.SkillProfile{},
			want:    []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alignToProfile(tt.units, tt.profile)
			for i, u := range tt.units {
				if u.Title != tt.want[i] {
					t.Fatalf("position %d = %q, want %q", i, u.Title, tt.want[i])
				}
			}
			if len(tt.profile.WeakAreas) > 0 {
				for i, u := range tt.units {
					if u.Order != i+1 {
						t.Errorf("unit %q order = %d, want %d", u.Title, u.Order, i+1)
					}
				}
			}
		})
	}
}
