package content

import "strings"

// Draft types mirror the JSON interchange shape the model produces. They carry
// no ids; the persister assigns those.

type UnitDraft struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Order       int           `json:"order,omitempty"`
	Lessons     []LessonDraft `json:"lessons"`
}

type LessonDraft struct {
	Title      string           `json:"title"`
	Order      int              `json:"order,omitempty"`
	Challenges []ChallengeDraft `json:"challenges"`
}

type ChallengeDraft struct {
	Type     ChallengeType `json:"type"`
	Question string        `json:"question"`
	Order    int           `json:"order,omitempty"`
	Topic    string        `json:"topic,omitempty"`
	Options  []OptionDraft `json:"options"`
}

type OptionDraft struct {
	Text     string `json:"text"`
	Correct  bool   `json:"correct"`
	ImageSrc string `json:"imageSrc,omitempty"`
	AudioSrc string `json:"audioSrc,omitempty"`
}

// Fragment is a validated, normalized unit of generated content.
// CURRICULUM fragments fill Units; ASSESSMENT fragments hold exactly one
// lesson in Lessons; ADAPTIVE fragments fill Lessons.
type Fragment struct {
	Intent  Intent        `json:"intent"`
	Units   []UnitDraft   `json:"units,omitempty"`
	Lessons []LessonDraft `json:"lessons,omitempty"`
}

// LessonCount returns the number of lessons in the fragment.
func (f *Fragment) LessonCount() int {
	n := len(f.Lessons)
	for _, u := range f.Units {
		n += len(u.Lessons)
	}
	return n
}

// ChallengeCount returns the number of challenges in the fragment.
func (f *Fragment) ChallengeCount() int {
	n := 0
	count := func(lessons []LessonDraft) {
		for _, l := range lessons {
			n += len(l.Challenges)
		}
	}
	count(f.Lessons)
	for _, u := range f.Units {
		count(u.Lessons)
	}
	return n
}

// Topics returns the set of normalized topic tags used by the unit's
// challenges.
func (u UnitDraft) Topics() map[string]bool {
	out := make(map[string]bool)
	for _, l := range u.Lessons {
		for _, c := range l.Challenges {
			if t := NormalizeTopic(c.Topic); t != "" {
				out[t] = true
			}
		}
	}
	return out
}

// NormalizeTopic folds a topic tag to its canonical lower-case form.
func NormalizeTopic(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
