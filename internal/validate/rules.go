package validate

import (
	"fmt"
	"strings"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
)

// Rule is one semantic check over a decoded fragment. Rules see the content
// before normalization. Implementations must be safe for concurrent use.
type Rule interface {
	// Name identifies the rule in errors and logs, e.g. "single-correct".
	Name() string

	// Check returns nil if the fragment passes.
	Check(f *content.Fragment) *SemanticViolationError
}

// DefaultRules returns the standard rule chain. A nil vocab disables the
// topic check.
func DefaultRules(vocab *assessment.Vocabulary) []Rule {
	rules := []Rule{
		&TextRule{},
		&TypeRule{},
		&OptionRule{},
	}
	if vocab != nil {
		rules = append(rules, &TopicRule{Vocab: vocab})
	}
	return rules
}

// TextRule requires non-blank titles, questions and option texts.
type TextRule struct{}

func (r *TextRule) Name() string { return "non-empty-text" }

func (r *TextRule) Check(f *content.Fragment) *SemanticViolationError {
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }
	fail := func(path string) *SemanticViolationError {
		return &SemanticViolationError{Rule: r.Name(), Path: path, Reason: "text is blank"}
	}

	for i, u := range f.Units {
		if blank(u.Title) {
			return fail(fmt.Sprintf("/units/%d/title", i))
		}
	}
	return walkLessons(f, func(path string, l *content.LessonDraft) *SemanticViolationError {
		if blank(l.Title) {
			return fail(path + "/title")
		}
		for k, c := range l.Challenges {
			cp := fmt.Sprintf("%s/challenges/%d", path, k)
			if blank(c.Question) {
				return fail(cp + "/question")
			}
			for m, o := range c.Options {
				if blank(o.Text) {
					return fail(fmt.Sprintf("%s/options/%d/text", cp, m))
				}
			}
		}
		return nil
	})
}

// TypeRule requires a known challenge type, in any case.
type TypeRule struct{}

func (r *TypeRule) Name() string { return "challenge-type" }

func (r *TypeRule) Check(f *content.Fragment) *SemanticViolationError {
	return walkChallenges(f, func(path string, c *content.ChallengeDraft) *SemanticViolationError {
		if !normalizeType(c.Type).Valid() {
			return &SemanticViolationError{
				Rule:   r.Name(),
				Path:   path + "/type",
				Reason: fmt.Sprintf("unknown challenge type %q", c.Type),
			}
		}
		return nil
	})
}

// OptionRule requires exactly one correct option and distinct option texts.
type OptionRule struct{}

func (r *OptionRule) Name() string { return "options" }

func (r *OptionRule) Check(f *content.Fragment) *SemanticViolationError {
	return walkChallenges(f, func(path string, c *content.ChallengeDraft) *SemanticViolationError {
		correct := 0
		seen := make(map[string]int, len(c.Options))
		for i, o := range c.Options {
			if o.Correct {
				correct++
			}
			key := strings.ToLower(strings.TrimSpace(o.Text))
			if prev, dup := seen[key]; dup {
				return &SemanticViolationError{
					Rule:   r.Name(),
					Path:   fmt.Sprintf("%s/options/%d/text", path, i),
					Reason: fmt.Sprintf("duplicates option %d", prev),
				}
			}
			seen[key] = i
		}
		if correct != 1 {
			return &SemanticViolationError{
				Rule:   r.Name(),
				Path:   path + "/options",
				Reason: fmt.Sprintf("want exactly 1 correct option, got %d", correct),
			}
		}
		return nil
	})
}

// TopicRule requires topic tags, when present, to come from the vocabulary.
type TopicRule struct {
	Vocab *assessment.Vocabulary
}

func (r *TopicRule) Name() string { return "topic" }

func (r *TopicRule) Check(f *content.Fragment) *SemanticViolationError {
	return walkChallenges(f, func(path string, c *content.ChallengeDraft) *SemanticViolationError {
		topic := content.NormalizeTopic(c.Topic)
		if topic == "" || r.Vocab.Contains(topic) {
			return nil
		}
		return &SemanticViolationError{
			Rule:   r.Name(),
			Path:   path + "/topic",
			Reason: fmt.Sprintf("topic %q is not in the vocabulary", c.Topic),
		}
	})
}

// walkLessons visits every lesson in document order with its JSON pointer.
func walkLessons(f *content.Fragment, fn func(path string, l *content.LessonDraft) *SemanticViolationError) *SemanticViolationError {
	for i := range f.Units {
		for j := range f.Units[i].Lessons {
			if err := fn(fmt.Sprintf("/units/%d/lessons/%d", i, j), &f.Units[i].Lessons[j]); err != nil {
				return err
			}
		}
	}
	for j := range f.Lessons {
		if err := fn(fmt.Sprintf("/lessons/%d", j), &f.Lessons[j]); err != nil {
			return err
		}
	}
	return nil
}

// walkChallenges visits every challenge in document order with its JSON
// pointer.
func walkChallenges(f *content.Fragment, fn func(path string, c *content.ChallengeDraft) *SemanticViolationError) *SemanticViolationError {
	return walkLessons(f, func(lp string, l *content.LessonDraft) *SemanticViolationError {
		for k := range l.Challenges {
			if err := fn(fmt.Sprintf("%s/challenges/%d", lp, k), &l.Challenges[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func normalizeType(t content.ChallengeType) content.ChallengeType {
	return content.ChallengeType(strings.ToUpper(strings.TrimSpace(string(t))))
}
