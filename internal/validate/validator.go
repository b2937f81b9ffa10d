// Package validate turns raw model output into a typed, normalized
// curriculum fragment, or explains precisely why it cannot.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/llm"
	"github.com/linguaforge/linguaforge/internal/prompt"
)

// Validator decodes, checks and normalizes model output. It is safe for
// concurrent use; compiled contracts are cached by schema name.
type Validator struct {
	limits prompt.Config
	rules  []Rule
	cache  schemaCache
}

// New creates a Validator. limits supply the default contract when the
// caller passes none; vocab feeds the topic rule.
func New(limits prompt.Config, vocab *assessment.Vocabulary) *Validator {
	return NewWithRules(limits, DefaultRules(vocab)...)
}

// NewWithRules creates a Validator with a custom semantic rule chain.
func NewWithRules(limits prompt.Config, rules ...Rule) *Validator {
	return &Validator{limits: limits, rules: rules}
}

// wire is the decoded response body. Unknown fields are dropped.
type wire struct {
	Units   []content.UnitDraft   `json:"units"`
	Lessons []content.LessonDraft `json:"lessons"`
}

// Validate checks raw against contract and the semantic rules and returns a
// normalized fragment. A nil contract falls back to the widest contract the
// configured limits allow for intent.
//
// Errors are *MalformedOutputError, *SchemaViolationError or
// *SemanticViolationError.
func (v *Validator) Validate(intent content.Intent, contract *llm.Schema, raw []byte) (*content.Fragment, error) {
	if contract == nil {
		b := v.limits.BoundsFor(intent, v.limits.MaxUnitCount)
		if intent == content.IntentCurriculum {
			b.MinUnits = 1
		}
		contract = prompt.OutputSchema(intent, b)
	}

	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	compiled, err := v.cache.get(contract)
	if err != nil {
		return nil, fmt.Errorf("output contract %s: %w", contract.Name, err)
	}
	if err := checkSchema(compiled, obj); err != nil {
		return nil, err
	}

	var w wire
	if err := json.NewDecoder(bytes.NewReader(obj)).Decode(&w); err != nil {
		return nil, &MalformedOutputError{Snippet: snippet(string(obj)), Err: err}
	}

	frag := &content.Fragment{Intent: intent}
	if intent == content.IntentCurriculum {
		frag.Units = w.Units
	} else {
		frag.Lessons = w.Lessons
	}

	for _, r := range v.rules {
		if verr := r.Check(frag); verr != nil {
			return nil, verr
		}
	}

	normalize(frag)
	return frag, nil
}

// normalize trims text, canonicalizes tags and renumbers siblings 1..n.
func normalize(f *content.Fragment) {
	sortByOrder(f.Units, func(u content.UnitDraft) int { return u.Order })
	for i := range f.Units {
		u := &f.Units[i]
		u.Order = i + 1
		u.Title = strings.TrimSpace(u.Title)
		u.Description = strings.TrimSpace(u.Description)
		normalizeLessons(u.Lessons)
	}
	normalizeLessons(f.Lessons)
}

func normalizeLessons(lessons []content.LessonDraft) {
	sortByOrder(lessons, func(l content.LessonDraft) int { return l.Order })
	for i := range lessons {
		l := &lessons[i]
		l.Order = i + 1
		l.Title = strings.TrimSpace(l.Title)

		sortByOrder(l.Challenges, func(c content.ChallengeDraft) int { return c.Order })
		for k := range l.Challenges {
			c := &l.Challenges[k]
			c.Order = k + 1
			c.Type = normalizeType(c.Type)
			c.Question = strings.TrimSpace(c.Question)
			c.Topic = content.NormalizeTopic(c.Topic)
			for m := range c.Options {
				o := &c.Options[m]
				o.Text = strings.TrimSpace(o.Text)
				o.ImageSrc = strings.TrimSpace(o.ImageSrc)
				o.AudioSrc = strings.TrimSpace(o.AudioSrc)
			}
		}
	}
}

// sortByOrder stable-sorts s by proposed order. An element without an order
// sorts as if its order were its array position.
func sortByOrder[T any](s []T, order func(T) int) {
	type keyed struct {
		key int
		v   T
	}
	tmp := make([]keyed, len(s))
	for i, v := range s {
		k := order(v)
		if k <= 0 {
			k = i + 1
		}
		tmp[i] = keyed{k, v}
	}
	slices.SortStableFunc(tmp, func(a, b keyed) int { return a.key - b.key })
	for i := range tmp {
		s[i] = tmp[i].v
	}
}
