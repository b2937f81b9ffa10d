package content

import (
	"fmt"
	"strings"
	"time"
)

// Level is the learner's coarse proficiency band.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelBeginner:
		return LevelBeginner, nil
	case LevelIntermediate:
		return LevelIntermediate, nil
	case LevelAdvanced:
		return LevelAdvanced, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// ChallengeOutcome is one learner's result on one challenge. Outcomes are
// owned by the progress tracker and only read here.
type ChallengeOutcome struct {
	ChallengeID int64         `json:"challengeId"`
	Topic       string        `json:"topic,omitempty"`
	Question    string        `json:"question,omitempty"`
	Correct     bool          `json:"correct"`
	TimeSpent   time.Duration `json:"timeSpent"`
	CompletedAt time.Time     `json:"completedAt"`
}

// TopicStat is the per-topic breakdown behind a profile.
type TopicStat struct {
	Topic        string        `json:"topic"`
	Attempts     int           `json:"attempts"`
	Correct      int           `json:"correct"`
	Accuracy     float64       `json:"accuracy"`
	AvgTimeSpent time.Duration `json:"avgTimeSpent"`
}

// SkillProfile is derived from outcomes and never persisted.
type SkillProfile struct {
	Level     Level       `json:"level"`
	Score     int         `json:"score"`
	Strengths []string    `json:"strengths"`
	WeakAreas []string    `json:"weakAreas"`
	Topics    []TopicStat `json:"topics,omitempty"`
}

// ProfileFor builds a synthetic profile for admin-driven generation where no
// learner outcomes exist: the requested topics become focus areas.
func ProfileFor(level Level, topics []string) *SkillProfile {
	return &SkillProfile{
		Level:     level,
		Strengths: []string{},
		WeakAreas: append([]string(nil), topics...),
	}
}
