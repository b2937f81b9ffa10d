package assessment

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/linguaforge/linguaforge/internal/content"
)

// Config holds the band boundaries and list caps used when scoring.
type Config struct {
	// IntermediateMin is the lowest score in the intermediate band.
	IntermediateMin int `mapstructure:"intermediate_min"`

	// AdvancedMin is the lowest score in the advanced band.
	AdvancedMin int `mapstructure:"advanced_min"`

	// StrengthMin is the minimum accuracy (inclusive) for a strength.
	StrengthMin float64 `mapstructure:"strength_min"`

	// WeakBelow is the accuracy a topic must fall strictly below to be
	// reported as a weak area.
	WeakBelow float64 `mapstructure:"weak_below"`

	MaxStrengths int `mapstructure:"max_strengths"`
	MaxWeak      int `mapstructure:"max_weak"`
}

// DefaultConfig returns the standard scoring bands.
func DefaultConfig() Config {
	return Config{
		IntermediateMin: 40,
		AdvancedMin:     75,
		StrengthMin:     0.75,
		WeakBelow:       0.5,
		MaxStrengths:    5,
		MaxWeak:         5,
	}
}

// Validate checks that the bands are ordered and within range.
func (c Config) Validate() error {
	if c.IntermediateMin < 0 || c.AdvancedMin > 100 || c.IntermediateMin >= c.AdvancedMin {
		return fmt.Errorf("analyzer bands must satisfy 0 <= intermediate_min < advanced_min <= 100, got %d and %d",
			c.IntermediateMin, c.AdvancedMin)
	}
	if c.WeakBelow < 0 || c.StrengthMin > 1 || c.WeakBelow > c.StrengthMin {
		return fmt.Errorf("analyzer thresholds must satisfy 0 <= weak_below <= strength_min <= 1, got %.2f and %.2f",
			c.WeakBelow, c.StrengthMin)
	}
	if c.MaxStrengths < 0 || c.MaxWeak < 0 {
		return fmt.Errorf("analyzer caps must not be negative")
	}
	return nil
}

// Analyzer turns challenge outcomes into a SkillProfile.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	cfg       Config
	extractor TopicExtractor
}

// NewAnalyzer creates an Analyzer. The extractor is consulted for outcomes
// that carry no stored topic tag; it may be nil.
func NewAnalyzer(cfg Config, extractor TopicExtractor) *Analyzer {
	return &Analyzer{cfg: cfg, extractor: extractor}
}

// Analyze scores the outcomes and ranks topics. Outcomes whose topic cannot be
// resolved count toward the score but are left out of the topic ranking.
func (a *Analyzer) Analyze(outcomes []content.ChallengeOutcome) (*content.SkillProfile, error) {
	if len(outcomes) == 0 {
		return nil, &InsufficientDataError{Reason: "no challenge outcomes recorded"}
	}

	correct := lo.CountBy(outcomes, func(o content.ChallengeOutcome) bool { return o.Correct })
	score := Score(correct, len(outcomes))

	stats := a.topicStats(outcomes)

	return &content.SkillProfile{
		Level:     a.Level(score),
		Score:     score,
		Strengths: a.strengths(stats),
		WeakAreas: a.weakAreas(stats),
		Topics:    stats,
	}, nil
}

// Level maps a score to its band. A score equal to a band's lower bound
// belongs to that band.
func (a *Analyzer) Level(score int) content.Level {
	switch {
	case score >= a.cfg.AdvancedMin:
		return content.LevelAdvanced
	case score >= a.cfg.IntermediateMin:
		return content.LevelIntermediate
	default:
		return content.LevelBeginner
	}
}

// Score returns round(correct / total * 100), rounding half away from zero.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// resolveTopic returns the stored tag or the extractor's guess.
func (a *Analyzer) resolveTopic(o content.ChallengeOutcome) string {
	if o.Topic != "" {
		return o.Topic
	}
	if a.extractor == nil || o.Question == "" {
		return ""
	}
	if topic, ok := a.extractor.Extract(o.Question); ok {
		return topic
	}
	return ""
}

// topicStats groups tagged outcomes by topic, ordered by topic name.
func (a *Analyzer) topicStats(outcomes []content.ChallengeOutcome) []content.TopicStat {
	tagged := lo.Filter(outcomes, func(o content.ChallengeOutcome, _ int) bool {
		return a.resolveTopic(o) != ""
	})
	groups := lo.GroupBy(tagged, a.resolveTopic)

	topics := lo.Keys(groups)
	slices.Sort(topics)

	stats := make([]content.TopicStat, 0, len(topics))
	for _, topic := range topics {
		group := groups[topic]
		st := content.TopicStat{Topic: topic, Attempts: len(group)}
		var spent time.Duration
		for _, o := range group {
			if o.Correct {
				st.Correct++
			}
			spent += o.TimeSpent
		}
		st.Accuracy = float64(st.Correct) / float64(st.Attempts)
		st.AvgTimeSpent = spent / time.Duration(st.Attempts)
		stats = append(stats, st)
	}
	return stats
}

func (a *Analyzer) strengths(stats []content.TopicStat) []string {
	picked := lo.Filter(stats, func(s content.TopicStat, _ int) bool {
		return s.Accuracy >= a.cfg.StrengthMin
	})
	slices.SortFunc(picked, func(x, y content.TopicStat) int {
		if c := cmp.Compare(y.Accuracy, x.Accuracy); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Attempts, x.Attempts); c != 0 {
			return c
		}
		return cmp.Compare(x.Topic, y.Topic)
	})
	return topicNames(picked, a.cfg.MaxStrengths)
}

func (a *Analyzer) weakAreas(stats []content.TopicStat) []string {
	picked := lo.Filter(stats, func(s content.TopicStat, _ int) bool {
		return s.Accuracy < a.cfg.WeakBelow
	})
	slices.SortFunc(picked, func(x, y content.TopicStat) int {
		if c := cmp.Compare(x.Accuracy, y.Accuracy); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Attempts, x.Attempts); c != 0 {
			return c
		}
		return cmp.Compare(x.Topic, y.Topic)
	})
	return topicNames(picked, a.cfg.MaxWeak)
}

func topicNames(stats []content.TopicStat, limit int) []string {
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return lo.Map(stats, func(s content.TopicStat, _ int) string { return s.Topic })
}
