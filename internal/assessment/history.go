package assessment

import (
	"cmp"
	"slices"

	"github.com/linguaforge/linguaforge/internal/content"
)

// DefaultDecay is the per-step weight applied to older outcomes.
const DefaultDecay = 0.8

// maxRecentMisses caps the missed questions kept per topic.
const maxRecentMisses = 3

// TopicTrend is one topic's recency-weighted performance.
type TopicTrend struct {
	Topic            string
	Attempts         int
	WeightedAccuracy float64

	// RecentMisses holds the most recently missed questions, newest first.
	RecentMisses []string
}

// PerformanceSummary condenses a learner's rolling history.
type PerformanceSummary struct {
	Attempts         int
	WeightedAccuracy float64

	// Topics is ordered weakest first.
	Topics []TopicTrend
}

// WeakestTopics returns up to n topic names, weakest first.
func (s PerformanceSummary) WeakestTopics(n int) []string {
	var out []string
	for _, t := range s.Topics {
		if len(out) == n {
			break
		}
		out = append(out, t.Topic)
	}
	return out
}

// Recent returns the n newest outcomes by CompletedAt, oldest first. history
// is not modified.
func Recent(history []content.ChallengeOutcome, n int) []content.ChallengeOutcome {
	ordered := byCompletion(history)
	if n >= 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

func byCompletion(history []content.ChallengeOutcome) []content.ChallengeOutcome {
	ordered := slices.Clone(history)
	slices.SortStableFunc(ordered, func(a, b content.ChallengeOutcome) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	return ordered
}

// Summarize weights each outcome by decay^k, where k is its distance from the
// newest outcome, so recent results dominate. Outcomes are ordered by
// CompletedAt; decay outside (0, 1] is treated as 1.
func Summarize(history []content.ChallengeOutcome, decay float64, extractor TopicExtractor) PerformanceSummary {
	if decay <= 0 || decay > 1 {
		decay = 1
	}

	ordered := byCompletion(history)

	type acc struct {
		trend  TopicTrend
		weight float64
		hit    float64
	}
	byTopic := make(map[string]*acc)
	var totalWeight, totalHit float64

	w := 1.0
	for i := len(ordered) - 1; i >= 0; i-- {
		o := ordered[i]
		totalWeight += w
		if o.Correct {
			totalHit += w
		}

		topic := o.Topic
		if topic == "" && extractor != nil {
			topic, _ = extractor.Extract(o.Question)
		}
		if topic != "" {
			a, ok := byTopic[topic]
			if !ok {
				a = &acc{trend: TopicTrend{Topic: topic}}
				byTopic[topic] = a
			}
			a.trend.Attempts++
			a.weight += w
			if o.Correct {
				a.hit += w
			} else if o.Question != "" && len(a.trend.RecentMisses) < maxRecentMisses {
				a.trend.RecentMisses = append(a.trend.RecentMisses, o.Question)
			}
		}
		w *= decay
	}

	summary := PerformanceSummary{Attempts: len(ordered)}
	if totalWeight > 0 {
		summary.WeightedAccuracy = totalHit / totalWeight
	}
	for _, a := range byTopic {
		a.trend.WeightedAccuracy = a.hit / a.weight
		summary.Topics = append(summary.Topics, a.trend)
	}
	slices.SortFunc(summary.Topics, func(x, y TopicTrend) int {
		if c := cmp.Compare(x.WeightedAccuracy, y.WeightedAccuracy); c != 0 {
			return c
		}
		return cmp.Compare(x.Topic, y.Topic)
	})
	return summary
}
