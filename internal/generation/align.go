package generation

import (
	"cmp"
	"slices"

	"github.com/linguaforge/linguaforge/internal/content"
)

// alignToProfile moves units that practise a weak area to the front,
// weakest area first, keeping the model's order otherwise. Orders are
// renumbered 1..n.
func alignToProfile(units []content.UnitDraft, profile *content.SkillProfile) {
	if profile == nil || len(profile.WeakAreas) == 0 {
		return
	}
	rank := make(map[string]int, len(profile.WeakAreas))
	for i, area := range profile.WeakAreas {
		topic := content.NormalizeTopic(area)
		if _, ok := rank[topic]; !ok {
			rank[topic] = i
		}
	}
	key := func(u content.UnitDraft) int {
		best := len(profile.WeakAreas)
		for topic := range u.Topics() {
			if r, ok := rank[topic]; ok && r < best {
				best = r
			}
		}
		return best
	}

	type keyed struct {
		k int
		u content.UnitDraft
	}
	tmp := make([]keyed, len(units))
	for i := range units {
		tmp[i] = keyed{key(units[i]), units[i]}
	}
	slices.SortStableFunc(tmp, func(a, b keyed) int { return cmp.Compare(a.k, b.k) })
	for i := range tmp {
		units[i] = tmp[i].u
		units[i].Order = i + 1
	}
}
