package reconcile

import (
	"github.com/antzucaro/matchr"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/title"
)

// DefaultSuggestThreshold 是 Jaro-Winkler 相似度下限。
const DefaultSuggestThreshold = 0.92

// Suggest 为没有精确匹配的本方标题找出最相似的外部标题（只用于提示，不进入报告主体）。
// 只比较双方都未匹配的 key；每个本方 key 至多一条建议。
func Suggest(home domain.RecordSet, externals []domain.RecordSet, report domain.MatchReport, threshold float64) []domain.Suggestion {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSuggestThreshold
	}

	matched := make(map[domain.MatchKey]struct{}, len(report))
	for _, r := range report {
		matched[r.Key] = struct{}{}
	}

	groups := GroupExternals(externals)
	type cand struct {
		key domain.MatchKey
		grp *Group
	}
	var pool []cand
	groups.Each(func(k domain.MatchKey, g *Group) bool {
		if _, ok := matched[k]; !ok {
			pool = append(pool, cand{key: k, grp: g})
		}
		return true
	})
	if len(pool) == 0 {
		return nil
	}

	var out []domain.Suggestion
	seen := make(map[domain.MatchKey]struct{}, len(home))
	for _, h := range home {
		hk := title.Key(h.Name)
		if hk == "" {
			continue
		}
		if _, ok := matched[hk]; ok {
			continue
		}
		if _, ok := seen[hk]; ok {
			continue
		}
		seen[hk] = struct{}{}

		best, bestScore := -1, 0.0
		for i, c := range pool {
			s := matchr.JaroWinkler(string(hk), string(c.key), false)
			if s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}
		out = append(out, domain.Suggestion{
			WatchlistName: h.Name,
			Candidate:     pool[best].grp.CanonicalName,
			Sources:       pool[best].grp.Joined(),
			Score:         bestScore,
		})
	}
	return out
}
