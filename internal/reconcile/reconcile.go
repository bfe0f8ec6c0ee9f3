// Package reconcile 计算本方列表与外部列表的交集，并聚合每部影片的来源。
package reconcile

import (
	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/title"
)

// HomeSourceName 是本方列表在错误信息中的名字。
const HomeSourceName = "watchlist"

// Reconcile 以 MatchKey 做内连接：
// - home 为空：返回 EmptySourceError（“无法加载 watchlist”与“没有交集”是两种结果）
// - 所有外部列表都为空：返回 ErrNoExternalData
// - 交集为空：返回空报告与 nil（正常结果）
//
// 行顺序跟随 home；多条 home 记录共享同一 key 时只保留第一条。
func Reconcile(home domain.RecordSet, externals []domain.RecordSet) (domain.MatchReport, error) {
	if len(home) == 0 {
		return nil, &domain.EmptySourceError{Source: HomeSourceName}
	}

	groups := GroupExternals(externals)
	if groups.Len() == 0 {
		return nil, domain.ErrNoExternalData
	}

	out := domain.MatchReport{}
	emitted := make(map[domain.MatchKey]struct{}, len(home))
	for _, h := range home {
		k := title.Key(h.Name)
		if _, ok := emitted[k]; ok {
			continue
		}
		g, ok := groups.Get(k)
		if !ok {
			continue
		}
		emitted[k] = struct{}{}
		out = append(out, domain.MatchRow{
			WatchlistName: h.Name,
			Year:          h.Year,
			Sources:       g.Joined(),
			Lists:         append([]string(nil), g.Sources...),
			Key:           k,
		})
	}
	return out, nil
}
