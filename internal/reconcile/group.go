package reconcile

import (
	"strings"

	om "github.com/wk8/go-ordered-map/v2"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/title"
)

// SourceSeparator 是报告中多个来源之间的分隔符。
const SourceSeparator = ", "

// Group 是同一 MatchKey 在所有外部列表中的聚合。
type Group struct {
	// CanonicalName 是该 key 第一次出现时的原始标题。
	CanonicalName string
	// Sources 去重且保持首次出现顺序。
	Sources []string

	seen map[string]struct{}
}

func (g *Group) add(source string) {
	if _, ok := g.seen[source]; ok {
		return
	}
	g.seen[source] = struct{}{}
	g.Sources = append(g.Sources, source)
}

// Joined 返回以 ", " 拼接的来源列表。
func (g *Group) Joined() string { return strings.Join(g.Sources, SourceSeparator) }

// ExternalGroup 按 MatchKey 聚合所有外部记录，key 的迭代顺序即首次出现顺序。
// 构建完成后只读。
type ExternalGroup struct {
	m *om.OrderedMap[domain.MatchKey, *Group]
}

// GroupExternals 按顺序拼接所有外部记录集并按 MatchKey 分组。
func GroupExternals(externals []domain.RecordSet) ExternalGroup {
	m := om.New[domain.MatchKey, *Group]()
	for _, rs := range externals {
		for _, r := range rs {
			k := title.Key(r.Name)
			if k == "" {
				continue
			}
			g, ok := m.Get(k)
			if !ok {
				g = &Group{CanonicalName: r.Name, seen: map[string]struct{}{}}
				m.Set(k, g)
			}
			g.add(r.Source)
		}
	}
	return ExternalGroup{m: m}
}

// Len 返回不同 MatchKey 的数量。
func (g ExternalGroup) Len() int {
	if g.m == nil {
		return 0
	}
	return g.m.Len()
}

func (g ExternalGroup) Get(k domain.MatchKey) (*Group, bool) {
	if g.m == nil {
		return nil, false
	}
	return g.m.Get(k)
}

// Each 按首次出现顺序遍历分组；fn 返回 false 时停止。
func (g ExternalGroup) Each(fn func(k domain.MatchKey, grp *Group) bool) {
	if g.m == nil {
		return
	}
	for p := g.m.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}
