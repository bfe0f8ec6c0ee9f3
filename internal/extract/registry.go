package extract

import (
	"fmt"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// Registry 是 extractor 的只读注册表（按页面形状索引）。
// 新增形状只需实现 Extractor 并注册，分页流程不需要分支。
type Registry struct {
	byShape map[domain.PageShape]Extractor
}

func NewRegistry(extractors ...Extractor) (Registry, error) {
	byShape := make(map[domain.PageShape]Extractor, len(extractors))
	for _, e := range extractors {
		if e == nil {
			return Registry{}, fmt.Errorf("extractor 不能为空")
		}
		s := e.Shape()
		if _, ok := byShape[s]; ok {
			return Registry{}, fmt.Errorf("重复的 extractor：%s", s)
		}
		byShape[s] = e
	}
	return Registry{byShape: byShape}, nil
}

// Default 返回内置的两种形状。
func Default() Registry {
	r, err := NewRegistry(Detail{}, Watchlist{})
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry) Get(s domain.PageShape) (Extractor, bool) {
	if r.byShape == nil {
		return nil, false
	}
	e, ok := r.byShape[s]
	return e, ok
}

// Extract 按形状分派；未注册的形状返回错误。
func (r Registry) Extract(s domain.PageShape, body []byte, label string) (Page, error) {
	e, ok := r.Get(s)
	if !ok {
		return Page{}, fmt.Errorf("未注册的页面形状：%s", s)
	}
	return e.Extract(body, label)
}
