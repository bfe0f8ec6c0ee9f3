package domain

import (
	"fmt"
	"strings"
)

// TitleRecord 是从某个来源抽取到的一条影片标题。
//
// 约束：Name 已 trim 且非空；Source 是人类可读的来源标签（列表名或 "Watchlist"）。
type TitleRecord struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	// Year 仅在 CSV 导出带有 Year 列时存在；不参与匹配。
	Year string `json:"year,omitempty"`
}

// RecordSet 是一次分页抓取（或一次文件加载）得到的有序记录集合。
type RecordSet []TitleRecord

// MatchKey 是标题的规范化比较键（小写 + 去首尾空白）。
type MatchKey string

// PageShape 描述列表页面的结构。它是封闭集合：新增形状需要同时注册对应的 extractor。
type PageShape int

const (
	// ShapeDetail：策展列表的 /detail/ 视图，标题位于 h2 > a[href*=/film/]。
	ShapeDetail PageShape = iota + 1
	// ShapeWatchlist：海报网格，标题位于 div.film-poster img 的 alt。
	ShapeWatchlist
)

func (s PageShape) String() string {
	switch s {
	case ShapeDetail:
		return "detail"
	case ShapeWatchlist:
		return "watchlist"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParsePageShape 把字符串解析为 PageShape（大小写不敏感）。
func ParsePageShape(s string) (PageShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detail", "list":
		return ShapeDetail, nil
	case "watchlist":
		return ShapeWatchlist, nil
	default:
		return 0, fmt.Errorf("未知页面形状：%q", s)
	}
}

// ListSpec 是一次分页抓取的输入：入口 URL + 来源标签 + 页面形状。
// 所有“URL 字符串或 {url,name} 对象”的输入都必须在边界处归一化为 ListSpec。
type ListSpec struct {
	URL   string    `json:"url"`
	Label string    `json:"label"`
	Shape PageShape `json:"-"`
}

// HomeSpec 描述“本方”列表的来源：本地 CSV 或在线 watchlist（二选一）。
type HomeSpec struct {
	File  string `json:"file,omitempty"`
	URL   string `json:"url,omitempty"`
	Label string `json:"label"`
}

// Origin 返回来源类型："file" 或 "url"；两者都为空时返回空串。
func (h HomeSpec) Origin() string {
	switch {
	case strings.TrimSpace(h.File) != "":
		return "file"
	case strings.TrimSpace(h.URL) != "":
		return "url"
	default:
		return ""
	}
}
