package paginate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

const detailSuffix = "/detail/"

// NormalizeBaseURL 按页面形状归一入口 URL：
// - detail：不含 /detail/ 时追加 /detail/
// - watchlist：只保证以单个 / 结尾
func NormalizeBaseURL(raw string, shape domain.PageShape) string {
	u := strings.TrimSpace(raw)
	if shape == domain.ShapeDetail && !strings.Contains(u, detailSuffix) {
		return strings.TrimRight(u, "/") + detailSuffix
	}
	return strings.TrimRight(u, "/") + "/"
}

// PageURL 拼出第 n 页（n 从 1 开始）。base 必须已经过 NormalizeBaseURL。
func PageURL(base string, n int) string {
	return fmt.Sprintf("%spage/%d/", base, n)
}

// DefaultLabel 在调用方没有给出列表名时，从 URL 推导一个可读标签：
// 取最后一个有意义的路径段（跳过 detail/page/N 等分页段）。
func DefaultLabel(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return strings.TrimSpace(raw)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		switch {
		case s == "", s == "detail", s == "page":
			continue
		case isDigits(s) && i > 0 && segs[i-1] == "page":
			continue
		}
		return s
	}
	if u.Host != "" {
		return u.Host
	}
	return strings.TrimSpace(raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
