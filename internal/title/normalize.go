// Package title 提供标题的规范化比较键。
//
// 匹配启发式刻意保持粗糙：只做小写 + 去首尾空白，不区分版本/年份。
package title

import (
	"strings"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// Key 返回 name 的比较键。纯函数、全定义、幂等。
func Key(name string) domain.MatchKey {
	return domain.MatchKey(strings.ToLower(strings.TrimSpace(name)))
}
