package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// FetchFailure 表示某个 URL 在用尽重试后仍未拿到 200。
// 它是可恢复的：只终止当前列表的分页，不影响整次运行。
type FetchFailure struct {
	URL        string
	Attempts   int
	LastStatus int // 0 表示最后一次是传输层错误（或从未发出请求）
	Err        error
}

func (e *FetchFailure) Error() string {
	if e == nil {
		return "fetch failure"
	}
	msg := fmt.Sprintf("抓取失败：%s（尝试 %d 次", e.URL, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf("，最后状态 HTTP %d", e.LastStatus)
	}
	msg += "）"
	if e.Err != nil {
		msg += "：" + e.Err.Error()
	}
	return msg
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// IsFetchFailure 判断 err 是否为 FetchFailure。
func IsFetchFailure(err error) bool {
	var e *FetchFailure
	return errors.As(err, &e)
}

// StatusError 表示站点返回了非 200 的 HTTP 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// BlockedError 表示站点以 403 拦截了请求（通常是反爬策略）。
// 每次 BlockedError 都会触发会话重建。
type BlockedError struct {
	URL string
}

func (e *BlockedError) Error() string {
	if e == nil || strings.TrimSpace(e.URL) == "" {
		return "blocked (HTTP 403)"
	}
	return "blocked (HTTP 403): " + e.URL
}
