// Package fetch 实现单页抓取的重试/退避/会话重建策略。
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffUnit = time.Second
)

// Session 是一次可丢弃的抓取会话。Get 的 err 只表示传输层失败；
// 非 200 状态码通过 status 返回。
type Session interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

// SessionFactory 创建新会话（首次抓取与 403 后重建都走这里）。
type SessionFactory func() (Session, error)

// Sleeper 抽象等待，测试可以记录时长而不真的睡眠。
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep 是默认 Sleeper：可被 ctx 取消。
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetcher 把“有界重试 + 指数退避 + 403 重建会话”固化为统一策略。
//
// 规则（第 i 次尝试，i 从 0 开始）：
// - i>0 先等待 BackoffUnit * 2^i（2、4、8…个单位）
// - 200：立即返回
// - 403：丢弃会话并新建，计为一次已消耗的尝试，继续
// - 其它状态码：不再重试，直接失败（快速失败）
// - 传输层错误：记录后继续下一次尝试
type Fetcher struct {
	MaxRetries  int
	BackoffUnit time.Duration
	NewSession  SessionFactory
	Sleep       Sleeper
	Logger      *slog.Logger
}

// Fetch 抓取 url。sess 为当前会话（可以为 nil，此时先新建）；
// 返回值中的 Session 是调用后应继续使用的会话（可能已被重建）。
func (f *Fetcher) Fetch(ctx context.Context, sess Session, url string) ([]byte, Session, error) {
	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	unit := f.BackoffUnit
	if unit <= 0 {
		unit = DefaultBackoffUnit
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	log := f.logger()

	if sess == nil {
		s, err := f.newSession()
		if err != nil {
			return nil, nil, &FetchFailure{URL: url, Err: err}
		}
		sess = s
	}

	var (
		attempts   int
		lastStatus int
		lastErr    error
	)
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := unit * time.Duration(1<<attempt)
			log.DebugContext(ctx, "backing off before retry", "url", url, "attempt", attempt+1, "max", maxRetries, "wait", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, sess, err
			}
		}

		attempts++
		status, body, err := sess.Get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, sess, ctx.Err()
			}
			log.WarnContext(ctx, "request failed", "url", url, "attempt", attempt+1, "err", err)
			lastStatus, lastErr = 0, err
			continue
		}

		switch status {
		case http.StatusOK:
			return body, sess, nil
		case http.StatusForbidden:
			log.WarnContext(ctx, "blocked, recreating session", "url", url, "attempt", attempt+1)
			lastStatus, lastErr = status, &BlockedError{URL: url}
			s, serr := f.newSession()
			if serr != nil {
				return nil, sess, &FetchFailure{URL: url, Attempts: attempts, LastStatus: status, Err: serr}
			}
			sess = s
		default:
			log.WarnContext(ctx, "unexpected status, giving up on page", "url", url, "status", status)
			return nil, sess, &FetchFailure{URL: url, Attempts: attempts, LastStatus: status, Err: &StatusError{URL: url, StatusCode: status}}
		}
	}

	log.WarnContext(ctx, "retries exhausted", "url", url, "attempts", attempts)
	return nil, sess, &FetchFailure{URL: url, Attempts: attempts, LastStatus: lastStatus, Err: lastErr}
}

func (f *Fetcher) newSession() (Session, error) {
	if f.NewSession == nil {
		return nil, errors.New("fetch: 未配置 SessionFactory")
	}
	return f.NewSession()
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
