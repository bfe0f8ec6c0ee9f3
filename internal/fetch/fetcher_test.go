package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"testing"
	"time"
)

// scriptedSession 按脚本依次返回状态码/错误；所有会话共享同一个脚本游标，
// 以模拟“换会话后继续请求同一个站点”。
type scriptedSession struct {
	id     int
	script *script
}

type step struct {
	status int
	body   string
	err    error
}

type script struct {
	steps []step
	calls int
	seen  []int // 每次请求所用的会话 id
}

func (s *scriptedSession) Get(ctx context.Context, url string) (int, []byte, error) {
	sc := s.script
	sc.seen = append(sc.seen, s.id)
	if sc.calls >= len(sc.steps) {
		return 0, nil, errors.New("script exhausted")
	}
	st := sc.steps[sc.calls]
	sc.calls++
	return st.status, []byte(st.body), st.err
}

type harness struct {
	sc       *script
	created  int
	sleeps   []time.Duration
	fetcher  *Fetcher
	factoryE error
}

func newHarness(maxRetries int, steps ...step) *harness {
	h := &harness{sc: &script{steps: steps}}
	h.fetcher = &Fetcher{
		MaxRetries:  maxRetries,
		BackoffUnit: time.Second,
		NewSession: func() (Session, error) {
			if h.factoryE != nil {
				return nil, h.factoryE
			}
			h.created++
			return &scriptedSession{id: h.created, script: h.sc}, nil
		},
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h
}

func TestFetch_BlockedTwiceThenOK(t *testing.T) {
	h := newHarness(3,
		step{status: http.StatusForbidden},
		step{status: http.StatusForbidden},
		step{status: http.StatusOK, body: "<html/>"},
	)

	first, _ := h.fetcher.NewSession()

	body, sess, err := h.fetcher.Fetch(context.Background(), first, "https://example.test/page/1/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(body) != "<html/>" {
		t.Fatalf("期望 body=<html/>，实际=%q", string(body))
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; !reflect.DeepEqual(h.sleeps, want) {
		t.Fatalf("期望等待 %v，实际 %v", want, h.sleeps)
	}
	// 1 个初始会话 + 2 次重建。
	if h.created != 3 {
		t.Fatalf("期望重建会话 2 次，实际共新建 %d 个", h.created)
	}
	if sess == first {
		t.Fatalf("403 后应返回新会话，而不是最初的会话")
	}
	// 每次 403 之后都必须换用新会话发起下一次请求。
	if len(h.sc.seen) != 3 || h.sc.seen[0] == h.sc.seen[1] || h.sc.seen[1] == h.sc.seen[2] {
		t.Fatalf("会话使用轨迹不符合预期：%v", h.sc.seen)
	}
}

func TestFetch_FirstAttemptOK_NoSleep(t *testing.T) {
	h := newHarness(3, step{status: http.StatusOK, body: "x"})

	_, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(h.sleeps) != 0 {
		t.Fatalf("首次成功不应等待，实际 %v", h.sleeps)
	}
	if h.created != 1 {
		t.Fatalf("sess=nil 时应新建 1 个会话，实际 %d", h.created)
	}
}

func TestFetch_OtherStatusFailsFast(t *testing.T) {
	h := newHarness(3,
		step{status: http.StatusNotFound},
		step{status: http.StatusOK},
	)

	_, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/page/9/")
	var ff *FetchFailure
	if !errors.As(err, &ff) {
		t.Fatalf("期望 *FetchFailure，实际 %T %v", err, err)
	}
	if ff.Attempts != 1 || ff.LastStatus != http.StatusNotFound {
		t.Fatalf("期望 1 次尝试且状态 404，实际 %+v", ff)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("期望可 Unwrap 出 StatusError(404)，实际 %v", err)
	}
	if h.sc.calls != 1 {
		t.Fatalf("非 403 的错误状态不应继续重试，实际请求 %d 次", h.sc.calls)
	}
	if len(h.sleeps) != 0 {
		t.Fatalf("快速失败不应等待，实际 %v", h.sleeps)
	}
}

func TestFetch_TransportErrorContinues(t *testing.T) {
	h := newHarness(3,
		step{err: errors.New("connection reset")},
		step{status: http.StatusOK, body: "ok"},
	)

	body, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("期望 body=ok，实际=%q", string(body))
	}
	if h.created != 1 {
		t.Fatalf("传输层错误不应重建会话，实际新建 %d 个", h.created)
	}
	if want := []time.Duration{2 * time.Second}; !reflect.DeepEqual(h.sleeps, want) {
		t.Fatalf("期望等待 %v，实际 %v", want, h.sleeps)
	}
}

func TestFetch_ExhaustedReturnsFetchFailure(t *testing.T) {
	h := newHarness(3,
		step{status: http.StatusForbidden},
		step{err: errors.New("timeout")},
		step{status: http.StatusForbidden},
	)

	_, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/page/2/")
	var ff *FetchFailure
	if !errors.As(err, &ff) {
		t.Fatalf("期望 *FetchFailure，实际 %T %v", err, err)
	}
	if ff.Attempts != 3 {
		t.Fatalf("期望 attempts=3，实际 %d", ff.Attempts)
	}
	if ff.URL != "https://example.test/page/2/" {
		t.Fatalf("FetchFailure.URL 不正确：%q", ff.URL)
	}
	var be *BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("最后一次为 403，期望可 Unwrap 出 BlockedError，实际 %v", err)
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; !reflect.DeepEqual(h.sleeps, want) {
		t.Fatalf("期望等待 %v，实际 %v", want, h.sleeps)
	}
}

func TestFetch_SessionFactoryFailure(t *testing.T) {
	h := newHarness(3)
	h.factoryE = errors.New("no tls")

	_, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/")
	if !IsFetchFailure(err) {
		t.Fatalf("期望 FetchFailure，实际 %v", err)
	}
	if !errors.Is(err, h.factoryE) {
		t.Fatalf("期望包装 factory 错误，实际 %v", err)
	}
}

func TestFetch_CanceledDuringBackoff(t *testing.T) {
	h := newHarness(3, step{status: http.StatusForbidden}, step{status: http.StatusOK})
	h.fetcher.Sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	_, _, err := h.fetcher.Fetch(context.Background(), nil, "https://example.test/")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
}

func TestSleep_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("d=0 不应报错：%v", err)
	}
}
