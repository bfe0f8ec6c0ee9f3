package paginate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/extract"
	"github.com/John-Robertt/wlmatch/internal/fetch"
)

type fakeSite struct {
	pages    map[string]string // url -> html；不存在的 url 返回 404
	status   map[string]int
	requests []string
	sessions int
}

type fakeSession struct{ site *fakeSite }

func (s fakeSession) Get(ctx context.Context, url string) (int, []byte, error) {
	s.site.requests = append(s.site.requests, url)
	if st, ok := s.site.status[url]; ok {
		return st, nil, nil
	}
	body, ok := s.site.pages[url]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	return http.StatusOK, []byte(body), nil
}

func detailHTML(next bool, titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, t := range titles {
		slug := strings.ToLower(strings.ReplaceAll(t, " ", "-"))
		fmt.Fprintf(&b, `<li><h2><a href="/film/%s/">%s</a></h2></li>`, slug, t)
	}
	b.WriteString("</ul>")
	if next {
		b.WriteString(`<a class="next" href="#">Older</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newPaginator(site *fakeSite, sleeps *[]time.Duration) *Paginator {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return &Paginator{
		Fetcher: &fetch.Fetcher{
			MaxRetries:  3,
			BackoffUnit: time.Second,
			NewSession: func() (fetch.Session, error) {
				site.sessions++
				return fakeSession{site: site}, nil
			},
			Sleep:  rec,
			Logger: quiet,
		},
		Extractors: extract.Default(),
		PageDelay:  DefaultPageDelay,
		Sleep:      rec,
		Logger:     quiet,
	}
}

const listURL = "https://letterboxd.test/u/list/acervo/"

func TestCollect_StopsOnEmptyPage_KPlusOneFetches(t *testing.T) {
	base := "https://letterboxd.test/u/list/acervo/detail/"
	site := &fakeSite{pages: map[string]string{
		base + "page/1/": detailHTML(true, "Jaws", "Alien"),
		base + "page/2/": detailHTML(true, "Heat"),
		base + "page/3/": detailHTML(true), // 0 条记录：即使有 next 也必须停止
		base + "page/4/": detailHTML(false, "Never"),
	}}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)

	got, res := p.Collect(context.Background(), domain.ListSpec{URL: listURL, Label: "Acervo", Shape: domain.ShapeDetail})

	want := domain.RecordSet{
		{Name: "Jaws", Source: "Acervo"},
		{Name: "Alien", Source: "Acervo"},
		{Name: "Heat", Source: "Acervo"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("记录不符合预期 (-want +got):\n%s", diff)
	}
	if res.Fetches != 3 || len(site.requests) != 3 {
		t.Fatalf("期望 k+1=3 次抓取，实际 fetches=%d requests=%v", res.Fetches, site.requests)
	}
	if res.Stop != domain.StopEmptyPage || res.Pages != 2 || res.Records != 3 {
		t.Fatalf("轨迹不符合预期：%+v", res)
	}
	if diff := cmp.Diff([]time.Duration{2 * time.Second, 2 * time.Second}, sleeps); diff != "" {
		t.Fatalf("翻页等待不符合预期 (-want +got):\n%s", diff)
	}
	if site.sessions != 1 {
		t.Fatalf("同一列表应复用一个会话，实际新建 %d 个", site.sessions)
	}
}

func TestCollect_StopsWithoutNextMarker(t *testing.T) {
	base := "https://letterboxd.test/u/list/acervo/detail/"
	site := &fakeSite{pages: map[string]string{
		base + "page/1/": detailHTML(true, "Jaws"),
		base + "page/2/": detailHTML(false, "Heat"),
	}}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)

	got, res := p.Collect(context.Background(), domain.ListSpec{URL: listURL, Label: "A", Shape: domain.ShapeDetail})
	if len(got) != 2 || res.Stop != domain.StopLastPage || res.Fetches != 2 {
		t.Fatalf("期望在最后一页停止，实际 records=%d res=%+v", len(got), res)
	}
	if len(sleeps) != 1 {
		t.Fatalf("最后一页之后不应再等待，实际 %v", sleeps)
	}
}

func TestCollect_FetchFailureReturnsPartial(t *testing.T) {
	base := "https://letterboxd.test/u/list/acervo/detail/"
	site := &fakeSite{
		pages: map[string]string{
			base + "page/1/": detailHTML(true, "Jaws"),
		},
		status: map[string]int{base + "page/2/": http.StatusInternalServerError},
	}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)

	got, res := p.Collect(context.Background(), domain.ListSpec{URL: listURL, Label: "A", Shape: domain.ShapeDetail})
	if len(got) != 1 || got[0].Name != "Jaws" {
		t.Fatalf("期望保留第 1 页结果，实际 %+v", got)
	}
	if res.Stop != domain.StopFetchFailed || res.ErrorCode != domain.ErrCodeFetchFailed || res.ErrorMsg == "" {
		t.Fatalf("期望 fetch_failed 轨迹，实际 %+v", res)
	}
}

func TestCollect_WatchlistShapeAndMaxPages(t *testing.T) {
	base := "https://letterboxd.test/u/watchlist/"
	poster := func(title string) string {
		return `<html><body><div class="film-poster"><img alt="` + title + `"/></div><a class="next">n</a></body></html>`
	}
	site := &fakeSite{pages: map[string]string{
		base + "page/1/": poster("Jaws"),
		base + "page/2/": poster("Heat"),
		base + "page/3/": poster("Alien"),
	}}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)
	p.MaxPages = 2

	got, res := p.Collect(context.Background(), domain.ListSpec{URL: "https://letterboxd.test/u/watchlist", Label: "Watchlist", Shape: domain.ShapeWatchlist})
	if len(got) != 2 || res.Stop != domain.StopMaxPages {
		t.Fatalf("期望在 max_pages 处停止，实际 records=%d res=%+v", len(got), res)
	}
	if res.URL != base {
		t.Fatalf("watchlist 入口应只补齐尾部 /，实际 %q", res.URL)
	}
}

func TestCollect_CanceledDuringPageDelay(t *testing.T) {
	base := "https://letterboxd.test/u/list/acervo/detail/"
	site := &fakeSite{pages: map[string]string{
		base + "page/1/": detailHTML(true, "Jaws"),
	}}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)
	p.Sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	got, res := p.Collect(context.Background(), domain.ListSpec{URL: listURL, Label: "A", Shape: domain.ShapeDetail})
	if len(got) != 1 || res.Stop != domain.StopCanceled {
		t.Fatalf("期望取消后保留已抓取结果，实际 records=%d res=%+v", len(got), res)
	}
}

func TestCollect_OnPageCallback(t *testing.T) {
	base := "https://letterboxd.test/u/list/acervo/detail/"
	site := &fakeSite{pages: map[string]string{
		base + "page/1/": detailHTML(false, "Jaws", "Heat"),
	}}
	var sleeps []time.Duration
	p := newPaginator(site, &sleeps)

	var calls []string
	p.OnPage = func(spec domain.ListSpec, page, found int, hasNext bool) {
		calls = append(calls, fmt.Sprintf("%s:%d:%d:%v", spec.Label, page, found, hasNext))
	}
	p.Collect(context.Background(), domain.ListSpec{URL: listURL, Label: "A", Shape: domain.ShapeDetail})
	if diff := cmp.Diff([]string{"A:1:2:false"}, calls); diff != "" {
		t.Fatalf("OnPage 调用不符合预期 (-want +got):\n%s", diff)
	}
}
