// Package paginate 驱动 fetch/extract 逐页抓取一个列表，直到内容耗尽。
package paginate

import (
	"context"
	"log/slog"
	"time"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/extract"
	"github.com/John-Robertt/wlmatch/internal/fetch"
)

const DefaultPageDelay = 2 * time.Second

// PageFunc 在每页解析完成后调用（用于进度输出）。
type PageFunc func(spec domain.ListSpec, page, found int, hasNext bool)

// Paginator 串行抓取一个列表的所有页。
//
// 状态机：Fetching(page=n) -> Extracting -> {Continue(page=n+1) | Done}
// 终止条件（任一满足）：
// - fetch 失败（部分结果照常返回，不升级为硬失败）
// - 本页 0 条记录（优先于“下一页”导航判断）
// - 本页没有“下一页”导航
// - 达到 MaxPages（0 表示不限）
type Paginator struct {
	Fetcher    *fetch.Fetcher
	Extractors extract.Registry
	// PageDelay 是翻页前的固定等待，用于节流，避免触发反爬。零值表示不等待。
	PageDelay time.Duration
	MaxPages  int
	Sleep     fetch.Sleeper
	Logger    *slog.Logger
	OnPage    PageFunc
}

// Collect 抓取 spec 指向的列表，返回累计记录与执行轨迹。
// 每个列表使用独立会话；会话在 403 时由 Fetcher 替换，并沿用到后续页。
func (p *Paginator) Collect(ctx context.Context, spec domain.ListSpec) (domain.RecordSet, domain.ListResult) {
	base := NormalizeBaseURL(spec.URL, spec.Shape)
	log := p.logger().With("list", spec.Label)

	res := domain.ListResult{
		Label: spec.Label,
		URL:   base,
		Shape: spec.Shape.String(),
	}
	records := domain.RecordSet{}

	sleep := p.Sleep
	if sleep == nil {
		sleep = fetch.Sleep
	}

	var sess fetch.Session
	for page := 1; ; page++ {
		if p.MaxPages > 0 && page > p.MaxPages {
			res.Stop = domain.StopMaxPages
			break
		}

		pageURL := PageURL(base, page)
		log.DebugContext(ctx, "fetching page", "page", page, "url", pageURL)

		res.Fetches++
		body, next, err := p.Fetcher.Fetch(ctx, sess, pageURL)
		sess = next
		if err != nil {
			res.Stop = domain.StopFetchFailed
			if ctx.Err() != nil {
				res.Stop = domain.StopCanceled
			} else {
				log.WarnContext(ctx, "page fetch failed, stopping list", "page", page, "err", err)
			}
			res.ErrorCode = domain.ErrCodeFetchFailed
			res.ErrorMsg = err.Error()
			break
		}

		pg, err := p.Extractors.Extract(spec.Shape, body, spec.Label)
		if err != nil {
			log.WarnContext(ctx, "page parse failed, stopping list", "page", page, "err", err)
			res.Stop = domain.StopParseFailed
			res.ErrorCode = domain.ErrCodeParseFailed
			res.ErrorMsg = err.Error()
			break
		}
		if p.OnPage != nil {
			p.OnPage(spec, page, len(pg.Records), pg.HasNext)
		}

		if len(pg.Records) == 0 {
			res.Stop = domain.StopEmptyPage
			break
		}
		records = append(records, pg.Records...)
		res.Pages++
		log.DebugContext(ctx, "page extracted", "page", page, "found", len(pg.Records))

		if !pg.HasNext {
			res.Stop = domain.StopLastPage
			break
		}
		if err := sleep(ctx, p.pageDelay()); err != nil {
			res.Stop = domain.StopCanceled
			res.ErrorCode = domain.ErrCodeFetchFailed
			res.ErrorMsg = err.Error()
			break
		}
	}

	res.Records = len(records)
	log.InfoContext(ctx, "list collected", "records", res.Records, "pages", res.Pages, "stop", res.Stop)
	return records, res
}

func (p *Paginator) pageDelay() time.Duration {
	if p.PageDelay < 0 {
		return 0
	}
	return p.PageDelay
}

func (p *Paginator) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
