// Package run 串起一次完整的比对：加载本方列表、逐个抓取外部列表、求交集。
package run

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/wlmatch/internal/config"
	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/extract"
	"github.com/John-Robertt/wlmatch/internal/fetch"
	"github.com/John-Robertt/wlmatch/internal/infra/httpx"
	"github.com/John-Robertt/wlmatch/internal/paginate"
	"github.com/John-Robertt/wlmatch/internal/reconcile"
	"github.com/John-Robertt/wlmatch/internal/source"
)

// Execute 执行一次比对，并返回对外稳定的 RunReport。
// 单个外部列表失败只体现在该列表的 ListResult 中，不影响其他列表。
func Execute(ctx context.Context, eff config.EffectiveConfig) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) domain.RunReport {
	return ExecuteWith(ctx, eff, NewPaginator(eff, obs), obs)
}

// NewPaginator 按配置组装 HTTP 会话工厂、Fetcher 与 Paginator。
// 所有会话共享同一个限速器，因此 rate_limit 约束的是整个进程的请求速率。
func NewPaginator(eff config.EffectiveConfig, obs Observer) *paginate.Paginator {
	limiter := httpx.NewLimiter(eff.RateLimit)
	opts := httpx.Options{
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.Timeout,
		Limiter:  limiter,
	}

	p := &paginate.Paginator{
		Fetcher: &fetch.Fetcher{
			MaxRetries:  eff.MaxRetries,
			BackoffUnit: eff.BackoffUnit,
			NewSession: func() (fetch.Session, error) {
				s, err := httpx.NewSession(opts)
				if err != nil {
					return nil, err
				}
				return s, nil
			},
			Logger: slog.Default(),
		},
		Extractors: extract.Default(),
		PageDelay:  eff.PageDelay,
		MaxPages:   eff.MaxPages,
		Logger:     slog.Default(),
	}
	if obs != nil {
		p.OnPage = func(spec domain.ListSpec, page, found int, hasNext bool) {
			obs.OnPage(spec.Label, page, found, hasNext)
		}
	}
	return p
}

// ExecuteWith 使用调用方提供的 Collector 执行（测试与自定义抓取入口）。
func ExecuteWith(ctx context.Context, eff config.EffectiveConfig, col source.Collector, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Lists:     make([]domain.ListResult, 0, len(eff.Lists)),
	}

	homeStarted := time.Now()
	home, hr, err := source.LoadHome(ctx, eff.Home, col)
	rr.Home = hr
	if obs != nil {
		obs.OnPhaseDone("home", map[string]any{
			"origin":  hr.Origin,
			"records": hr.Records,
		}, time.Since(homeStarted))
	}
	if err != nil {
		slog.ErrorContext(ctx, "本方列表加载失败", "label", hr.Label, "target", hr.Target, "err", err)
		rr.Status = domain.StatusHomeFailed
		rr.ErrorCode = hr.ErrorCode
		rr.ErrorMsg = hr.ErrorMsg
		return finish(rr)
	}

	externals := make([]domain.RecordSet, 0, len(eff.Lists))
	for i, spec := range eff.Lists {
		if obs != nil {
			obs.OnListStart(i, len(eff.Lists), spec)
		}
		listStarted := time.Now()
		recs, lr := col.Collect(ctx, spec)
		rr.Lists = append(rr.Lists, lr)
		externals = append(externals, recs)
		if obs != nil {
			obs.OnListDone(i, len(eff.Lists), lr, time.Since(listStarted))
		}
	}

	recStarted := time.Now()
	report, err := reconcile.Reconcile(home, externals)
	switch {
	case errors.Is(err, domain.ErrNoExternalData):
		rr.Status = domain.StatusNoExternalData
		rr.ErrorCode = domain.ErrCodeNoExternalData
		rr.ErrorMsg = err.Error()
	case err != nil:
		// LoadHome 已保证本方非空，这里只兜底。
		rr.Status = domain.StatusHomeFailed
		rr.ErrorCode = domain.ErrCodeEmptySource
		rr.ErrorMsg = err.Error()
	default:
		rr.Matches = report
		if eff.Suggest {
			rr.Suggestions = reconcile.Suggest(home, externals, report, eff.SuggestThreshold)
		}
	}
	if obs != nil {
		obs.OnPhaseDone("reconcile", map[string]any{
			"matches":     len(rr.Matches),
			"suggestions": len(rr.Suggestions),
		}, time.Since(recStarted))
	}

	return finish(rr)
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
