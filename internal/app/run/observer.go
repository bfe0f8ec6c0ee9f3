package run

import (
	"time"

	"github.com/John-Robertt/wlmatch/internal/config"
	"github.com/John-Robertt/wlmatch/internal/domain"
)

// Observer 用于把“运行进度/阶段/列表结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 列表按顺序串行抓取，事件在调用方 goroutine 上同步触发。
type Observer interface {
	// OnStart 在执行开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（home / reconcile）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnListStart 在开始抓取第 idx 个外部列表前调用（idx 从 0 开始）。
	OnListStart(idx, total int, spec domain.ListSpec)
	// OnPage 在任一列表的一页解析完成后调用（本方在线 watchlist 也会触发）。
	OnPage(label string, page, found int, hasNext bool)
	// OnListDone 在一个外部列表抓取结束后调用。
	OnListDone(idx, total int, res domain.ListResult, dur time.Duration)
}
