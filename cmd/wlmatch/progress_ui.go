package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/wlmatch/internal/app/run"
	"github.com/John-Robertt/wlmatch/internal/config"
	"github.com/John-Robertt/wlmatch/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约；
// run 层只发事件，CLI 决定如何展示。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now

	fmt.Fprintf(p.w, "[%s] wlmatch\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  watchlist: %s\n", formatHome(eff.Home))
	fmt.Fprintf(p.w, "  lists: %d\n", len(eff.Lists))
	for _, l := range eff.Lists {
		fmt.Fprintf(p.w, "    - %s: %s\n", l.Label, truncate(l.URL, 120))
	}
	fmt.Fprintf(p.w, "  max_retries: %d backoff_unit: %s page_delay: %s\n", eff.MaxRetries, eff.BackoffUnit, eff.PageDelay)
	if eff.MaxPages > 0 {
		fmt.Fprintf(p.w, "  max_pages: %d\n", eff.MaxPages)
	}
	if eff.RateLimit > 0 {
		fmt.Fprintf(p.w, "  rate_limit: %.2f req/s\n", eff.RateLimit)
	}
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	if eff.Output != "" {
		fmt.Fprintf(p.w, "  output: %s\n", eff.Output)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "home":
		fmt.Fprintf(p.w, "本方列表: origin=%v records=%d (%s)\n\n",
			fields["origin"], intField(fields, "records"), formatShortDuration(dur),
		)
	case "reconcile":
		fmt.Fprintf(p.w, "\n比对: matches=%d suggestions=%d (%s) elapsed=%s\n",
			intField(fields, "matches"), intField(fields, "suggestions"),
			formatShortDuration(dur), formatElapsed(time.Since(p.startedAt)),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnListStart(idx, total int, spec domain.ListSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "[%d/%d] %s %s\n", idx+1, total, spec.Label, truncate(spec.URL, 120))
}

func (p *progressUI) OnPage(label string, page, found int, hasNext bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := ""
	if hasNext {
		next = " →"
	}
	fmt.Fprintf(p.w, "  page %d: found=%d%s\n", page, found, next)
}

func (p *progressUI) OnListDone(idx, total int, res domain.ListResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.ErrorCode != "" {
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s pages=%d records=%d (%s)\n",
			idx+1, total, res.Label, res.ErrorCode, truncate(res.ErrorMsg, 160),
			res.Pages, res.Records, formatShortDuration(dur),
		)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s OK pages=%d records=%d stop=%s (%s)\n",
		idx+1, total, res.Label, res.Pages, res.Records, res.Stop, formatShortDuration(dur),
	)
}

func formatHome(h domain.HomeSpec) string {
	label := h.Label
	if label == "" {
		label = "Watchlist"
	}
	switch h.Origin() {
	case "file":
		return fmt.Sprintf("%s (csv: %s)", label, h.File)
	case "url":
		return fmt.Sprintf("%s (url: %s)", label, truncate(h.URL, 120))
	default:
		return "-"
	}
}

// formatProxy 只展示 scheme/host，不回显凭据。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
