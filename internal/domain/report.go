package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusMatched        = "matched"
	StatusNoMatches      = "no_matches"
	StatusNoExternalData = "no_external_data"
	StatusHomeFailed     = "home_failed"
	StatusConfigFailed   = "config_failed"
)

// 分页停止原因（ListResult.Stop）。
const (
	StopEmptyPage   = "empty_page"
	StopLastPage    = "last_page"
	StopFetchFailed = "fetch_failed"
	StopParseFailed = "parse_failed"
	StopMaxPages    = "max_pages"
	StopCanceled    = "canceled"
)

// MatchRow 是报告中的一行：本方标题 + 出现过的外部列表。
type MatchRow struct {
	WatchlistName string   `json:"watchlist_name"`
	Year          string   `json:"year,omitempty"`
	Sources       string   `json:"sources"`
	Lists         []string `json:"lists"`
	Key           MatchKey `json:"-"`
}

// MatchReport 按本方列表顺序排列，每个 MatchKey 至多一行。
type MatchReport []MatchRow

// Suggestion 是未精确匹配但相似度足够高的候选（仅在开启时产生）。
type Suggestion struct {
	WatchlistName string  `json:"watchlist_name"`
	Candidate     string  `json:"candidate"`
	Sources       string  `json:"sources"`
	Score         float64 `json:"score"`
}

// ListResult 记录一次分页抓取的执行轨迹（用于解释“为什么只抓到这么多”）。
type ListResult struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Shape   string `json:"shape"`
	Pages   int    `json:"pages"`
	Fetches int    `json:"fetches"`
	Records int    `json:"records"`
	Stop    string `json:"stop"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// HomeResult 记录本方列表的加载结果。
type HomeResult struct {
	Label   string `json:"label"`
	Origin  string `json:"origin"`
	Target  string `json:"target"`
	Records int    `json:"records"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// RunReport 是对外稳定输出（stdout JSON / --output 文件）的结构。
type RunReport struct {
	RunID string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Summary ReportSummary `json:"summary"`

	Home        HomeResult   `json:"home"`
	Lists       []ListResult `json:"lists"`
	Matches     MatchReport  `json:"matches"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

type ReportSummary struct {
	Lists          int `json:"lists"`
	ListsFailed    int `json:"lists_failed"`
	HomeTitles     int `json:"home_titles"`
	ExternalTitles int `json:"external_titles"`
	Matches        int `json:"matches"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) nil 切片归一为空切片（JSON 输出 [] 而不是 null）
// 3) summary 由 home/lists/matches 计算得出；Status 为空时按结果推断
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Lists == nil {
		r.Lists = []ListResult{}
	}
	if r.Matches == nil {
		r.Matches = MatchReport{}
	}

	var s ReportSummary
	s.Lists = len(r.Lists)
	s.HomeTitles = r.Home.Records
	for _, l := range r.Lists {
		if l.ErrorCode != "" {
			s.ListsFailed++
		}
		s.ExternalTitles += l.Records
	}
	s.Matches = len(r.Matches)
	r.Summary = s

	if r.Status == "" {
		switch {
		case r.Home.ErrorCode != "":
			r.Status = StatusHomeFailed
		case s.ExternalTitles == 0:
			r.Status = StatusNoExternalData
		case s.Matches == 0:
			r.Status = StatusNoMatches
		default:
			r.Status = StatusMatched
		}
	}
}

// Failed 表示本次运行是否应以失败退出（配置错误或本方列表不可用）。
// 外部列表失败、无交集都不算失败。
func (r RunReport) Failed() bool {
	return r.Status == StatusHomeFailed || r.Status == StatusConfigFailed
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
