package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/paginate"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingSource 表示 CLI 与配置文件都没有给出 watchlist 来源。
	ErrCodeMissingSource = domain.ErrCodeConfigMissingSource
)

// DefaultFileName 是 cwd 下自动读取的配置文件名（内容按 JSON5 解析，允许注释）。
const DefaultFileName = "wlmatch.json"

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息，
// 保证 --page-delay=0s 之类的显式值能覆盖配置文件。
type CLIArgs struct {
	ConfigPath string

	CSV            string
	WatchlistURL   string
	WatchlistLabel string

	// Lists 非空时整体替换配置文件中的 lists；每项为 "URL" 或 "Label=URL"。
	Lists []string

	MaxRetries    int
	MaxRetriesSet bool

	PageDelay    time.Duration
	PageDelaySet bool

	MaxPages    int
	MaxPagesSet bool

	ProxyURL string
	ProxySet bool

	Output string

	Suggest    bool
	SuggestSet bool
}

// FileConfig 对应 wlmatch.json 的解析结构。
type FileConfig struct {
	Watchlist *WatchlistConfig `json:"watchlist"`
	// Lists 每项可以是 URL 字符串，也可以是 {"url": ..., "name": ..., "shape": "detail"|"watchlist"}。
	Lists            []any        `json:"lists"`
	MaxRetries       int          `json:"max_retries"`
	BackoffUnit      string       `json:"backoff_unit"`
	PageDelay        string       `json:"page_delay"`
	MaxPages         int          `json:"max_pages"`
	Timeout          string       `json:"timeout"`
	RateLimit        float64      `json:"rate_limit"`
	Proxy            *ProxyConfig `json:"proxy"`
	Output           string       `json:"output"`
	Suggest          *bool        `json:"suggest"`
	SuggestThreshold float64      `json:"suggest_threshold"`
}

type WatchlistConfig struct {
	File  string `json:"file"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	ConfigPath string

	Home  domain.HomeSpec
	Lists []domain.ListSpec

	MaxRetries  int
	BackoffUnit time.Duration
	PageDelay   time.Duration
	MaxPages    int
	Timeout     time.Duration
	RateLimit   float64
	ProxyURL    string

	Output           string
	Suggest          bool
	SuggestThreshold float64
}

func defaults() FileConfig {
	return FileConfig{
		MaxRetries:       3,
		BackoffUnit:      "1s",
		PageDelay:        paginate.DefaultPageDelay.String(),
		Timeout:          "30s",
		SuggestThreshold: 0.92,
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingSource:
		return fmt.Sprintf("%s：未指定 watchlist 来源（--csv / --watchlist 或配置文件 watchlist.file / watchlist.url）", e.Code)
	case ErrCodeInvalid:
		if e.Path != "" && e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置文件（可选）并与 CLI 参数合并。
//
// 规则：
// - --config 显式给出：文件必须存在
// - 否则尝试 <cwd>/wlmatch.json，不存在不算错误
// - 优先级：CLI > 配置文件 > 内置默认
// - 配置文件中的相对路径以配置文件所在目录为基准；CLI 的相对路径以 cwd 为基准
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		p := filepath.Join(cwdAbs, DefaultFileName)
		var exists bool
		fc, exists, err = readFileConfig(p)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			cfgPath = p
		}
	}

	if err := mergo.Merge(&fc, defaults()); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	cfgDir := cwdAbs
	if cfgPath != "" {
		cfgDir = filepath.Dir(cfgPath)
	}

	// watchlist：CLI 的 --csv / --watchlist 整体覆盖配置文件。
	var home domain.HomeSpec
	switch {
	case strings.TrimSpace(cli.CSV) != "" && strings.TrimSpace(cli.WatchlistURL) != "":
		return invalid(errors.New("--csv 与 --watchlist 只能二选一"))
	case strings.TrimSpace(cli.CSV) != "":
		home.File = absCleanFrom(cwdAbs, cli.CSV)
	case strings.TrimSpace(cli.WatchlistURL) != "":
		home.URL = strings.TrimSpace(cli.WatchlistURL)
	case fc.Watchlist != nil:
		file, u := strings.TrimSpace(fc.Watchlist.File), strings.TrimSpace(fc.Watchlist.URL)
		if file != "" && u != "" {
			return invalid(errors.New("watchlist.file 与 watchlist.url 只能二选一"))
		}
		if file != "" {
			home.File = absCleanFrom(cfgDir, file)
		}
		home.URL = u
		home.Label = strings.TrimSpace(fc.Watchlist.Label)
	}
	if strings.TrimSpace(cli.WatchlistLabel) != "" {
		home.Label = strings.TrimSpace(cli.WatchlistLabel)
	}
	if home.Origin() == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingSource, Path: cfgPath}
	}
	if home.URL != "" {
		if err := validateHTTPURL(home.URL); err != nil {
			return invalid(fmt.Errorf("watchlist url 无效：%w", err))
		}
	}

	// lists：CLI > config
	var lists []domain.ListSpec
	if len(cli.Lists) > 0 {
		for _, raw := range cli.Lists {
			spec, err := ParseListArg(raw)
			if err != nil {
				return invalid(err)
			}
			lists = append(lists, spec)
		}
	} else {
		for i, raw := range fc.Lists {
			spec, err := listFromFile(raw)
			if err != nil {
				return invalid(fmt.Errorf("lists[%d]：%w", i, err))
			}
			lists = append(lists, spec)
		}
	}
	if len(lists) == 0 {
		return invalid(errors.New("至少需要一个外部列表（--list 或配置文件 lists）"))
	}

	maxRetries := fc.MaxRetries
	if cli.MaxRetriesSet {
		maxRetries = cli.MaxRetries
	}
	if maxRetries < 1 {
		return invalid(fmt.Errorf("max_retries 必须 >= 1，实际 %d", maxRetries))
	}

	backoff, err := parseDuration("backoff_unit", fc.BackoffUnit)
	if err != nil {
		return invalid(err)
	}
	pageDelay, err := parseDuration("page_delay", fc.PageDelay)
	if err != nil {
		return invalid(err)
	}
	if cli.PageDelaySet {
		pageDelay = cli.PageDelay
	}
	if pageDelay < 0 {
		return invalid(fmt.Errorf("page_delay 不能为负：%s", pageDelay))
	}
	timeout, err := parseDuration("timeout", fc.Timeout)
	if err != nil {
		return invalid(err)
	}

	maxPages := fc.MaxPages
	if cli.MaxPagesSet {
		maxPages = cli.MaxPages
	}
	if maxPages < 0 {
		maxPages = 0
	}

	if fc.RateLimit < 0 {
		return invalid(fmt.Errorf("rate_limit 不能为负：%v", fc.RateLimit))
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if cli.ProxySet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	output := ""
	if strings.TrimSpace(cli.Output) != "" {
		output = absCleanFrom(cwdAbs, cli.Output)
	} else if strings.TrimSpace(fc.Output) != "" {
		output = absCleanFrom(cfgDir, fc.Output)
	}
	if output != "" {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".json", ".csv":
		default:
			return invalid(fmt.Errorf("output 只支持 .json 或 .csv：%q", output))
		}
	}

	suggest := fc.Suggest != nil && *fc.Suggest
	if cli.SuggestSet {
		suggest = cli.Suggest
	}
	threshold := fc.SuggestThreshold
	if threshold <= 0 || threshold > 1 {
		return invalid(fmt.Errorf("suggest_threshold 必须在 (0, 1] 内：%v", threshold))
	}

	return EffectiveConfig{
		ConfigPath:       cfgPath,
		Home:             home,
		Lists:            lists,
		MaxRetries:       maxRetries,
		BackoffUnit:      backoff,
		PageDelay:        pageDelay,
		MaxPages:         maxPages,
		Timeout:          timeout,
		RateLimit:        fc.RateLimit,
		ProxyURL:         proxyURL,
		Output:           output,
		Suggest:          suggest,
		SuggestThreshold: threshold,
	}, nil
}

// ParseListArg 解析 CLI 的 --list 值："URL" 或 "Label=URL"。
func ParseListArg(raw string) (domain.ListSpec, error) {
	raw = strings.TrimSpace(raw)
	label, u := "", raw
	if i := strings.Index(raw, "="); i > 0 && !strings.Contains(raw[:i], "://") {
		label, u = strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	return newListSpec(u, label)
}

// listFromFile 把配置文件中的一项（字符串或对象）归一化为 ListSpec。
func listFromFile(raw any) (domain.ListSpec, error) {
	switch v := raw.(type) {
	case string:
		return newListSpec(v, "")
	case map[string]any:
		u, _ := v["url"].(string)
		name, _ := v["name"].(string)
		if name == "" {
			name, _ = v["label"].(string)
		}
		spec, err := newListSpec(u, name)
		if err != nil {
			return domain.ListSpec{}, err
		}
		if raw, ok := v["shape"].(string); ok && strings.TrimSpace(raw) != "" {
			shape, err := domain.ParsePageShape(raw)
			if err != nil {
				return domain.ListSpec{}, err
			}
			spec.Shape = shape
		}
		return spec, nil
	default:
		return domain.ListSpec{}, fmt.Errorf("必须是 URL 字符串或 {url, name} 对象，实际是 %T", raw)
	}
}

func newListSpec(u, label string) (domain.ListSpec, error) {
	u = strings.TrimSpace(u)
	if err := validateHTTPURL(u); err != nil {
		return domain.ListSpec{}, fmt.Errorf("列表 url 无效：%w", err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = paginate.DefaultLabel(u)
	}
	return domain.ListSpec{URL: u, Label: label, Shape: domain.ShapeDetail}, nil
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", s)
	}
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", field, err)
	}
	return d, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON5 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json5.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
