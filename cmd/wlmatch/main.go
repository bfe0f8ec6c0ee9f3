package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/wlmatch/internal/app/run"
	"github.com/John-Robertt/wlmatch/internal/config"
	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/output"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// usageError 表示命令行用法错误（退出码 2）。
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCodeError 携带已经处理过（已输出报告）的退出码。
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit %d", e.code) }

type rootFlags struct {
	configPath     string
	csv            string
	watchlist      string
	watchlistLabel string
	lists          []string
	maxRetries     int
	pageDelay      time.Duration
	maxPages       int
	proxy          string
	output         string
	format         string
	suggest        bool
	verbose        bool
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ec exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
	_ = cmd.Usage()
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "wlmatch",
		Short: "找出你的 watchlist 与若干公开影单的交集",
		Long: `wlmatch 逐页抓取一个或多个 Letterboxd 影单，
与本方 watchlist（导出的 CSV 或在线 watchlist）按标题求交集，
并列出每部共同影片出现在哪些影单中。`,
		Example: `  # 导出的 watchlist.csv 对比两个影单
  wlmatch --csv watchlist.csv \
    --list https://letterboxd.com/dave/list/official-top-250-narrative-feature-films/ \
    --list "Oscars=https://letterboxd.com/oscars/list/best-picture/"

  # 使用在线 watchlist，结果另存为 CSV
  wlmatch --watchlist https://letterboxd.com/me/watchlist/ --list <URL> -o matches.csv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("不接受位置参数：%q", args)}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runRoot(cmd, f, stdout, stderr)
			if code == exitOK {
				return nil
			}
			return exitCodeError{code: code}
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认读取当前目录下的 "+config.DefaultFileName+"，不存在则忽略）")
	fl.StringVar(&f.csv, "csv", "", "本方 watchlist：导出的 CSV 文件（需要 Name 列）")
	fl.StringVar(&f.watchlist, "watchlist", "", "本方 watchlist：在线 watchlist URL（与 --csv 二选一）")
	fl.StringVar(&f.watchlistLabel, "watchlist-label", "", "本方 watchlist 的显示名（默认 Watchlist）")
	fl.StringArrayVarP(&f.lists, "list", "l", nil, "外部影单，URL 或 Label=URL（可重复；指定后替换配置文件中的 lists）")
	fl.IntVar(&f.maxRetries, "max-retries", 3, "每页最多尝试次数")
	fl.DurationVar(&f.pageDelay, "page-delay", 2*time.Second, "翻页前的固定等待")
	fl.IntVar(&f.maxPages, "max-pages", 0, "每个影单最多抓取页数（0 表示不限）")
	fl.StringVar(&f.proxy, "proxy", "", "HTTP 代理 URL（例如 http://127.0.0.1:7890）")
	fl.StringVarP(&f.output, "output", "o", "", "另存结果文件（.json 或 .csv）")
	fl.StringVar(&f.format, "format", formatAuto, "stdout 输出格式：auto|table|json（auto：终端为表格，否则为 JSON）")
	fl.BoolVar(&f.suggest, "suggest", false, "列出相似但未精确匹配的标题")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志（stderr）")

	return cmd
}

func runRoot(cmd *cobra.Command, f rootFlags, stdout, stderr io.Writer) int {
	setupLogger(stderr, f.verbose)

	format := strings.ToLower(strings.TrimSpace(f.format))
	switch format {
	case formatAuto:
		format = formatJSON
		if isTTY(stdout) {
			format = formatTable
		}
	case formatTable, formatJSON:
	default:
		fmt.Fprintf(stderr, "参数错误：--format 只能是 auto、table 或 json，实际是 %q\n", f.format)
		return exitUsage
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return exitFailed
	}

	changed := cmd.Flags().Changed
	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:     f.configPath,
		CSV:            f.csv,
		WatchlistURL:   f.watchlist,
		WatchlistLabel: f.watchlistLabel,
		Lists:          f.lists,
		MaxRetries:     f.maxRetries,
		MaxRetriesSet:  changed("max-retries"),
		PageDelay:      f.pageDelay,
		PageDelaySet:   changed("page-delay"),
		MaxPages:       f.maxPages,
		MaxPagesSet:    changed("max-pages"),
		ProxyURL:       f.proxy,
		ProxySet:       changed("proxy"),
		Output:         f.output,
		Suggest:        f.suggest,
		SuggestSet:     changed("suggest"),
	})
	if err != nil {
		rr := reportForConfigError(err)
		emitReport(stdout, stderr, format, rr)
		return exitFailed
	}

	var obs run.Observer
	if isTTY(stderr) {
		obs = newProgressUI(stderr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rr := run.ExecuteWithObserver(ctx, eff, obs)

	code := exitOK
	if rr.Failed() {
		code = exitFailed
	}
	if eff.Output != "" && !rr.Failed() {
		if err := output.SaveFile(eff.Output, rr); err != nil {
			fmt.Fprintf(stderr, "写入 %s 失败：%v\n", eff.Output, err)
			code = exitFailed
		} else if obs != nil {
			fmt.Fprintf(stderr, "output: %s\n", eff.Output)
		}
	}

	emitReport(stdout, stderr, format, rr)
	return code
}

// emitReport 遵守输出契约：json 模式下 stdout 只有一个 RunReport；摘要行总是写 stderr。
func emitReport(stdout, stderr io.Writer, format string, rr domain.RunReport) {
	var err error
	if format == formatTable {
		err = output.RenderTable(stdout, rr)
	} else {
		err = output.WriteJSON(stdout, rr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "输出结果失败：%v\n", err)
	}
	fmt.Fprintf(stderr, "完成：status=%s matches=%d lists=%d lists_failed=%d home=%d external=%d\n",
		rr.Status, rr.Summary.Matches, rr.Summary.Lists, rr.Summary.ListsFailed,
		rr.Summary.HomeTitles, rr.Summary.ExternalTitles,
	)
	if rr.ErrorCode != "" {
		fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
	}
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  now,
		FinishedAt: now,
		Status:     domain.StatusConfigFailed,
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
