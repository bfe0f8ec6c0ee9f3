// Package output 把 RunReport 渲染为终端表格、JSON 或 CSV。
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/wlmatch/internal/domain"
	"github.com/John-Robertt/wlmatch/internal/infra/fsx"
)

const (
	ColumnName    = "Watchlist name"
	ColumnYear    = "Year"
	ColumnSources = "Sources"
)

// RenderTable 输出人类可读的结果：匹配表 + 共同影片数；无结果时给出区分原因的提示。
func RenderTable(w io.Writer, rr domain.RunReport) error {
	var b strings.Builder

	switch rr.Status {
	case domain.StatusConfigFailed:
		fmt.Fprintf(&b, "配置错误：%s\n", rr.ErrorMsg)
	case domain.StatusHomeFailed:
		fmt.Fprintf(&b, "本方列表加载失败：%s\n", rr.ErrorMsg)
	case domain.StatusNoExternalData:
		b.WriteString("没有从外部列表中抽取到任何影片，无法比对。\n")
	case domain.StatusNoMatches:
		b.WriteString("没有找到共同影片。\n")
	default:
		withYear := hasYear(rr.Matches)
		t := table.NewWriter()
		header := table.Row{ColumnName, ColumnSources}
		if withYear {
			header = table.Row{ColumnName, ColumnYear, ColumnSources}
		}
		t.AppendHeader(header)
		for _, m := range rr.Matches {
			if withYear {
				t.AppendRow(table.Row{m.WatchlistName, m.Year, m.Sources})
			} else {
				t.AppendRow(table.Row{m.WatchlistName, m.Sources})
			}
		}
		setStyle(t)
		b.WriteString(t.Render())
		fmt.Fprintf(&b, "\n共同影片：%d\n", len(rr.Matches))
	}

	if len(rr.Suggestions) > 0 {
		t := table.NewWriter()
		t.SetTitle("相似候选（未计入匹配）")
		t.AppendHeader(table.Row{ColumnName, "Candidate", ColumnSources, "Score"})
		for _, s := range rr.Suggestions {
			t.AppendRow(table.Row{s.WatchlistName, s.Candidate, s.Sources, fmt.Sprintf("%.2f", s.Score)})
		}
		setStyle(t)
		b.WriteString("\n")
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON 输出一个完整的 RunReport（带缩进，末尾换行）。
func WriteJSON(w io.Writer, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// WriteCSV 只输出匹配行：Watchlist name,[Year,]Sources。
func WriteCSV(w io.Writer, report domain.MatchReport) error {
	withYear := hasYear(report)
	cw := csv.NewWriter(w)
	header := []string{ColumnName, ColumnSources}
	if withYear {
		header = []string{ColumnName, ColumnYear, ColumnSources}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range report {
		row := []string{m.WatchlistName, m.Sources}
		if withYear {
			row = []string{m.WatchlistName, m.Year, m.Sources}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile 按扩展名（.json / .csv）把报告原子写入 path。
func SaveFile(path string, rr domain.RunReport) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := WriteJSON(&buf, rr); err != nil {
			return err
		}
	case ".csv":
		if err := WriteCSV(&buf, rr.Matches); err != nil {
			return err
		}
	default:
		return fmt.Errorf("不支持的输出格式：%q（只支持 .json / .csv）", path)
	}
	return fsx.WriteFileAtomic(path, buf.Bytes())
}

// setStyle 使用圆角样式，并保留列名原样（go-pretty 默认会转成大写）。
func setStyle(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
}

func hasYear(report domain.MatchReport) bool {
	for _, m := range report {
		if m.Year != "" {
			return true
		}
	}
	return false
}
