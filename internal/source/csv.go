// Package source 加载“本方”列表：本地 CSV 导出，或在线 watchlist。
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

const (
	// NameColumn 是必需列。
	NameColumn = "Name"
	// YearColumn 可选；存在时带入报告。
	YearColumn = "Year"
)

// SchemaError 表示表格缺少必需列。它对该来源是致命的：不会返回部分结果。
type SchemaError struct {
	Path   string
	Column string
	Found  []string
}

func (e *SchemaError) Error() string {
	where := e.Path
	if where == "" {
		where = "<input>"
	}
	return fmt.Sprintf("%s 缺少 %q 列（实际列：%s）", where, e.Column, strings.Join(e.Found, ", "))
}

// IsSchemaError 判断 err 是否为 SchemaError。
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// LoadCSV 从文件读取记录；label 作为每条记录的 Source。
func LoadCSV(path, label string) (domain.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rs, err := ReadCSV(f, label)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return rs, nil
}

// ReadCSV 解析 UTF-8 CSV（容忍 BOM）。要求有表头且包含 Name 列；
// 列名先 trim 再校验。Name 为空的行会被跳过，其它列保留但不参与匹配。
func ReadCSV(r io.Reader, label string) (domain.RecordSet, error) {
	// BOMOverride：有 BOM 时按 BOM 解码并剥掉它，无 BOM 时按 UTF-8 透传。
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Column: NameColumn}
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	nameIdx, yearIdx := -1, -1
	for i, h := range header {
		switch h {
		case NameColumn:
			if nameIdx < 0 {
				nameIdx = i
			}
		case YearColumn:
			if yearIdx < 0 {
				yearIdx = i
			}
		}
	}
	if nameIdx < 0 {
		return nil, &SchemaError{Column: NameColumn, Found: header}
	}

	out := domain.RecordSet{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if nameIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		if name == "" {
			continue
		}
		rec := domain.TitleRecord{Name: name, Source: label}
		if yearIdx >= 0 && yearIdx < len(row) {
			rec.Year = strings.TrimSpace(row[yearIdx])
		}
		out = append(out, rec)
	}
	return out, nil
}
