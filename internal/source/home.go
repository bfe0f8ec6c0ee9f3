package source

import (
	"context"
	"errors"
	"strings"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// DefaultHomeLabel 是本方列表默认的来源标签。
const DefaultHomeLabel = "Watchlist"

// Collector 抓取一个在线列表（由 paginate.Paginator 实现）。
type Collector interface {
	Collect(ctx context.Context, spec domain.ListSpec) (domain.RecordSet, domain.ListResult)
}

// LoadHome 按 spec 加载本方列表，并返回可写入报告的 HomeResult。
// 空结果返回 EmptySourceError；CSV 缺列返回 SchemaError；在线抓取失败但已有部分结果时照常返回。
func LoadHome(ctx context.Context, spec domain.HomeSpec, col Collector) (domain.RecordSet, domain.HomeResult, error) {
	label := strings.TrimSpace(spec.Label)
	if label == "" {
		label = DefaultHomeLabel
	}
	res := domain.HomeResult{Label: label, Origin: spec.Origin()}

	var (
		rs  domain.RecordSet
		err error
	)
	switch res.Origin {
	case "file":
		res.Target = spec.File
		rs, err = LoadCSV(spec.File, label)
		if err != nil {
			res.ErrorCode = codeOf(err)
			res.ErrorMsg = err.Error()
			return nil, res, err
		}
	case "url":
		if col == nil {
			err = errors.New("source: 在线 watchlist 需要 Collector")
			res.ErrorCode = domain.ErrCodeFetchFailed
			res.ErrorMsg = err.Error()
			return nil, res, err
		}
		var lr domain.ListResult
		rs, lr = col.Collect(ctx, domain.ListSpec{URL: spec.URL, Label: label, Shape: domain.ShapeWatchlist})
		res.Target = lr.URL
		if len(rs) == 0 && lr.ErrorCode != "" {
			err = errors.New(lr.ErrorMsg)
			res.ErrorCode = lr.ErrorCode
			res.ErrorMsg = lr.ErrorMsg
			return nil, res, err
		}
	default:
		err = errors.New("source: 未指定 watchlist 来源（file 或 url）")
		res.ErrorCode = domain.ErrCodeConfigMissingSource
		res.ErrorMsg = err.Error()
		return nil, res, err
	}

	res.Records = len(rs)
	if len(rs) == 0 {
		err = &domain.EmptySourceError{Source: label}
		res.ErrorCode = domain.ErrCodeEmptySource
		res.ErrorMsg = err.Error()
		return nil, res, err
	}
	return rs, res, nil
}

func codeOf(err error) string {
	switch {
	case IsSchemaError(err):
		return domain.ErrCodeSchemaError
	case domain.IsEmptySource(err):
		return domain.ErrCodeEmptySource
	default:
		return domain.ErrCodeIOFailed
	}
}
