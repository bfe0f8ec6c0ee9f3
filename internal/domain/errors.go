package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeFetchFailed         = "fetch_failed"
	ErrCodeParseFailed         = "parse_failed"
	ErrCodeSchemaError         = "schema_error"
	ErrCodeEmptySource         = "empty_source"
	ErrCodeNoExternalData      = "no_external_data"
	ErrCodeIOFailed            = "io_failed"
	ErrCodeConfigNotFound      = "config_not_found"
	ErrCodeConfigInvalid       = "config_invalid"
	ErrCodeConfigMissingSource = "config_missing_source"
)

// EmptySourceError 表示某个来源没有产出任何可用记录。
// 与 fetch 失败区分开：来源可能“成功访问但为空”。
type EmptySourceError struct {
	Source string
}

func (e *EmptySourceError) Error() string {
	if e == nil || e.Source == "" {
		return "来源为空"
	}
	return fmt.Sprintf("无法加载 %s：没有可用记录", e.Source)
}

// IsEmptySource 判断 err 是否为 EmptySourceError。
func IsEmptySource(err error) bool {
	var e *EmptySourceError
	return errors.As(err, &e)
}

// ErrNoExternalData 表示所有外部列表都没有产出记录（无数据可比，不同于“无交集”）。
var ErrNoExternalData = errors.New("没有从外部列表中抽取到任何影片")
