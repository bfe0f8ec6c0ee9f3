// Package extract 把列表页面 HTML 解析为标题记录。
package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// Page 是单页解析结果。
type Page struct {
	Records []domain.TitleRecord
	// HasNext 表示页面中存在“下一页”导航（a.next）。
	HasNext bool
}

// Extractor 把“页面结构变化”限制在 extract 包内部；分页流程只依赖统一接口。
//
// 约束：
// - Extract 必须是纯函数：相同输入 => 相同输出
// - 每条记录的 Source 都是调用方给出的 label
type Extractor interface {
	Shape() domain.PageShape
	Extract(body []byte, label string) (Page, error)
}

const nextPageSelector = "a.next"

// parse 对空 body 不报错：空页面与“没有记录”的页面语义相同。
func parse(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func hasNext(doc *goquery.Document) bool {
	return doc.Find(nextPageSelector).Length() > 0
}

func record(name, label string) (domain.TitleRecord, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.TitleRecord{}, false
	}
	return domain.TitleRecord{Name: name, Source: label}, true
}
