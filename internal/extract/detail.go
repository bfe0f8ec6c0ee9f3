package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// filmPathMarker 区分影片链接与列表里其它 h2 链接（作者、评论等）。
const filmPathMarker = "/film/"

// Detail 解析策展列表的 /detail/ 视图：每个 h2 内第一个指向影片的链接文本即标题。
type Detail struct{}

func (Detail) Shape() domain.PageShape { return domain.ShapeDetail }

func (Detail) Extract(body []byte, label string) (Page, error) {
	doc, err := parse(body)
	if err != nil {
		return Page{}, err
	}

	var out []domain.TitleRecord
	doc.Find("h2").Each(func(_ int, h *goquery.Selection) {
		a := h.Find("a").First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		if !strings.Contains(href, filmPathMarker) {
			return
		}
		if r, ok := record(a.Text(), label); ok {
			out = append(out, r)
		}
	})
	return Page{Records: out, HasNext: hasNext(doc)}, nil
}
