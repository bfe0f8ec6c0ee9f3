package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

// Watchlist 解析海报网格：每个 div.film-poster 内第一张图片的 alt 即标题。
//
// 注意：goquery 不执行 JS，懒加载的海报 src 可能是占位图，但 alt 始终在静态 HTML 里。
type Watchlist struct{}

func (Watchlist) Shape() domain.PageShape { return domain.ShapeWatchlist }

func (Watchlist) Extract(body []byte, label string) (Page, error) {
	doc, err := parse(body)
	if err != nil {
		return Page{}, err
	}

	var out []domain.TitleRecord
	doc.Find("div.film-poster").Each(func(_ int, poster *goquery.Selection) {
		alt, ok := poster.Find("img").First().Attr("alt")
		if !ok {
			return
		}
		if r, ok := record(alt, label); ok {
			out = append(out, r)
		}
	})
	return Page{Records: out, HasNext: hasNext(doc)}, nil
}
