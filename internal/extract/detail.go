package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

// Detail extracts exactly one record from a rendered post detail page.
type Detail struct {
	logger *zap.Logger
}

// NewDetail builds the detail-page extractor.
func NewDetail(logger *zap.Logger) *Detail {
	return &Detail{logger: logger}
}

// Extract reads the detail document through the per-field fallback
// chains. It always yields a single record; a page with no recoverable
// text yields one with empty text, which downstream drops.
func (d *Detail) Extract(html, pageURL, keyword string) (harvest.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return harvest.Record{}, fmt.Errorf("parse detail document: %w", err)
	}

	text := firstNonEmpty(doc,
		selText("div.WB_text"),
		selText("div.detail_wbtext_wrap"),
	)

	author := firstNonEmpty(doc,
		selFirstText("div.WB_info a.W_f14"),
		selFirstText("div.Feed_User_Nick a"),
	)
	if author == "" {
		author = harvest.AuthorUnknown
	}

	date := firstNonEmpty(doc,
		selFirstText(`div.WB_from a[suda-data*='time']`),
		selFirstText("div.WB_from a.S_txt2"),
		labelSibling("发布于"),
	)
	if date == "" {
		date = harvest.DateUnknown
	}

	metrics := harvest.Metrics{
		Reposts:  counter(doc, `a[action-type='feed_list_forward'] span em`, "转发"),
		Comments: counter(doc, `a[action-type='feed_list_comment'] span em`, "评论"),
		Likes:    likes(doc),
	}

	rec := harvest.Record{
		Text:        text,
		Author:      author,
		PublishedAt: date,
		Metrics:     metrics,
		ImageURLs:   images(doc),
		SourceURL:   pageURL,
		Keyword:     keyword,
	}
	d.logger.Debug("detail page extracted",
		zap.String("url", pageURL),
		zap.String("author", rec.Author),
		zap.Int("likes", rec.Metrics.Likes),
	)
	return rec, nil
}

func counter(doc *goquery.Document, selector, label string) int {
	raw := firstNonEmpty(doc,
		selFirstText(selector),
		metricCounter(label),
	)
	return harvest.ParseCount(raw)
}

func likes(doc *goquery.Document) int {
	raw := firstNonEmpty(doc,
		selFirstText(`a[action-type='feed_list_like'] span em`),
		selFirstText("button span.woo-like-count"),
		metricCounter("赞"),
	)
	return harvest.ParseCount(raw)
}

func images(doc *goquery.Document) []string {
	sel := doc.Find("div.media_box ul li img")
	if sel.Length() == 0 {
		sel = doc.Find("div.WB_pic img")
	}
	var urls []string
	sel.Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		urls = append(urls, NormalizeImageURL(src))
	})
	return urls
}

// NormalizeImageURL completes protocol-relative image URLs.
func NormalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "http:" + src
	}
	return src
}
