// Package extract turns raw fetched payloads into records.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractorFunc pulls one candidate value out of a parsed document.
// Fields with several known markups chain these; first non-empty wins.
type extractorFunc func(doc *goquery.Document) string

func firstNonEmpty(doc *goquery.Document, chain ...extractorFunc) string {
	for _, fn := range chain {
		if v := strings.TrimSpace(fn(doc)); v != "" {
			return v
		}
	}
	return ""
}

// selText concatenates the text of every node matching selector.
func selText(selector string) extractorFunc {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).Text()
	}
}

// selFirstText takes the text of the first node matching selector.
func selFirstText(selector string) extractorFunc {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

// labelSibling finds an element whose own text carries the label and
// joins the text of its following span/a siblings.
func labelSibling(label string) extractorFunc {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.Contains(ownText(s), label) {
				return true
			}
			var parts []string
			s.NextAll().Filter("span, a").Each(func(_ int, sib *goquery.Selection) {
				if t := strings.TrimSpace(sib.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			if len(parts) > 0 {
				out = strings.Join(parts, " ")
				return false
			}
			return true
		})
		return out
	}
}

// metricCounter resolves an engagement counter by label proximity: an
// anchor containing the label with a span>em counter, else any labeled
// element with a strong counter.
func metricCounter(label string) extractorFunc {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.Contains(s.Text(), label) {
				return true
			}
			if v := strings.TrimSpace(s.Find("span em").First().Text()); v != "" {
				out = v
				return false
			}
			return true
		})
		if out != "" {
			return out
		}
		doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.Contains(ownText(s), label) {
				return true
			}
			if v := strings.TrimSpace(s.Find("strong").First().Text()); v != "" {
				out = v
				return false
			}
			return true
		})
		return out
	}
}

// ownText returns the element's direct text, excluding child elements.
func ownText(s *goquery.Selection) string {
	return s.Contents().Not("*").Text()
}
