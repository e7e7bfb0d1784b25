// Package profile reads the visible text of a personal website.
package profile

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/agentcrew/internal/fetch"
)

// Scraper fetches a page and returns the text of its body.
type Scraper struct {
	Fetcher fetch.Getter
}

// Fetch returns the body text of url as whitespace-trimmed strings joined by
// single spaces. ok is false when the page could not be retrieved or has no
// body element.
func (s *Scraper) Fetch(ctx context.Context, url string) (text string, ok bool) {
	resp, err := s.Fetcher.Get(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("profile fetch failed")
		return "", false
	}
	return BodyText(resp.Body)
}

// BodyText extracts the stripped strings of the <body> of an HTML document.
func BodyText(page []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return "", false
	}
	body.Find("script, style, template, noscript").Remove()

	var parts []string
	collectStrings(body, &parts)
	return strings.Join(parts, " "), true
}

func collectStrings(sel *goquery.Selection, out *[]string) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		n := c.Get(0)
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				*out = append(*out, t)
			}
		case html.ElementNode:
			collectStrings(c, out)
		}
	})
}
