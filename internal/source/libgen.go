package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

const defaultLibgenBase = "https://libgen.is"

// libgen scrapes the Library Genesis simple search results table.
type libgen struct {
	name    string
	base    *url.URL
	fetcher PageFetcher
	ids     *uuid.Generator
	logger  *zap.Logger
}

func newLibgen(spec Spec, fetcher PageFetcher, ids *uuid.Generator, logger *zap.Logger) *libgen {
	return &libgen{
		name:    spec.Name,
		base:    baseURL(spec.URL, defaultLibgenBase),
		fetcher: fetcher,
		ids:     ids,
		logger:  logger,
	}
}

func (l *libgen) Name() string { return l.name }

func (l *libgen) searchURL(query string) string {
	u := l.base.JoinPath("search.php")
	q := url.Values{}
	q.Set("req", content.NormalizeQuery(query))
	q.Set("lg_topic", "libgen")
	q.Set("open", "0")
	q.Set("view", "simple")
	q.Set("res", "25")
	q.Set("phrase", "1")
	q.Set("column", "def")
	u.RawQuery = q.Encode()
	return u.String()
}

func (l *libgen) Search(ctx context.Context, query string, limit int) ([]content.CandidateItem, error) {
	searchURL := l.searchURL(query)
	page, err := l.fetcher.Fetch(ctx, searchURL, htmlHeaders)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", searchURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", searchURL, err)
	}

	var items []content.CandidateItem
	doc.Find(`tr[valign="top"]`).Each(func(_ int, row *goquery.Selection) {
		if item, ok := l.parseRow(row); ok {
			items = append(items, item)
		}
	})
	l.logger.Debug("libgen rows parsed", zap.String("url", searchURL), zap.Int("items", len(items)))
	return truncate(items, limit), nil
}

func (l *libgen) parseRow(row *goquery.Selection) (content.CandidateItem, bool) {
	titleCell := row.Find("td:nth-child(3)")
	link := titleCell.Find("a[id]").First()
	if link.Length() == 0 {
		link = titleCell.Find("a").Last()
	}
	title := ownText(link)
	href, _ := link.Attr("href")
	if title == "" || href == "" {
		return content.CandidateItem{}, false
	}

	format := strings.ToUpper(strings.TrimSpace(row.Find("td:nth-child(9)").Text()))
	if format == "" {
		format = "PDF"
	}
	downloads := lo.Uniq(lo.Compact([]string{
		l.resolve(attr(row.Find("td:nth-child(10) a").First(), "href")),
		l.resolve(href),
	}))
	if len(downloads) == 0 {
		return content.CandidateItem{}, false
	}

	item := content.CandidateItem{
		ID:           l.ids.ItemID(l.name, downloads[len(downloads)-1]),
		Title:        title,
		StreamURLs:   []string{},
		DownloadURLs: downloads,
		Quality:      lo.Map(downloads, func(string, int) string { return format }),
		Genre:        []string{"Book"},
		Language:     []string{"en"},
	}
	if lang := strings.TrimSpace(row.Find("td:nth-child(7)").Text()); lang != "" {
		item.Language = []string{lang}
	}
	if author := strings.TrimSpace(row.Find("td:nth-child(2)").Text()); author != "" {
		item.Description = content.Ptr("Author: " + author)
	}
	if size := strings.TrimSpace(row.Find("td:nth-child(8)").Text()); size != "" {
		item.Size = content.Ptr(size)
	}
	return item, true
}

func (l *libgen) resolve(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return l.base.ResolveReference(ref).String()
}

// ownText returns the selection's direct text, skipping nested ISBN/edition markup.
func ownText(s *goquery.Selection) string {
	text := s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
	return strings.Join(strings.Fields(text), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}
