package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

const defaultEZTVBase = "https://eztv.re"

var (
	episodePattern    = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})\b`)
	resolutionPattern = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p)\b`)
	htmlHeaders       = http.Header{"Accept": {"text/html,application/xhtml+xml"}}
)

// eztv scrapes the torrent index search page.
type eztv struct {
	name    string
	base    *url.URL
	gateway string
	kind    content.ProbeKind
	fetcher PageFetcher
	ids     *uuid.Generator
	logger  *zap.Logger
}

func newEZTV(spec Spec, fetcher PageFetcher, ids *uuid.Generator, logger *zap.Logger) *eztv {
	return &eztv{
		name:    spec.Name,
		base:    baseURL(spec.URL, defaultEZTVBase),
		gateway: spec.Gateway,
		kind:    spec.probeKind(content.ProbeGeneric),
		fetcher: fetcher,
		ids:     ids,
		logger:  logger,
	}
}

func (e *eztv) Name() string { return e.name }

func (e *eztv) Search(ctx context.Context, query string, limit int) ([]content.CandidateItem, error) {
	searchURL := e.base.JoinPath("search", dashed(query)).String()
	page, err := e.fetcher.Fetch(ctx, searchURL, htmlHeaders)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", searchURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", searchURL, err)
	}

	var items []content.CandidateItem
	doc.Find("tr.forum_header_border").Each(func(_ int, row *goquery.Selection) {
		if item, ok := e.parseRow(row); ok {
			items = append(items, item)
		}
	})
	e.logger.Debug("eztv rows parsed", zap.String("url", searchURL), zap.Int("items", len(items)))
	return truncate(items, limit), nil
}

func (e *eztv) parseRow(row *goquery.Selection) (content.CandidateItem, bool) {
	link := row.Find("a.epinfo").First()
	if link.Length() == 0 {
		link = row.Find(".forum_thread_post a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) != ""
		}).First()
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return content.CandidateItem{}, false
	}

	magnet, _ := row.Find(`a[href^="magnet:"]`).First().Attr("href")
	pageHref, _ := link.Attr("href")
	stream := e.streamURL(magnet, pageHref)
	if stream == "" {
		return content.CandidateItem{}, false
	}

	item := content.CandidateItem{
		ID:           e.ids.ItemID(e.name, stream),
		Title:        title,
		StreamURLs:   []string{stream},
		DownloadURLs: []string{},
		Quality:      []string{qualityOf(title)},
		Genre:        []string{"TV"},
		Language:     []string{"en"},
		StreamKind:   e.kind,
	}
	if size := strings.TrimSpace(row.Find("td:nth-child(4)").Text()); size != "" {
		item.Size = content.Ptr(size)
	}
	if seeds, ok := parseCount(row.Find("td:nth-child(6)").Text()); ok {
		item.Seeds = content.Ptr(seeds)
	}
	if m := episodePattern.FindStringSubmatch(title); m != nil {
		season, _ := strconv.Atoi(m[1])
		number, _ := strconv.Atoi(m[2])
		item.Episodes = []content.Episode{{Season: season, Number: number, Title: title, StreamURL: stream}}
	}
	return item, true
}

// streamURL prefers the torrent gateway when one is configured and a magnet is present.
func (e *eztv) streamURL(magnet, pageHref string) string {
	if e.gateway != "" && magnet != "" {
		return strings.ReplaceAll(e.gateway, "{magnet}", url.QueryEscape(magnet))
	}
	if pageHref == "" {
		return ""
	}
	ref, err := url.Parse(pageHref)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

func qualityOf(title string) string {
	if m := resolutionPattern.FindString(title); m != "" {
		return strings.ToLower(m)
	}
	return "720p"
}

func parseCount(raw string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

func baseURL(raw, fallback string) *url.URL {
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || u.Host == "" {
		u, _ = url.Parse(fallback)
	}
	return u
}
