package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

const (
	extInfPrefix   = "#EXTINF:"
	defaultGroup   = "General"
	unknownChannel = "Unknown Channel"
	maxM3ULineSize = 1 << 20
)

// m3u lists the channels of a remote extended-M3U playlist.
type m3u struct {
	name    string
	url     string
	kind    content.ProbeKind
	fetcher PageFetcher
	ids     *uuid.Generator
	logger  *zap.Logger
}

func newM3U(spec Spec, fetcher PageFetcher, ids *uuid.Generator, logger *zap.Logger) *m3u {
	return &m3u{
		name:    spec.Name,
		url:     spec.URL,
		kind:    spec.probeKind(content.ProbeStreamManifest),
		fetcher: fetcher,
		ids:     ids,
		logger:  logger,
	}
}

func (m *m3u) Name() string { return m.name }

func (m *m3u) List(ctx context.Context) ([]content.CandidateItem, error) {
	page, err := m.fetcher.Fetch(ctx, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", m.url, err)
	}
	entries, err := ParsePlaylist(page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse playlist %s: %w", m.url, err)
	}
	m.logger.Debug("playlist parsed", zap.Int("channels", len(entries)))

	items := make([]content.CandidateItem, 0, len(entries))
	for _, e := range entries {
		item := content.CandidateItem{
			ID:           m.ids.ItemID(m.name, e.URL),
			Title:        e.Title,
			Description:  content.Ptr(e.Group),
			StreamURLs:   []string{e.URL},
			DownloadURLs: []string{},
			Quality:      []string{"Live"},
			Genre:        []string{e.Group},
			Language:     []string{"en"},
			StreamKind:   m.kind,
		}
		if e.Logo != "" {
			item.ImageURL = content.Ptr(e.Logo)
		}
		if e.Language != "" {
			item.Language = strings.Split(e.Language, ";")
		}
		items = append(items, item)
	}
	return items, nil
}

// PlaylistEntry is one channel of an extended M3U playlist.
type PlaylistEntry struct {
	Title    string
	URL      string
	Logo     string
	Group    string
	Language string
}

// ParsePlaylist reads #EXTINF entries. An entry is kept only when the line
// after its #EXTINF is an http(s) URL; that line is consumed either way.
func ParsePlaylist(body []byte) ([]PlaylistEntry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64<<10), maxM3ULineSize)

	var (
		entries []PlaylistEntry
		pending string
		inEntry bool
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if inEntry {
			inEntry = false
			if strings.HasPrefix(line, "http") {
				entries = append(entries, PlaylistEntry{
					Title:    extinfTitle(pending),
					URL:      line,
					Logo:     extinfAttr(pending, "tvg-logo"),
					Group:    groupOrDefault(extinfAttr(pending, "group-title")),
					Language: extinfAttr(pending, "tvg-language"),
				})
			}
			continue
		}
		if strings.HasPrefix(line, extInfPrefix) {
			pending = line
			inEntry = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	return entries, nil
}

func extinfTitle(line string) string {
	idx := strings.LastIndex(line, ",")
	if idx < 0 {
		return unknownChannel
	}
	return strings.TrimSpace(line[idx+1:])
}

func extinfAttr(line, attr string) string {
	marker := attr + `="`
	start := strings.Index(line, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	end := strings.IndexByte(line[start:], '"')
	if end < 0 {
		return ""
	}
	return line[start : start+end]
}

func groupOrDefault(group string) string {
	if group == "" {
		return defaultGroup
	}
	return group
}
