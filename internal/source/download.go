package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

// download expands a direct book download template.
type download struct {
	name     string
	template string
	format   string
	ids      *uuid.Generator
}

func newDownload(spec Spec, ids *uuid.Generator) *download {
	format := strings.ToUpper(strings.TrimSpace(spec.Format))
	if format == "" {
		format = formatFromURL(spec.URL)
	}
	return &download{
		name:     spec.Name,
		template: spec.URL,
		format:   format,
		ids:      ids,
	}
}

func (d *download) Name() string { return d.name }

func (d *download) Search(_ context.Context, query string, _ int) ([]content.CandidateItem, error) {
	query = strings.TrimSpace(query)
	link := strings.NewReplacer(
		"{md5}", QueryMD5(query),
		"{query_underscore}", url.PathEscape(underscored(query)),
		"{gutenberg}", itoa(GutenbergID(query)),
		"{book_id}", itoa(BookID(query)),
		"{query}", url.QueryEscape(content.NormalizeQuery(query)),
	).Replace(d.template)

	return []content.CandidateItem{{
		ID:           d.ids.ItemID(d.name, link),
		Title:        fmt.Sprintf("%s (%s)", query, d.format),
		Description:  content.Ptr("Direct download from " + d.name),
		StreamURLs:   []string{},
		DownloadURLs: []string{link},
		Quality:      []string{d.format},
		Genre:        []string{"Book"},
		Language:     []string{"en"},
	}}, nil
}

// formatFromURL guesses the file format from a template's extension.
func formatFromURL(template string) string {
	lower := strings.ToLower(template)
	switch {
	case strings.HasSuffix(lower, ".epub"):
		return "EPUB"
	case strings.HasSuffix(lower, ".txt"):
		return "TXT"
	case strings.HasSuffix(lower, ".mobi"):
		return "MOBI"
	default:
		return "PDF"
	}
}
