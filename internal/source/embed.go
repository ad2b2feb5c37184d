package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

const defaultEpisodeCount = content.TVStreamCap

// embed expands a player URL template into a single candidate.
type embed struct {
	name     string
	category content.Category
	template string
	episodes int
	kind     content.ProbeKind
	ids      *uuid.Generator
}

func newEmbed(category content.Category, spec Spec, ids *uuid.Generator) *embed {
	episodes := spec.Episodes
	if episodes <= 0 {
		episodes = defaultEpisodeCount
	}
	return &embed{
		name:     spec.Name,
		category: category,
		template: spec.URL,
		episodes: episodes,
		kind:     spec.probeKind(content.ProbeGeneric),
		ids:      ids,
	}
}

func (e *embed) Name() string { return e.name }

func (e *embed) Search(_ context.Context, query string, _ int) ([]content.CandidateItem, error) {
	query = strings.TrimSpace(query)
	ids := LookupTitle(query)

	item := content.CandidateItem{
		Title:        fmt.Sprintf("%s (%s)", query, e.name),
		StreamURLs:   []string{},
		DownloadURLs: []string{},
		Quality:      []string{"HD"},
		Language:     []string{"en"},
		StreamKind:   e.kind,
	}

	if e.category == content.CategoryTV {
		item.Genre = []string{"TV"}
		for n := 1; n <= e.episodes; n++ {
			link := expandEmbed(e.template, query, ids, 1, n)
			item.Episodes = append(item.Episodes, content.Episode{
				Season:    1,
				Number:    n,
				Title:     fmt.Sprintf("S01E%02d", n),
				StreamURL: link,
			})
		}
		item.StreamURLs = lo.Uniq(lo.Map(item.Episodes, func(ep content.Episode, _ int) string {
			return ep.StreamURL
		}))
	} else {
		item.Genre = []string{"Movie"}
		item.StreamURLs = []string{expandEmbed(e.template, query, ids, 1, 1)}
	}

	item.ID = e.ids.ItemID(e.name, item.StreamURLs[0])
	return []content.CandidateItem{item}, nil
}

func expandEmbed(template, query string, ids TitleIDs, season, episode int) string {
	return strings.NewReplacer(
		"{imdb}", ids.IMDB,
		"{tmdb}", ids.TMDB,
		"{query}", url.PathEscape(content.NormalizeQuery(query)),
		"{season}", itoa(season),
		"{episode}", itoa(episode),
	).Replace(template)
}
