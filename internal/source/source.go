// Package source implements the content sources the aggregator fans out to.
//
// Each configured source names an explicit Kind; there is no dispatch on URL
// contents. Searchers (embed, eztv, libgen, download) answer free-text
// queries, Listers (m3u, channels) return a fixed catalogue.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	collyfetcher "github.com/grow-with-growth/growyourneed/internal/fetcher/colly"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

// Kind selects the source implementation.
type Kind string

// Supported source kinds.
const (
	KindEmbed    Kind = "embed"
	KindEZTV     Kind = "eztv"
	KindLibgen   Kind = "libgen"
	KindDownload Kind = "download"
	KindM3U      Kind = "m3u"
	KindChannels Kind = "channels"
)

var (
	// ErrUnknownKind reports a source kind that has no implementation.
	ErrUnknownKind = errors.New("unknown source kind")
	// ErrKindCategory reports a source kind configured under a category it cannot serve.
	ErrKindCategory = errors.New("source kind does not serve category")
	// ErrInvalidSpec reports a source definition missing required fields.
	ErrInvalidSpec = errors.New("invalid source definition")
)

var kindCategories = map[Kind][]content.Category{
	KindEmbed:    {content.CategoryMovies, content.CategoryTV},
	KindEZTV:     {content.CategoryTV},
	KindLibgen:   {content.CategoryBooks},
	KindDownload: {content.CategoryBooks},
	KindM3U:      {content.CategoryLiveTV},
	KindChannels: {content.CategoryLiveTV},
}

// Channel is one entry of a static live-TV list.
type Channel struct {
	Name  string `mapstructure:"name"`
	URL   string `mapstructure:"url"`
	Logo  string `mapstructure:"logo"`
	Group string `mapstructure:"group"`
}

// Spec is the configuration of a single source.
type Spec struct {
	Name     string    `mapstructure:"name"`
	Kind     Kind      `mapstructure:"kind"`
	URL      string    `mapstructure:"url"`
	Format   string    `mapstructure:"format"`
	Gateway  string    `mapstructure:"gateway"`
	Probe    string    `mapstructure:"probe"`
	Episodes int       `mapstructure:"episodes"`
	Channels []Channel `mapstructure:"channels"`
}

// PageFetcher retrieves catalogue pages. *collyfetcher.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (collyfetcher.Page, error)
}

// Deps are the collaborators shared by every source.
type Deps struct {
	Fetcher PageFetcher
	IDs     *uuid.Generator
	Logger  *zap.Logger
}

// Registry holds the ordered sources of each category.
type Registry map[content.Category][]content.Source

// Build constructs the registry from per-category definitions. Order within a
// category is preserved.
func Build(specs map[content.Category][]Spec, deps Deps) (Registry, error) {
	if deps.IDs == nil {
		deps.IDs = uuid.NewUUIDGenerator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	reg := make(Registry, len(specs))
	for category, list := range specs {
		for i, spec := range list {
			src, err := New(category, spec, deps)
			if err != nil {
				return nil, fmt.Errorf("%s source %d (%s): %w", category, i, spec.Name, err)
			}
			reg[category] = append(reg[category], src)
		}
	}
	return reg, nil
}

// New builds one source for the category.
func New(category content.Category, spec Spec, deps Deps) (content.Source, error) {
	if err := spec.validate(category); err != nil {
		return nil, err
	}
	if deps.IDs == nil {
		deps.IDs = uuid.NewUUIDGenerator()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("source").With(zap.String("source", spec.Name))
	if deps.Fetcher == nil && (spec.Kind == KindEZTV || spec.Kind == KindLibgen || spec.Kind == KindM3U) {
		return nil, fmt.Errorf("%w: %s needs a page fetcher", ErrInvalidSpec, spec.Kind)
	}

	switch spec.Kind {
	case KindEmbed:
		return content.Searching(newEmbed(category, spec, deps.IDs)), nil
	case KindDownload:
		return content.Searching(newDownload(spec, deps.IDs)), nil
	case KindChannels:
		return content.Listing(newChannels(spec, deps.IDs)), nil
	case KindEZTV:
		return content.Searching(newEZTV(spec, deps.Fetcher, deps.IDs, logger)), nil
	case KindLibgen:
		return content.Searching(newLibgen(spec, deps.Fetcher, deps.IDs, logger)), nil
	case KindM3U:
		return content.Listing(newM3U(spec, deps.Fetcher, deps.IDs, logger)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

func (s Spec) validate(category content.Category) error {
	served, ok := kindCategories[s.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if !lo.Contains(served, category) {
		return fmt.Errorf("%w: %s cannot serve %s", ErrKindCategory, s.Kind, category)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	switch s.Kind {
	case KindChannels:
		if len(s.Channels) == 0 {
			return fmt.Errorf("%w: channels list is empty", ErrInvalidSpec)
		}
	case KindEZTV, KindLibgen:
		// base URL has a default
	default:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%w: url is required for %s", ErrInvalidSpec, s.Kind)
		}
	}
	if s.Probe != "" && s.Probe != "generic" && s.Probe != "manifest" {
		return fmt.Errorf("%w: probe must be generic or manifest, got %q", ErrInvalidSpec, s.Probe)
	}
	return nil
}

func (s Spec) probeKind(fallback content.ProbeKind) content.ProbeKind {
	switch s.Probe {
	case "manifest":
		return content.ProbeStreamManifest
	case "generic":
		return content.ProbeGeneric
	default:
		return fallback
	}
}

func truncate(items []content.CandidateItem, limit int) []content.CandidateItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
