package content

import (
	"context"
	"time"
)

// Searcher is a source that answers free-text queries.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]CandidateItem, error)
}

// Lister is a catalog source whose candidates do not depend on a query.
type Lister interface {
	Name() string
	List(ctx context.Context) ([]CandidateItem, error)
}

// Prober classifies a URL as alive. Implementations never fail; any problem
// is reported as false.
type Prober interface {
	Probe(ctx context.Context, url string, kind ProbeKind) bool
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Source is the uniform capability the aggregator fans out to. Searchers and
// Listers are adapted to it with Searching and Listing.
type Source interface {
	Name() string
	Candidates(ctx context.Context, query string, limit int) ([]CandidateItem, error)
}

// Searching adapts a Searcher to Source.
func Searching(s Searcher) Source {
	return searcherSource{s}
}

// Listing adapts a Lister to Source; the query and limit are ignored.
func Listing(l Lister) Source {
	return listerSource{l}
}

type searcherSource struct{ Searcher }

func (s searcherSource) Candidates(ctx context.Context, query string, limit int) ([]CandidateItem, error) {
	return s.Search(ctx, query, limit)
}

type listerSource struct{ Lister }

func (l listerSource) Candidates(ctx context.Context, _ string, _ int) ([]CandidateItem, error) {
	return l.List(ctx)
}
