// Package aggregator turns source candidates into a verified, ranked result set.
//
// A call fans out to every source of a category, probes the URLs the category
// rule requires, drops anything without a live URL, ranks, and truncates.
// All goroutines started by a call have joined before it returns.
package aggregator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/metrics"
)

const defaultProbeConcurrency = 12

// Config tunes the aggregator.
type Config struct {
	// ProbeConcurrency bounds in-flight probes per call.
	ProbeConcurrency int
}

// Options are the per-call parameters.
type Options struct {
	Limit         int
	Verify        bool
	MaxCandidates int
}

// Report summarizes one aggregation call.
type Report struct {
	Category      content.Category       `json:"category"`
	Query         string                 `json:"query,omitempty"`
	Sources       int                    `json:"sources"`
	FailedSources int                    `json:"failed_sources"`
	Candidates    int                    `json:"candidates"`
	Probed        int                    `json:"probed"`
	Verified      int                    `json:"verified"`
	Duration      time.Duration          `json:"duration"`
	Items         []content.VerifiedItem `json:"-"`
}

// Aggregator produces verified result sets.
type Aggregator struct {
	sources map[content.Category][]content.Source
	prober  content.Prober
	clock   content.Clock
	cfg     Config
	logger  *zap.Logger
}

// New builds an Aggregator over the per-category sources.
func New(
	sources map[content.Category][]content.Source,
	prober content.Prober,
	clock content.Clock,
	cfg Config,
	logger *zap.Logger,
) *Aggregator {
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = defaultProbeConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		sources: sources,
		prober:  prober,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.Named("aggregator"),
	}
}

// Produce returns the verified items for the query.
func (a *Aggregator) Produce(
	ctx context.Context,
	category content.Category,
	query string,
	opts Options,
) ([]content.VerifiedItem, error) {
	report, err := a.Run(ctx, category, query, opts)
	if err != nil {
		return nil, err
	}
	return report.Items, nil
}

// SourceCount reports how many sources serve the category.
func (a *Aggregator) SourceCount(c content.Category) int {
	return len(a.sources[c])
}

// Run aggregates like Produce and also reports per-call counts.
func (a *Aggregator) Run(ctx context.Context, category content.Category, query string, opts Options) (Report, error) {
	start := time.Now()
	report := Report{Category: category, Query: query}

	if !slices.Contains(content.Categories, category) {
		return report, fmt.Errorf("%w: %q", content.ErrUnknownCategory, category)
	}
	if opts.Limit <= 0 {
		opts.Limit = category.DefaultLimit()
	}

	sources := a.sources[category]
	report.Sources = len(sources)
	if len(sources) == 0 {
		metrics.ObserveAggregation(string(category), "no_sources", time.Since(start))
		return report, fmt.Errorf("%w: no %s sources configured", content.ErrNoSourcesAvailable, category)
	}

	candidates, failed := a.collect(ctx, category, sources, query, opts.Limit)
	report.FailedSources = failed
	if failed == len(sources) {
		metrics.ObserveAggregation(string(category), "no_sources", time.Since(start))
		return report, fmt.Errorf("%w: all %d %s sources failed", content.ErrNoSourcesAvailable, failed, category)
	}
	if opts.MaxCandidates > 0 && len(candidates) > opts.MaxCandidates {
		candidates = candidates[:opts.MaxCandidates]
	}
	report.Candidates = len(candidates)

	checks := planChecks(category, candidates, opts.Verify)
	report.Probed = len(checks)
	a.probe(ctx, checks)

	now := a.clock.Now()
	outcomes := groupChecks(checks)
	items := make([]content.VerifiedItem, 0, len(candidates))
	for i, candidate := range candidates {
		shaped, ok := verify(category, candidate, outcomes[i])
		if !ok {
			continue
		}
		items = append(items, content.VerifiedItem{
			CandidateItem: shaped,
			IsVerified:    true,
			LastTested:    now,
		})
	}

	if category.RanksBySeeds() {
		slices.SortStableFunc(items, func(x, y content.VerifiedItem) int {
			return cmp.Compare(y.SeedCount(), x.SeedCount())
		})
	}
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	report.Items = items
	report.Verified = len(items)
	report.Duration = time.Since(start)

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.ObserveAggregation(string(category), outcome, report.Duration)
	a.logger.Info("aggregation finished",
		zap.String("category", string(category)),
		zap.String("query", query),
		zap.Int("sources", report.Sources),
		zap.Int("failed_sources", report.FailedSources),
		zap.Int("candidates", report.Candidates),
		zap.Int("probed", report.Probed),
		zap.Int("verified", report.Verified),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// collect queries every source concurrently and merges results in source order.
func (a *Aggregator) collect(
	ctx context.Context,
	category content.Category,
	sources []content.Source,
	query string,
	limit int,
) ([]content.CandidateItem, int) {
	results := make([][]content.CandidateItem, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			results[i], errs[i] = src.Candidates(ctx, query, limit)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged []content.CandidateItem
		failed int
	)
	for i, src := range sources {
		if errs[i] != nil {
			failed++
			metrics.ObserveSourceFailure(string(category), src.Name())
			a.logger.Warn("source failed",
				zap.String("category", string(category)),
				zap.String("source", src.Name()),
				zap.Error(errs[i]),
			)
			continue
		}
		merged = append(merged, results[i]...)
	}
	return merged, failed
}

func (a *Aggregator) probe(ctx context.Context, checks []check) {
	var g errgroup.Group
	g.SetLimit(a.cfg.ProbeConcurrency)
	for i := range checks {
		g.Go(func() error {
			checks[i].alive = a.prober.Probe(ctx, checks[i].url, checks[i].kind)
			return nil
		})
	}
	_ = g.Wait()
}
