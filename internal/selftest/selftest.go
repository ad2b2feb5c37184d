// Package selftest runs fixed sample queries through the aggregator and
// reports how many candidates survived verification.
package selftest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grow-with-growth/growyourneed/internal/aggregator"
	"github.com/grow-with-growth/growyourneed/internal/content"
)

const maxSamples = 3

// DefaultQueries are the sample queries per category. Live TV takes no query.
var DefaultQueries = map[content.Category]string{
	content.CategoryMovies: "Avengers",
	content.CategoryTV:     "Breaking Bad",
	content.CategoryBooks:  "Harry Potter",
	content.CategoryLiveTV: "",
}

// Runner is the aggregation entry point the suite exercises.
type Runner interface {
	Run(ctx context.Context, category content.Category, query string, opts aggregator.Options) (aggregator.Report, error)
}

// CategoryResult is the outcome for one category.
type CategoryResult struct {
	Category    content.Category       `json:"category"`
	Query       string                 `json:"query,omitempty"`
	SuccessRate float64                `json:"success_rate"`
	Working     int                    `json:"working"`
	Total       int                    `json:"total"`
	Samples     []content.VerifiedItem `json:"samples"`
	Error       string                 `json:"error,omitempty"`
	TestedAt    time.Time              `json:"tested_at"`
}

// Result is the outcome of the full suite.
type Result struct {
	OverallHealth float64                   `json:"overall_health"`
	Categories    map[string]CategoryResult `json:"categories"`
	Timestamp     time.Time                 `json:"timestamp"`
}

// Suite runs the sample queries.
type Suite struct {
	runner  Runner
	clock   content.Clock
	queries map[content.Category]string
	options map[content.Category]aggregator.Options
	logger  *zap.Logger
}

// New builds a Suite. options supplies per-category limits; missing entries use defaults.
func New(
	runner Runner,
	clock content.Clock,
	options map[content.Category]aggregator.Options,
	logger *zap.Logger,
) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		runner:  runner,
		clock:   clock,
		queries: DefaultQueries,
		options: options,
		logger:  logger.Named("selftest"),
	}
}

// RunCategory runs the sample query of one category, uncached.
func (s *Suite) RunCategory(ctx context.Context, category content.Category) CategoryResult {
	query := s.queries[category]
	opts := s.options[category]
	opts.Verify = true

	result := CategoryResult{
		Category: category,
		Query:    query,
		Samples:  []content.VerifiedItem{},
	}
	report, err := s.runner.Run(ctx, category, query, opts)
	result.TestedAt = s.clock.Now()
	if err != nil {
		result.Error = err.Error()
		s.logger.Warn("self-test category failed", zap.String("category", string(category)), zap.Error(err))
		return result
	}

	result.Total = report.Candidates
	result.Working = report.Verified
	if result.Total > 0 {
		result.SuccessRate = float64(result.Working) / float64(result.Total) * 100
	}
	samples := report.Items
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	result.Samples = append(result.Samples, samples...)

	s.logger.Info("self-test category finished",
		zap.String("category", string(category)),
		zap.Int("working", result.Working),
		zap.Int("total", result.Total),
		zap.Float64("success_rate", result.SuccessRate),
	)
	return result
}

// RunAll runs every category concurrently. overall_health is the mean success rate.
func (s *Suite) RunAll(ctx context.Context) Result {
	results := make([]CategoryResult, len(content.Categories))
	var g errgroup.Group
	for i, category := range content.Categories {
		g.Go(func() error {
			results[i] = s.RunCategory(ctx, category)
			return nil
		})
	}
	_ = g.Wait()

	out := Result{
		Categories: make(map[string]CategoryResult, len(results)),
		Timestamp:  s.clock.Now(),
	}
	var sum float64
	for _, r := range results {
		out.Categories[ResultKey(r.Category)] = r
		sum += r.SuccessRate
	}
	out.OverallHealth = sum / float64(len(results))
	return out
}

// ResultKey is the name a category is reported under.
func ResultKey(c content.Category) string {
	if c == content.CategoryTV {
		return "tv_shows"
	}
	return string(c)
}
