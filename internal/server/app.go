// Package server builds the service's dependency graph and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/aggregator"
	"github.com/grow-with-growth/growyourneed/internal/api"
	"github.com/grow-with-growth/growyourneed/internal/cache"
	"github.com/grow-with-growth/growyourneed/internal/clock/system"
	"github.com/grow-with-growth/growyourneed/internal/config"
	"github.com/grow-with-growth/growyourneed/internal/content"
	collyfetcher "github.com/grow-with-growth/growyourneed/internal/fetcher/colly"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
	"github.com/grow-with-growth/growyourneed/internal/logging"
	"github.com/grow-with-growth/growyourneed/internal/policy/ratelimit"
	"github.com/grow-with-growth/growyourneed/internal/probe"
	"github.com/grow-with-growth/growyourneed/internal/selftest"
	"github.com/grow-with-growth/growyourneed/internal/source"
)

const defaultShutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	prober     *probe.Probe
	aggregator *aggregator.Aggregator
	cache      *cache.Tiered
	redis      *cache.Redis
	suite      *selftest.Suite
	apiServer  *api.Server
}

// Build creates the application's dependencies. Nothing here touches the
// network; the shared cache tier connects lazily.
func Build(cfg *config.Config) (*App, error) {
	logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("shared_cache", cfg.Cache.RedisURL != ""),
	)

	clock := system.New()
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})
	if cfg.RateLimit.RPS > 0 {
		logger.Info("rate limiter enabled",
			zap.Float64("default_rps", cfg.RateLimit.RPS),
			zap.Int("default_burst", cfg.RateLimit.Burst),
		)
	}

	app.prober = probe.New(probe.Config{
		Timeout:          cfg.ProbeTimeout(),
		UserAgent:        cfg.Probe.UserAgent,
		MaxManifestBytes: cfg.Probe.MaxManifestBytes,
	}, limiter, logger)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Fetcher.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxBodySize: cfg.Fetcher.MaxBodyBytes,
	}, limiter)

	specs, err := cfg.SourceSpecs()
	if err != nil {
		return nil, fmt.Errorf("source config invalid: %w", err)
	}
	registry, err := source.Build(specs, source.Deps{
		Fetcher: fetcher,
		IDs:     uuid.NewUUIDGenerator(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("source init failed: %w", err)
	}
	for _, c := range content.Categories {
		logger.Info("sources registered", zap.String("category", string(c)), zap.Int("count", len(registry[c])))
	}

	app.aggregator = aggregator.New(registry, app.prober, clock, aggregator.Config{
		ProbeConcurrency: cfg.Aggregator.ProbeConcurrency,
	}, logger)

	if err = setupCache(app, clock); err != nil {
		return nil, err
	}

	app.suite = selftest.New(app.aggregator, clock, selfTestOptions(cfg), logger)
	app.apiServer = api.NewServer(app.aggregator, app.cache, app.prober, app.suite, clock, *cfg, logger)
	return app, nil
}

func setupCache(app *App, clock content.Clock) error {
	var shared cache.SharedTier
	if url := app.cfg.Cache.RedisURL; url != "" {
		redis, err := cache.OpenRedis(url, app.cfg.RedisTimeout())
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		app.redis = redis
		shared = redis
		app.logger.Info("shared cache tier enabled")
	} else {
		app.logger.Warn("no redis url configured, shared cache tier disabled")
	}

	ttls := make(map[content.Category]time.Duration, len(content.Categories))
	for _, c := range content.Categories {
		ttls[c] = app.cfg.Category(c).TTL()
	}
	tiered, err := cache.New(cache.Config{
		LocalCapacity: app.cfg.Cache.LocalCapacity,
		SharedTimeout: app.cfg.RedisTimeout(),
		TTLs:          ttls,
	}, shared, clock, app.logger)
	if err != nil {
		return fmt.Errorf("cache init failed: %w", err)
	}
	app.cache = tiered
	return nil
}

func selfTestOptions(cfg *config.Config) map[content.Category]aggregator.Options {
	out := make(map[content.Category]aggregator.Options, len(content.Categories))
	for _, c := range content.Categories {
		cc := cfg.Category(c)
		out[c] = aggregator.Options{Limit: cc.Limit, Verify: true, MaxCandidates: cc.MaxCandidates}
	}
	return out
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Prober returns the liveness probe.
func (a *App) Prober() content.Prober { return a.prober }

// Suite returns the self-test suite.
func (a *App) Suite() *selftest.Suite { return a.suite }

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// Run listens on the configured port and blocks until the context is
// canceled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until shutdown.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.SelfTest.OnStartup {
		go a.startupSelfTest(ctx)
	}

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

func (a *App) startupSelfTest(ctx context.Context) {
	result := a.suite.RunAll(ctx)
	fields := []zap.Field{zap.Float64("overall_health", result.OverallHealth)}
	for name, r := range result.Categories {
		fields = append(fields, zap.Float64(name+"_success_rate", r.SuccessRate))
	}
	a.logger.Info("startup self-test complete", fields...)
}

// Close releases the shared cache connection and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
