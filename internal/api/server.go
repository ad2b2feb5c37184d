// Package api exposes the HTTP interface for the content service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/aggregator"
	"github.com/grow-with-growth/growyourneed/internal/cache"
	"github.com/grow-with-growth/growyourneed/internal/config"
	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/metrics"
	"github.com/grow-with-growth/growyourneed/internal/selftest"
)

const defaultRequestTimeout = 120 * time.Second

// Version is reported by /api/health. It is set at link time.
var Version = "dev"

// Producer is the aggregation entry point.
type Producer interface {
	Produce(ctx context.Context, c content.Category, query string, opts aggregator.Options) ([]content.VerifiedItem, error)
	SourceCount(c content.Category) int
}

// Store is the verified result cache.
type Store interface {
	Get(ctx context.Context, key string) ([]content.VerifiedItem, bool)
	Set(ctx context.Context, key string, items []content.VerifiedItem, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Ping(ctx context.Context) cache.TierStatus
}

// Suite runs the sample self-test queries.
type Suite interface {
	RunAll(ctx context.Context) selftest.Result
	RunCategory(ctx context.Context, c content.Category) selftest.CategoryResult
}

// Server wires HTTP handlers to the aggregator, cache, and probe.
type Server struct {
	router   chi.Router
	producer Producer
	store    Store
	prober   content.Prober
	suite    Suite
	clock    content.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	producer Producer,
	store Store,
	prober content.Prober,
	suite Suite,
	clock content.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		producer: producer,
		store:    store,
		prober:   prober,
		suite:    suite,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.Named("api"),
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		r.Get("/health", s.health)
		r.Route("/search", func(r chi.Router) {
			r.Get("/movies", s.searchHandler(content.CategoryMovies))
			r.Get("/tv", s.searchHandler(content.CategoryTV))
			r.Get("/books", s.searchHandler(content.CategoryBooks))
		})
		r.Get("/live-tv/verified", s.searchHandler(content.CategoryLiveTV))
		r.Get("/verify/stream", s.verifyStream)
		r.Get("/verify/stream/*", s.verifyStream)
		r.Get("/test/full", s.runFullTest)
		r.Get("/test/{category}", s.runCategoryTest)
		r.Delete("/cache", s.clearCache)
		r.Delete("/cache/{key}", s.deleteCacheKey)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	for _, c := range content.Categories {
		if s.producer.SourceCount(c) > 0 {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
	}
	writeError(w, http.StatusServiceUnavailable, "no sources configured")
}

var serviceNames = map[content.Category]string{
	content.CategoryMovies: "movie_search",
	content.CategoryTV:     "tv_search",
	content.CategoryBooks:  "book_search",
	content.CategoryLiveTV: "live_tv",
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string, len(serviceNames)+1)
	for c, name := range serviceNames {
		status := "operational"
		if s.producer.SourceCount(c) == 0 {
			status = "unavailable"
		}
		services[name] = status
	}
	services["shared_cache"] = string(s.store.Ping(r.Context()))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.clock.Now(),
		"version":   Version,
		"services":  services,
	})
}

// searchHandler serves a category's verified set. The aggregator is always
// asked for the category cap so the cached set serves every smaller limit.
func (s *Server) searchHandler(category content.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		query := strings.TrimSpace(params.Get("q"))
		if category != content.CategoryLiveTV && query == "" {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}

		settings := s.cfg.Category(category)
		limit, err := parseLimit(params.Get("limit"), settings.Limit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		verify := true
		if category == content.CategoryMovies {
			if verify, err = parseVerify(params.Get("verify")); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		key := content.CacheKey(category, query, verify)
		if items, ok := s.store.Get(r.Context(), key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, truncate(items, limit))
			return
		}

		// Probes finish and populate the cache even if the client disconnects.
		ctx := context.WithoutCancel(r.Context())
		items, err := s.producer.Produce(ctx, category, query, aggregator.Options{
			Limit:         settings.Limit,
			Verify:        verify,
			MaxCandidates: settings.MaxCandidates,
		})
		if err != nil {
			s.logger.Error("aggregation failed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("category", string(category)),
				zap.String("query", query),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, aggregationMessage(err))
			return
		}
		s.store.Set(ctx, key, items, settings.TTL())

		w.Header().Set("X-Cache", "MISS")
		writeJSON(w, http.StatusOK, truncate(items, limit))
	}
}

func (s *Server) verifyStream(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	if raw == "" {
		raw = r.URL.Query().Get("url")
	}
	target, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(target) == "" {
		writeError(w, http.StatusBadRequest, "missing or malformed stream url")
		return
	}
	working := s.prober.Probe(context.WithoutCancel(r.Context()), target, content.ProbeGeneric)
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        target,
		"is_working": working,
		"tested_at":  s.clock.Now(),
	})
}

func (s *Server) runFullTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.suite.RunAll(context.WithoutCancel(r.Context())))
}

func (s *Server) runCategoryTest(w http.ResponseWriter, r *http.Request) {
	category, err := content.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.suite.RunCategory(context.WithoutCancel(r.Context()), category))
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.store.Clear(r.Context())
	s.logger.Info("cache cleared", zap.String("request_id", RequestID(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) deleteCacheKey(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "missing or malformed cache key")
		return
	}
	s.store.Delete(r.Context(), key)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "key": key})
}

// parseLimit validates the limit parameter and clamps it to the category cap.
func parseLimit(raw string, ceiling int) (int, error) {
	if raw == "" {
		return ceiling, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, ceiling), nil
}

func parseVerify(raw string) (bool, error) {
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("verify must be true or false")
	}
	return v, nil
}

func aggregationMessage(err error) string {
	if errors.Is(err, content.ErrNoSourcesAvailable) {
		return "no content sources available"
	}
	return "aggregation failed"
}

func truncate(items []content.VerifiedItem, limit int) []content.VerifiedItem {
	if items == nil {
		return []content.VerifiedItem{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
