package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/aggregator"
	"github.com/grow-with-growth/growyourneed/internal/cache"
	"github.com/grow-with-growth/growyourneed/internal/config"
	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/selftest"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type produceCall struct {
	category content.Category
	query    string
	opts     aggregator.Options
}

type fakeProducer struct {
	mu      sync.Mutex
	items   []content.VerifiedItem
	err     error
	sources map[content.Category]int
	calls   []produceCall
}

func (p *fakeProducer) Produce(
	_ context.Context,
	c content.Category,
	query string,
	opts aggregator.Options,
) ([]content.VerifiedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, produceCall{category: c, query: query, opts: opts})
	if p.err != nil {
		return nil, p.err
	}
	return p.items, nil
}

func (p *fakeProducer) SourceCount(c content.Category) int {
	return p.sources[c]
}

func (p *fakeProducer) Calls() []produceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]produceCall(nil), p.calls...)
}

type fakeProber struct {
	alive map[string]bool
	seen  chan string
}

func (p *fakeProber) Probe(_ context.Context, url string, _ content.ProbeKind) bool {
	if p.seen != nil {
		p.seen <- url
	}
	return p.alive[url]
}

type fakeSuite struct{}

func (fakeSuite) RunAll(context.Context) selftest.Result {
	return selftest.Result{
		OverallHealth: 50,
		Categories: map[string]selftest.CategoryResult{
			"movies": {Category: content.CategoryMovies, SuccessRate: 50, Working: 1, Total: 2, Samples: []content.VerifiedItem{}},
		},
		Timestamp: testNow,
	}
}

func (fakeSuite) RunCategory(_ context.Context, c content.Category) selftest.CategoryResult {
	return selftest.CategoryResult{Category: c, SuccessRate: 100, Working: 3, Total: 3, Samples: []content.VerifiedItem{}}
}

func verifiedItems(ids ...string) []content.VerifiedItem {
	out := make([]content.VerifiedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, content.VerifiedItem{
			CandidateItem: content.CandidateItem{
				ID:           id,
				Title:        id,
				StreamURLs:   []string{"https://stream.example/" + id},
				DownloadURLs: []string{},
				Quality:      []string{"HD"},
				Genre:        []string{},
				Language:     []string{"en"},
			},
			IsVerified: true,
			LastTested: testNow,
		})
	}
	return out
}

type fixture struct {
	server   *Server
	producer *fakeProducer
	store    *cache.Tiered
	prober   *fakeProber
}

func newFixture(t *testing.T, items []content.VerifiedItem) fixture {
	t.Helper()
	clock := fakeClock{now: testNow}
	store, err := cache.New(cache.Config{}, nil, clock, zap.NewNop())
	require.NoError(t, err)
	producer := &fakeProducer{
		items: items,
		sources: map[content.Category]int{
			content.CategoryMovies: 4,
			content.CategoryTV:     4,
			content.CategoryBooks:  4,
		},
	}
	prober := &fakeProber{alive: map[string]bool{}}
	cfg := config.Config{
		Server: config.ServerConfig{RequestTimeoutSeconds: 5},
	}
	server := NewServer(producer, store, prober, fakeSuite{}, clock, cfg, zap.NewNop())
	return fixture{server: server, producer: producer, store: store, prober: prober}
}

func (f fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []content.VerifiedItem {
	t.Helper()
	var items []content.VerifiedItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	return items
}

func TestSearchMovies_MissThenHit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, verifiedItems("a", "b", "c"))

	rec := f.do(t, http.MethodGet, "/api/search/movies?q=Inception")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Len(t, decodeItems(t, rec), 3)

	rec = f.do(t, http.MethodGet, "/api/search/movies?q=inception")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.Len(t, decodeItems(t, rec), 3)

	calls := f.producer.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, content.CategoryMovies, calls[0].category)
	require.Equal(t, "Inception", calls[0].query)
	require.True(t, calls[0].opts.Verify)
	require.Equal(t, content.CategoryMovies.DefaultLimit(), calls[0].opts.Limit)

	_, ok := f.store.Get(context.Background(), "movies_verified:inception:true")
	require.True(t, ok)
}

func TestSearchMovies_VerifyFlagSelectsSeparateEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, verifiedItems("a"))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/search/movies?q=matrix&verify=false").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/search/movies?q=matrix").Code)

	calls := f.producer.Calls()
	require.Len(t, calls, 2)
	require.False(t, calls[0].opts.Verify)
	require.True(t, calls[1].opts.Verify)
}

func TestSearch_LimitTruncatesWithoutShrinkingCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, verifiedItems("a", "b", "c", "d"))

	rec := f.do(t, http.MethodGet, "/api/search/tv?q=friends&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeItems(t, rec)
	require.Len(t, items, 2)
	require.Equal(t, "a", items[0].ID)

	rec = f.do(t, http.MethodGet, "/api/search/tv?q=friends&limit=10")
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.Len(t, decodeItems(t, rec), 4)
	require.Len(t, f.producer.Calls(), 1)
}

func TestSearch_LimitClampedToCategoryCap(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0, 30)
	for i := range 30 {
		ids = append(ids, string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	f := newFixture(t, verifiedItems(ids...))

	rec := f.do(t, http.MethodGet, "/api/search/books?q=dune&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeItems(t, rec), content.CategoryBooks.DefaultLimit())
}

func TestSearch_BadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/search/movies"},
		{"blank query", "/api/search/tv?q=%20%20"},
		{"non numeric limit", "/api/search/books?q=dune&limit=abc"},
		{"zero limit", "/api/search/books?q=dune&limit=0"},
		{"negative limit", "/api/search/tv?q=x&limit=-3"},
		{"invalid verify", "/api/search/movies?q=x&verify=maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)
			rec := f.do(t, http.MethodGet, tc.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), `"error"`)
			require.Empty(t, f.producer.Calls())
		})
	}
}

func TestSearch_NoSourcesIsServerError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.producer.err = content.ErrNoSourcesAvailable

	rec := f.do(t, http.MethodGet, "/api/search/movies?q=anything")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"no content sources available"}`, rec.Body.String())

	_, ok := f.store.Get(context.Background(), "movies_verified:anything:true")
	require.False(t, ok)
}

func TestSearch_EmptyResultIsArrayAndCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/search/tv?q=nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/search/tv?q=nothing")
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestLiveTV_IgnoresQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, verifiedItems("cnn", "bbc"))

	rec := f.do(t, http.MethodGet, "/api/live-tv/verified")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeItems(t, rec), 2)

	calls := f.producer.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, content.CategoryLiveTV, calls[0].category)
	require.Equal(t, 500, calls[0].opts.MaxCandidates)

	_, ok := f.store.Get(context.Background(), "live_tv_verified")
	require.True(t, ok)
}

func TestVerifyStream(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.prober.alive["https://cdn.example/live.m3u8"] = true

	rec := f.do(t, http.MethodGet, "/api/verify/stream/https%3A%2F%2Fcdn.example%2Flive.m3u8")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t,
		`{"url":"https://cdn.example/live.m3u8","is_working":true,"tested_at":"2024-05-01T12:00:00Z"}`,
		rec.Body.String(),
	)

	rec = f.do(t, http.MethodGet, "/api/verify/stream?url=https://dead.example/x")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_working":false`)

	rec = f.do(t, http.MethodGet, "/api/verify/stream/")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Timestamp time.Time         `json:"timestamp"`
		Version   string            `json:"version"`
		Services  map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, testNow, body.Timestamp)
	require.Equal(t, Version, body.Version)
	require.Equal(t, map[string]string{
		"movie_search": "operational",
		"tv_search":    "operational",
		"book_search":  "operational",
		"live_tv":      "unavailable",
		"shared_cache": string(cache.TierDisabled),
	}, body.Services)
}

func TestSelfTestRoutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/test/full")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"overall_health":50`)

	rec = f.do(t, http.MethodGet, "/api/test/live-tv")
	require.Equal(t, http.StatusOK, rec.Code)
	var result selftest.CategoryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, content.CategoryLiveTV, result.Category)
	require.Equal(t, 3, result.Working)

	rec = f.do(t, http.MethodGet, "/api/test/podcasts")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheInvalidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, verifiedItems("a"))
	ctx := context.Background()

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/search/books?q=dune").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/search/tv?q=lost").Code)

	rec := f.do(t, http.MethodDelete, "/api/cache/books_verified:dune")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := f.store.Get(ctx, "books_verified:dune")
	require.False(t, ok)
	_, ok = f.store.Get(ctx, "tv_verified:lost")
	require.True(t, ok)

	rec = f.do(t, http.MethodDelete, "/api/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok = f.store.Get(ctx, "tv_verified:lost")
	require.False(t, ok)
}

func TestOperationalEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz").Code)

	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	f.producer.sources = map[content.Category]int{}
	require.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/readyz").Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/healthz")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Parallel()

	h := timeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"error":"request timed out"}`, rec.Body.String())
}
