package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
)

func TestGenericProbeStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusMovedPermanently, true},
		{http.StatusFound, true},
		{http.StatusNoContent, false},
		{http.StatusTemporaryRedirect, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			methods := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				methods <- r.Method
				if tt.status == http.StatusMovedPermanently || tt.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := New(Config{Timeout: time.Second}, nil, zap.NewNop())
			require.Equal(t, tt.want, p.Probe(context.Background(), srv.URL+"/embed/movie/tt0848228", content.ProbeGeneric))
			require.Equal(t, http.MethodHead, <-methods)
		})
	}
}

func TestGenericProbeTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close()

	p := New(Config{Timeout: time.Second}, nil, nil)
	require.False(t, p.Probe(context.Background(), url, content.ProbeGeneric))
}

func TestProbeTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	p := New(Config{Timeout: 50 * time.Millisecond}, nil, nil)
	start := time.Now()
	require.False(t, p.Probe(context.Background(), srv.URL, content.ProbeGeneric))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestManifestProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"playlist", http.StatusOK, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nchunk.m3u8\n", true},
		{"version tag only", http.StatusOK, "#EXT-X-VERSION:3\n", true},
		{"html error page", http.StatusOK, "<html>error</html>", false},
		{"not found with playlist body", http.StatusNotFound, "#EXTM3U\n", false},
		{"empty body", http.StatusOK, "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(Config{Timeout: time.Second}, nil, nil)
			require.Equal(t, tt.want, p.Probe(context.Background(), srv.URL+"/live/playlist.m3u8", content.ProbeStreamManifest))
		})
	}
}

func TestManifestProbeReadsBoundedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 128))
		_, _ = w.Write([]byte("#EXTM3U"))
	}))
	defer srv.Close()

	p := New(Config{Timeout: time.Second, MaxManifestBytes: 64}, nil, nil)
	require.False(t, p.Probe(context.Background(), srv.URL, content.ProbeStreamManifest))
}

func TestProbeRejectsUnprobeableURLs(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: time.Second}, nil, nil)
	for _, raw := range []string{"", "not a url", "magnet:?xt=urn:btih:abc", "ftp://example.com/file", "http://"} {
		require.False(t, p.Probe(context.Background(), raw, content.ProbeGeneric), raw)
	}
}

func TestProbeLimiterFailureIsDead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not be sent when the limiter refuses")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Timeout: time.Second}, refusingLimiter{}, nil)
	require.False(t, p.Probe(context.Background(), srv.URL, content.ProbeGeneric))
}

func TestProbeTimeoutCoversLimiterWait(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: 50 * time.Millisecond}, blockingLimiter{}, nil)
	start := time.Now()
	require.False(t, p.Probe(context.WithoutCancel(context.Background()), "https://slow.example/a", content.ProbeGeneric))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestProbeSendsUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Timeout: time.Second, UserAgent: "contentd-test/1.0"}, nil, nil)
	require.True(t, p.Probe(context.Background(), srv.URL, content.ProbeGeneric))
	require.Equal(t, "contentd-test/1.0", <-agents)
}

type refusingLimiter struct{}

func (refusingLimiter) Wait(context.Context, string) error {
	return errors.New("refused")
}

type blockingLimiter struct{}

func (blockingLimiter) Wait(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
