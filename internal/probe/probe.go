// Package probe implements the liveness checks that decide whether a content
// URL is reachable. A probe never returns an error: transport failures,
// timeouts, and unexpected responses all classify the URL as dead.
package probe

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/metrics"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxManifestBytes = 64 << 10
)

// Manifest signatures accepted in a playlist body.
var manifestSignatures = [][]byte{
	[]byte("#EXTM3U"),
	[]byte("#EXT-X-VERSION"),
}

// Config controls probe behavior.
type Config struct {
	Timeout          time.Duration
	UserAgent        string
	MaxManifestBytes int64
}

// Waiter gates outbound requests per origin. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Probe implements content.Prober over HTTP.
type Probe struct {
	cfg     Config
	client  *http.Client
	limiter Waiter
	logger  *zap.Logger
}

// New builds a Probe. limiter may be nil.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxManifestBytes <= 0 {
		cfg.MaxManifestBytes = defaultMaxManifestBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{
		cfg: cfg,
		client: &http.Client{
			Transport: newHTTPTransport(),
			Timeout:   cfg.Timeout,
			// 301 and 302 count as alive for generic probes, so they must be observed, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: limiter,
		logger:  logger,
	}
}

// Probe reports whether rawURL is alive under the given kind.
func (p *Probe) Probe(ctx context.Context, rawURL string, kind content.ProbeKind) bool {
	alive := p.probe(ctx, rawURL, kind)
	metrics.ObserveProbe(kind.String(), alive)
	p.logger.Debug("probe finished",
		zap.String("url", rawURL),
		zap.Stringer("kind", kind),
		zap.Bool("alive", alive),
	)
	return alive
}

func (p *Probe) probe(ctx context.Context, rawURL string, kind content.ProbeKind) bool {
	if !probeable(rawURL) {
		return false
	}
	// The timeout covers time spent queued on the limiter too.
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, rawURL); err != nil {
			return false
		}
	}

	switch kind {
	case content.ProbeStreamManifest:
		return p.manifest(ctx, rawURL)
	default:
		return p.generic(ctx, rawURL)
	}
}

func (p *Probe) generic(ctx context.Context, rawURL string) bool {
	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return false
	}
	defer closeBody(resp)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		return true
	default:
		return false
	}
}

func (p *Probe) manifest(ctx context.Context, rawURL string) bool {
	resp, err := p.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return false
	}
	defer closeBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxManifestBytes))
	if err != nil && len(body) == 0 {
		return false
	}
	for _, sig := range manifestSignatures {
		if bytes.Contains(body, sig) {
			return true
		}
	}
	return false
}

func (p *Probe) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err //nolint:wrapcheck // collapsed to false by the caller
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	return p.client.Do(req) //nolint:wrapcheck // collapsed to false by the caller
}

func probeable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
