package source

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	collyfetcher "github.com/grow-with-growth/growyourneed/internal/fetcher/colly"
)

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	err      error
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ http.Header) (collyfetcher.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)
	if f.err != nil {
		return collyfetcher.Page{}, f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return collyfetcher.Page{}, fmt.Errorf("%w: 404 from %s", collyfetcher.ErrStatus, url)
	}
	return collyfetcher.Page{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}
