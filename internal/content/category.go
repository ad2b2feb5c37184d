package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category identifies a family of content with its own verification rule.
type Category string

// Supported categories.
const (
	CategoryMovies Category = "movies"
	CategoryTV     Category = "tv"
	CategoryBooks  Category = "books"
	CategoryLiveTV Category = "live_tv"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryMovies, CategoryTV, CategoryBooks, CategoryLiveTV}

// TVStreamCap is the number of episode stream URLs kept on a verified show.
const TVStreamCap = 5

// ParseCategory accepts the canonical names plus a few common aliases.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movies", "movie":
		return CategoryMovies, nil
	case "tv", "tv_shows", "tv-shows", "shows":
		return CategoryTV, nil
	case "books", "book":
		return CategoryBooks, nil
	case "live_tv", "live-tv", "livetv", "live":
		return CategoryLiveTV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
}

// DefaultLimit is the result count used when a caller supplies none.
func (c Category) DefaultLimit() int {
	if c == CategoryLiveTV {
		return 100
	}
	return 20
}

// DefaultTTL is how long a verified result set stays fresh.
func (c Category) DefaultTTL() time.Duration {
	switch c {
	case CategoryBooks:
		return 600 * time.Second
	case CategoryLiveTV:
		return 1800 * time.Second
	default:
		return 300 * time.Second
	}
}

// RanksBySeeds reports whether results are ordered by seed count.
func (c Category) RanksBySeeds() bool {
	return c == CategoryTV
}

// NormalizeQuery lowercases, trims, and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// CacheKey composes the cache key for a category, query, and option flags.
// Movies carry the verify flag; live TV has no query.
func CacheKey(c Category, query string, verify bool) string {
	q := NormalizeQuery(query)
	switch c {
	case CategoryMovies:
		return "movies_verified:" + q + ":" + strconv.FormatBool(verify)
	case CategoryLiveTV:
		return "live_tv_verified"
	default:
		return string(c) + "_verified:" + q
	}
}

// CategoryOfKey recovers the category a cache key was composed for.
func CategoryOfKey(key string) (Category, bool) {
	if key == "live_tv_verified" {
		return CategoryLiveTV, true
	}
	prefix, _, found := strings.Cut(key, "_verified:")
	if !found {
		return "", false
	}
	switch c := Category(prefix); c {
	case CategoryMovies, CategoryTV, CategoryBooks:
		return c, true
	default:
		return "", false
	}
}
