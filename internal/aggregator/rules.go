package aggregator

import (
	"slices"

	"github.com/samber/lo"

	"github.com/grow-with-growth/growyourneed/internal/content"
)

// check is one URL probe scheduled for a candidate.
type check struct {
	item  int
	url   string
	kind  content.ProbeKind
	alive bool
}

// planChecks lists the probes the category rule requires, grouped by candidate in order.
func planChecks(category content.Category, candidates []content.CandidateItem, verifyStreams bool) []check {
	var checks []check
	for i, c := range candidates {
		switch category {
		case content.CategoryBooks:
			for _, u := range c.DownloadURLs {
				checks = append(checks, check{item: i, url: u, kind: content.ProbeGeneric})
			}
		case content.CategoryLiveTV:
			if len(c.StreamURLs) > 0 {
				checks = append(checks, check{item: i, url: c.StreamURLs[0], kind: content.ProbeStreamManifest})
			}
		case content.CategoryMovies:
			if len(c.StreamURLs) > 0 {
				kind := c.StreamKind
				if !verifyStreams {
					kind = content.ProbeGeneric
				}
				checks = append(checks, check{item: i, url: c.StreamURLs[0], kind: kind})
			}
		default:
			if len(c.StreamURLs) > 0 {
				checks = append(checks, check{item: i, url: c.StreamURLs[0], kind: c.StreamKind})
			}
		}
	}
	return checks
}

// groupChecks indexes probe outcomes by candidate position.
func groupChecks(checks []check) map[int][]check {
	return lo.GroupBy(checks, func(ch check) int { return ch.item })
}

// verify applies the candidate's probe outcomes and shapes it for the
// category. It reports false when the candidate has no live URL.
func verify(category content.Category, c content.CandidateItem, mine []check) (content.CandidateItem, bool) {
	if len(mine) == 0 {
		return content.CandidateItem{}, false
	}

	out := clone(c)
	switch category {
	case content.CategoryBooks:
		lockstep := len(out.Quality) == len(out.DownloadURLs)
		var (
			downloads []string
			quality   []string
		)
		for j, ch := range mine {
			if !ch.alive {
				continue
			}
			downloads = append(downloads, ch.url)
			if lockstep {
				quality = append(quality, out.Quality[j])
			}
		}
		if len(downloads) == 0 {
			return content.CandidateItem{}, false
		}
		out.DownloadURLs = downloads
		if lockstep {
			out.Quality = quality
		}
		out.StreamURLs = []string{}
	default:
		if !mine[0].alive {
			return content.CandidateItem{}, false
		}
	}

	switch category {
	case content.CategoryMovies:
		out.DownloadURLs = []string{}
	case content.CategoryTV:
		if len(out.StreamURLs) > content.TVStreamCap {
			out.StreamURLs = out.StreamURLs[:content.TVStreamCap]
		}
		if len(out.Episodes) > content.TVStreamCap {
			out.Episodes = out.Episodes[:content.TVStreamCap]
		}
	}
	return withEmptySlices(out), true
}

// clone copies the slices that verification may rewrite, so sources that
// hand out shared backing arrays are never mutated.
func clone(c content.CandidateItem) content.CandidateItem {
	c.StreamURLs = slices.Clone(c.StreamURLs)
	c.DownloadURLs = slices.Clone(c.DownloadURLs)
	c.Quality = slices.Clone(c.Quality)
	c.Episodes = slices.Clone(c.Episodes)
	return c
}

func withEmptySlices(c content.CandidateItem) content.CandidateItem {
	if c.StreamURLs == nil {
		c.StreamURLs = []string{}
	}
	if c.DownloadURLs == nil {
		c.DownloadURLs = []string{}
	}
	if c.Quality == nil {
		c.Quality = []string{}
	}
	if c.Genre == nil {
		c.Genre = []string{}
	}
	if c.Language == nil {
		c.Language = []string{}
	}
	return c
}
