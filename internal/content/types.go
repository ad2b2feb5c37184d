package content

import "time"

// ProbeKind selects how a URL is checked for liveness.
type ProbeKind int

// Probe kinds understood by the liveness probe.
const (
	// ProbeGeneric issues a HEAD request and accepts 200/301/302.
	ProbeGeneric ProbeKind = iota
	// ProbeStreamManifest issues a GET and requires an HLS playlist signature in the body.
	ProbeStreamManifest
)

// String returns the metric/log label for the kind.
func (k ProbeKind) String() string {
	switch k {
	case ProbeStreamManifest:
		return "manifest"
	default:
		return "generic"
	}
}

// Episode is a single playable TV episode.
type Episode struct {
	Season    int    `json:"season"`
	Number    int    `json:"episode"`
	Title     string `json:"title,omitempty"`
	StreamURL string `json:"stream_url"`
}

// CandidateItem is an unverified content reference returned by a source.
type CandidateItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	StreamURLs   []string  `json:"stream_urls"`
	DownloadURLs []string  `json:"download_urls"`
	Quality      []string  `json:"quality"`
	Size         *string   `json:"size,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Year         *int      `json:"year,omitempty"`
	Genre        []string  `json:"genre"`
	Language     []string  `json:"language"`
	Seeds        *int      `json:"seeds,omitempty"`
	Peers        *int      `json:"peers,omitempty"`
	Episodes     []Episode `json:"episodes,omitempty"`
	Subtitles    []string  `json:"subtitles,omitempty"`

	// StreamKind is how the source expects its stream URLs to be probed.
	StreamKind ProbeKind `json:"-"`
}

// SeedCount returns the seed count, treating an unknown count as zero.
func (c CandidateItem) SeedCount() int {
	if c.Seeds == nil {
		return 0
	}
	return *c.Seeds
}

// VerifiedItem is a candidate with at least one liveness-confirmed URL.
type VerifiedItem struct {
	CandidateItem
	IsVerified bool      `json:"is_verified"`
	LastTested time.Time `json:"last_tested"`
}

// Ptr returns a pointer to v. Sources use it for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
