package source

import (
	"crypto/md5" //nolint:gosec // libgen addresses books by md5, not used for security
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/grow-with-growth/growyourneed/internal/content"
)

// TitleIDs are the catalogue identifiers embed providers key their players on.
type TitleIDs struct {
	IMDB string
	TMDB string
}

// defaultTitle is used when a query is not in the table.
var defaultTitle = TitleIDs{IMDB: "tt0111161", TMDB: "278"}

var titleTable = map[string]TitleIDs{
	"avengers":        {IMDB: "tt0848228", TMDB: "24428"},
	"inception":       {IMDB: "tt1375666", TMDB: "27205"},
	"matrix":          {IMDB: "tt0133093", TMDB: "603"},
	"interstellar":    {IMDB: "tt0816692", TMDB: "157336"},
	"joker":           {IMDB: "tt7286456", TMDB: "475557"},
	"breaking bad":    {IMDB: "tt0903747", TMDB: "1396"},
	"game of thrones": {IMDB: "tt0944947", TMDB: "1399"},
	"the office":      {IMDB: "tt0386676", TMDB: "2316"},
	"friends":         {IMDB: "tt0108778", TMDB: "1668"},
	"stranger things": {IMDB: "tt4574334", TMDB: "66732"},
}

// LookupTitle resolves a free-text query to catalogue identifiers.
func LookupTitle(query string) TitleIDs {
	if ids, ok := titleTable[content.NormalizeQuery(query)]; ok {
		return ids
	}
	return defaultTitle
}

const defaultGutenbergID = 1342

var gutenbergTable = map[string]int{
	"alice in wonderland": 11,
	"pride and prejudice": 1342,
	"dracula":             345,
	"frankenstein":        84,
}

// GutenbergID resolves a query to a Project Gutenberg ebook number.
func GutenbergID(query string) int {
	if id, ok := gutenbergTable[content.NormalizeQuery(query)]; ok {
		return id
	}
	return defaultGutenbergID
}

// BookID derives the numeric shelf id used by the Z-Library template.
func BookID(query string) int {
	return len(content.NormalizeQuery(query)) * 12345
}

// QueryMD5 is the hex md5 of the normalized query.
func QueryMD5(query string) string {
	sum := md5.Sum([]byte(content.NormalizeQuery(query))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// underscored joins the normalized query words with underscores.
func underscored(query string) string {
	return strings.ReplaceAll(content.NormalizeQuery(query), " ", "_")
}

// dashed joins the normalized query words with dashes.
func dashed(query string) string {
	return strings.ReplaceAll(content.NormalizeQuery(query), " ", "-")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
