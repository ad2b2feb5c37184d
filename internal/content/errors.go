package content

import "errors"

var (
	// ErrNoSourcesAvailable reports that a category has no configured sources
	// or that every source failed to answer.
	ErrNoSourcesAvailable = errors.New("no sources available")
	// ErrUnknownCategory reports an unrecognized category name.
	ErrUnknownCategory = errors.New("unknown category")
)
