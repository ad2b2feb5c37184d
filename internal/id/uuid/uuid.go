// Package uuid provides ID generation helpers.
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// itemNamespace scopes item identifiers so they never collide with other v5 ids derived from URLs.
var itemNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("contentd/items"))

// Generator derives stable item identifiers.
type Generator struct{}

// NewUUIDGenerator creates a new Generator.
func NewUUIDGenerator() *Generator {
	return &Generator{}
}

// ItemID returns a UUID v5 derived from the source name and the item's primary URL.
// The same reference always maps to the same id, so cached and fresh results agree.
func (Generator) ItemID(source, ref string) string {
	return uuid.NewSHA1(itemNamespace, []byte(strings.ToLower(source)+"\x00"+ref)).String()
}

// NewRandomID returns a UUIDv4 string for references that have no stable URL.
func (Generator) NewRandomID() string {
	return uuid.NewString()
}
