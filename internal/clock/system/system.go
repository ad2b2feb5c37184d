// Package system provides the wall clock used outside tests.
package system

import "time"

// DefaultPrecision matches what survives a JSON round trip through the shared cache tier.
const DefaultPrecision = time.Millisecond

// Clock implements content.Clock with UTC wall time rounded down to a precision.
type Clock struct {
	precision time.Duration
}

// New creates a Clock with DefaultPrecision.
func New() *Clock {
	return &Clock{precision: DefaultPrecision}
}

// NewWithPrecision creates a Clock truncating to p. p <= 0 keeps full precision.
func NewWithPrecision(p time.Duration) *Clock {
	return &Clock{precision: p}
}

// Now returns the current UTC time without a monotonic reading.
func (c Clock) Now() time.Time {
	now := time.Now().UTC()
	if c.precision > 0 {
		return now.Truncate(c.precision)
	}
	return now.Round(0)
}
