// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	if clk == nil {
		t.Fatal("expected clock to be non-nil")
	}

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected time between %v and %v, got %v", before, after, got)
	}
}

// TestClockPrecision ensures timestamps are truncated and carry no monotonic reading.
func TestClockPrecision(t *testing.T) {
	t.Parallel()

	got := New().Now()
	if got.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond precision, got %v", got)
	}
	if got != got.Round(0) {
		t.Fatal("expected monotonic reading to be stripped")
	}

	full := NewWithPrecision(0).Now()
	if full != full.Round(0) {
		t.Fatal("expected monotonic reading to be stripped at full precision")
	}
}
