// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowZone ensures the clock reports UTC+8 wall time.
func TestClockNowZone(t *testing.T) {
	t.Parallel()

	clk := New()
	got := clk.Now()

	_, offset := got.Zone()
	if offset != 8*3600 {
		t.Fatalf("expected UTC+8 offset, got %d", offset)
	}

	before := time.Now().Add(-time.Second)
	after := time.Now().Add(time.Second)
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// TestClockNowMonotonic checks successive timestamps are non-decreasing.
func TestClockNowMonotonic(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	second := clk.Now()
	if second.Before(first) {
		t.Fatalf("expected second call %v to be >= first %v", second, first)
	}
}
