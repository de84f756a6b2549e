package core

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	var c ManualClock
	if c.NowMillis() != 0 {
		t.Errorf("zero clock reads %d", c.NowMillis())
	}
	c.Set(100)
	if got := c.Advance(5); got != 105 || c.NowMillis() != 105 {
		t.Errorf("Advance = %d, NowMillis = %d", got, c.NowMillis())
	}
}

func TestMillisToDuration(t *testing.T) {
	testCases := []struct {
		ms       uint64
		expected time.Duration
	}{
		{0, 0},
		{1, time.Millisecond},
		{20, 20 * time.Millisecond},
		{1500, 1500 * time.Millisecond},
	}
	for _, tc := range testCases {
		if got := MillisToDuration(tc.ms); got != tc.expected {
			t.Errorf("MillisToDuration(%d) = %v, expected %v", tc.ms, got, tc.expected)
		}
	}
}
