package core

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic millisecond time source used by core code
type Clock interface {
	NowMillis() uint64
}

// MonotonicClock counts milliseconds since it was created
type MonotonicClock struct {
	boot time.Time
}

// NewMonotonicClock starts a clock at zero
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{boot: time.Now()}
}

// NowMillis returns milliseconds since boot
func (c *MonotonicClock) NowMillis() uint64 {
	return uint64(time.Since(c.boot) / time.Millisecond)
}

// ManualClock only moves when told to. Used for testing and simulation.
type ManualClock struct {
	ms atomic.Uint64
}

// NowMillis returns the current manual time
func (c *ManualClock) NowMillis() uint64 {
	return c.ms.Load()
}

// Set sets the absolute time in milliseconds
func (c *ManualClock) Set(ms uint64) {
	c.ms.Store(ms)
}

// Advance moves the clock forward and returns the new time
func (c *ManualClock) Advance(ms uint64) uint64 {
	return c.ms.Add(ms)
}

// MillisToDuration converts a millisecond count to a time.Duration
func MillisToDuration(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
