package core

import (
	"testing"
	"time"
)

func TestRunnerEvery(t *testing.T) {
	clock := &ManualClock{}
	r := NewRunner(clock)
	ticks := 0
	r.Every(10, func() { ticks++ })

	r.Step() // fires immediately
	for ms := 1; ms <= 30; ms++ {
		clock.Advance(1)
		r.Step()
	}
	if ticks != 4 {
		t.Errorf("ticks = %d, expected 4 (t=0,10,20,30)", ticks)
	}
}

func TestRunnerSkipsMissedPeriods(t *testing.T) {
	clock := &ManualClock{}
	r := NewRunner(clock)
	ticks := 0
	r.Every(10, func() { ticks++ })

	r.Step()
	clock.Set(95)
	r.Step()
	r.Step()
	if ticks != 2 {
		t.Errorf("ticks = %d, expected 2 after a long stall", ticks)
	}

	clock.Set(104)
	r.Step()
	if ticks != 2 {
		t.Errorf("fired before the next period, ticks = %d", ticks)
	}
	clock.Set(105)
	r.Step()
	if ticks != 3 {
		t.Errorf("ticks = %d, expected 3", ticks)
	}
}

func TestRunnerAfterAndStop(t *testing.T) {
	clock := &ManualClock{}
	r := NewRunner(clock)
	once, stopped := 0, 0
	r.After(5, func() { once++ })
	timer := r.Every(1, func() { stopped++ })

	if !r.Stop(timer) {
		t.Error("Stop reported timer not scheduled")
	}
	for i := 0; i < 20; i++ {
		clock.Advance(1)
		r.Step()
	}
	if once != 1 {
		t.Errorf("After fired %d times", once)
	}
	if stopped != 0 {
		t.Errorf("stopped timer fired %d times", stopped)
	}
}

func TestRunnerRunStops(t *testing.T) {
	r := NewRunner(NewMonotonicClock())
	ticked := make(chan struct{}, 1)
	r.Every(1, func() {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r.Run(stop, time.Millisecond)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic task never ran")
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop")
	}
}
