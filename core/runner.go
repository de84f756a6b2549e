package core

import "time"

// Runner is the cooperative main loop: periodic tasks on a Scheduler, paced
// by a Clock.
type Runner struct {
	Clock Clock
	sched Scheduler
}

// NewRunner creates a runner on clock
func NewRunner(clock Clock) *Runner {
	return &Runner{Clock: clock}
}

// Every registers fn to run every periodMs milliseconds, first at the next
// Step. The returned timer can be passed to Stop.
func (r *Runner) Every(periodMs uint64, fn func()) *Timer {
	if periodMs == 0 {
		periodMs = 1
	}
	t := &Timer{WakeTime: r.Clock.NowMillis()}
	t.Handler = func(t *Timer) uint8 {
		fn()
		t.WakeTime += periodMs
		if now := r.sched.Now(); t.WakeTime <= now {
			// Overran; skip missed periods instead of bursting.
			t.WakeTime = now + periodMs
		}
		return SF_RESCHEDULE
	}
	r.sched.Schedule(t)
	return t
}

// After runs fn once, delayMs milliseconds from now
func (r *Runner) After(delayMs uint64, fn func()) *Timer {
	t := &Timer{
		WakeTime: r.Clock.NowMillis() + delayMs,
		Handler: func(*Timer) uint8 {
			fn()
			return SF_DONE
		},
	}
	r.sched.Schedule(t)
	return t
}

// Stop cancels a timer returned by Every or After
func (r *Runner) Stop(t *Timer) bool {
	return r.sched.Cancel(t)
}

// Step fires all due timers once and returns how many ran
func (r *Runner) Step() int {
	return r.sched.Dispatch(r.Clock.NowMillis())
}

// Run steps until stop is closed, sleeping idle between empty steps
func (r *Runner) Run(stop <-chan struct{}, idle time.Duration) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if r.Step() == 0 {
			time.Sleep(idle)
		}
	}
}
