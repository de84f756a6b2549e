package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint64 // milliseconds
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time and fires the due ones on
// Dispatch. It is driven from a single loop; Schedule may also be called
// from interrupt context on targets where interrupts are masked around it.
type Scheduler struct {
	timers *Timer
	now    uint64
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insert(t)
}

// insert inserts a timer in sorted order by WakeTime
func (s *Scheduler) insert(t *Timer) {
	if s.timers == nil || t.WakeTime < s.timers.WakeTime {
		t.Next = s.timers
		s.timers = t
		return
	}

	current := s.timers
	for current.Next != nil && current.Next.WakeTime <= t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Cancel removes t from the schedule. Reports whether it was scheduled.
func (s *Scheduler) Cancel(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	link := &s.timers
	for *link != nil {
		if *link == t {
			*link = t.Next
			t.Next = nil
			return true
		}
		link = &(*link).Next
	}
	return false
}

// Next returns the wake time of the earliest timer
func (s *Scheduler) Next() (uint64, bool) {
	if s.timers == nil {
		return 0, false
	}
	return s.timers.WakeTime, true
}

// Now returns the time passed to the last Dispatch
func (s *Scheduler) Now() uint64 {
	return s.now
}

// Dispatch fires every timer with WakeTime <= now and returns how many ran.
// Timers rescheduled into the past run on the next Dispatch, not this one.
func (s *Scheduler) Dispatch(now uint64) int {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.now = now
	fired := 0
	var again *Timer
	for s.timers != nil && s.timers.WakeTime <= now {
		timer := s.timers
		s.timers = timer.Next
		timer.Next = nil

		fired++
		if timer.Handler(timer) == SF_RESCHEDULE {
			timer.Next = again
			again = timer
		}
	}
	for again != nil {
		t := again
		again = t.Next
		s.insert(t)
	}
	return fired
}
