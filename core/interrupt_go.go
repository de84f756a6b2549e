//go:build !tinygo

package core

// State is the saved interrupt mask. Host builds have no interrupts to mask;
// the scheduler and event ring are only touched from the driving goroutine
// or under their own locks.
type State uintptr

func disableInterrupts() State {
	return 0
}

func restoreInterrupts(State) {}
