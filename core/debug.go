package core

import (
	"sync"
	"sync/atomic"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a driver event for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	State  uint8  // Driver state when the event was recorded
	Millis uint64 // Event clock at record time
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTransition        = 1 // state change, v1=from v2=to
	EvtTxBegin           = 2 // transaction started, v1=command byte v2=frame length
	EvtTxComplete        = 3 // transaction completed, v1=received length
	EvtBusError          = 4 // transceiver rejected a transfer
	EvtGPIOError         = 5 // control pin could not be driven, v1=pin
	EvtProtocolViolation = 6 // transaction started while one was outstanding
	EvtConfigError       = 7 // configuration rejected, v1=pipe (0xFF if none)
	EvtStatus            = 8 // status decoded, v1=STATUS v2=FIFO_STATUS
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugMu      sync.RWMutex
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled atomic.Bool

	// Event ring buffer (non-blocking, for post-mortem)
	eventMu       sync.Mutex
	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventClock    Clock

	// Async debug output channel
	debugChan     atomic.Pointer[chan string]
	debugChanOnce sync.Once
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugMu.Lock()
	debugPrintln = writer
	debugMu.Unlock()
}

func debugWriter() DebugWriter {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugPrintln
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// SetEventClock sets the clock used to stamp recorded events
func SetEventClock(c Clock) {
	eventMu.Lock()
	eventClock = c
	eventMu.Unlock()
}

// InitAsyncDebug starts the async debug output goroutine. Call it after
// SetDebugWriter; later calls are no-ops.
func InitAsyncDebug() {
	debugChanOnce.Do(func() {
		ch := make(chan string, 16) // Buffer 16 messages
		go debugOutputWorker(ch)
		debugChan.Store(&ch)
	})
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch <-chan string) {
	for msg := range ch {
		if w := debugWriter(); w != nil {
			w(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if !debugEnabled.Load() {
		return
	}
	if w := debugWriter(); w != nil {
		w(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	ch := debugChan.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- msg:
	default:
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType, state uint8, value1, value2 uint32) {
	eventMu.Lock()
	defer eventMu.Unlock()

	var ms uint64
	if eventClock != nil {
		ms = eventClock.NowMillis()
	}
	eventRing[eventRingHead] = Event{
		Type:   eventType,
		State:  state,
		Millis: ms,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (eventRingHead + 1) % EventRingSize
}

// Events returns the recorded events from oldest to newest
func Events() []Event {
	eventMu.Lock()
	defer eventMu.Unlock()

	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns a short label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtTransition:
		return "TRANSITION"
	case EvtTxBegin:
		return "TX_BEGIN"
	case EvtTxComplete:
		return "TX_DONE"
	case EvtBusError:
		return "BUS_ERR!"
	case EvtGPIOError:
		return "GPIO_ERR!"
	case EvtProtocolViolation:
		return "OVERLAP!"
	case EvtConfigError:
		return "CFG_ERR"
	case EvtStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error).
// A nil writer uses the debug writer.
func DumpEventRing(w DebugWriter) {
	if w == nil {
		w = debugWriter()
	}
	if w == nil {
		return
	}

	w("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		w("[EVENT] " + EventName(evt.Type) +
			" state=" + Itoa(int(evt.State)) +
			" ms=" + Utoa(evt.Millis) +
			" v1=" + Utoa(uint64(evt.Value1)) +
			" v2=" + Utoa(uint64(evt.Value2)))
	}
	w("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	eventMu.Lock()
	defer eventMu.Unlock()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
