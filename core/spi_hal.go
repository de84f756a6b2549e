package core

import (
	"errors"
	"sync"
	"sync/atomic"

	"tinygo.org/x/drivers"
)

var (
	// ErrBusBusy is returned when a transfer is started while another is in flight
	ErrBusBusy = errors.New("spi bus busy")

	// ErrLengthMismatch is returned when tx and rx buffers differ in size
	ErrLengthMismatch = errors.New("spi tx/rx length mismatch")

	// ErrBusClosed is returned by a transceiver after Close
	ErrBusClosed = errors.New("spi bus closed")
)

// CompletionFunc is invoked exactly once per accepted transfer with the
// number of bytes clocked into rx. It may run on any goroutine, including
// inline before Transceive returns.
type CompletionFunc func(n int)

// Transceiver is the asynchronous full-duplex bus interface that core code
// uses. Transceive hands the buffers to the bus and returns immediately; the
// buffers belong to the bus until done is called.
type Transceiver interface {
	Transceive(tx, rx []byte, done CompletionFunc) error
}

// InlineSPI adapts a blocking drivers.SPI into a Transceiver that completes
// before Transceive returns. Suitable for short register frames on an MCU
// where the transfer takes a few microseconds.
type InlineSPI struct {
	Bus drivers.SPI
}

// Transceive performs the transfer and reports completion inline
func (s InlineSPI) Transceive(tx, rx []byte, done CompletionFunc) error {
	if len(tx) != len(rx) {
		return ErrLengthMismatch
	}
	if err := s.Bus.Tx(tx, rx); err != nil {
		return err
	}
	done(len(rx))
	return nil
}

type spiJob struct {
	tx, rx []byte
	done   CompletionFunc
}

// AsyncSPI adapts a blocking drivers.SPI into a Transceiver that runs the
// transfer on its own worker goroutine and reports completion from there.
type AsyncSPI struct {
	bus  drivers.SPI
	jobs chan spiJob
	busy atomic.Bool

	mu     sync.Mutex
	closed bool

	// Failures counts transfers the underlying bus rejected
	Failures atomic.Uint32
}

// NewAsyncSPI starts the worker goroutine for bus
func NewAsyncSPI(bus drivers.SPI) *AsyncSPI {
	a := &AsyncSPI{
		bus:  bus,
		jobs: make(chan spiJob, 1),
	}
	go a.worker()
	return a
}

// Transceive queues the transfer for the worker. Only one transfer may be in
// flight at a time.
func (a *AsyncSPI) Transceive(tx, rx []byte, done CompletionFunc) error {
	if len(tx) != len(rx) {
		return ErrLengthMismatch
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrBusClosed
	}
	if !a.busy.CompareAndSwap(false, true) {
		return ErrBusBusy
	}
	// The worker has taken the previous job before clearing busy, so the
	// buffered send never blocks.
	a.jobs <- spiJob{tx: tx, rx: rx, done: done}
	return nil
}

// Close stops the worker once the in-flight transfer (if any) completes.
// Later transfers fail with ErrBusClosed.
func (a *AsyncSPI) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.jobs)
}

func (a *AsyncSPI) worker() {
	for job := range a.jobs {
		n := len(job.rx)
		if err := a.bus.Tx(job.tx, job.rx); err != nil {
			// A failed transfer still completes, with nothing received.
			n = 0
			a.Failures.Add(1)
			RecordEvent(EvtBusError, 0, uint32(len(job.tx)), 0)
			DebugAsync("spi: " + err.Error())
		}
		a.busy.Store(false)
		job.done(n)
	}
}

// Global singleton used by core code
var transceiver Transceiver

// SetTransceiver is called by target-specific code to register its bus
func SetTransceiver(t Transceiver) {
	transceiver = t
}

// MustTransceiver returns the configured bus or panics if missing
func MustTransceiver() Transceiver {
	if transceiver == nil {
		panic("SPI transceiver not configured")
	}
	return transceiver
}
