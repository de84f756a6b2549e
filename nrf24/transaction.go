package nrf24

import (
	"sync/atomic"

	"gonrf/core"
)

// Engine issues one register transaction at a time over an asynchronous
// transceiver. Begin* run in the driving context; Complete runs in whatever
// context the transceiver reports from and touches only rxLen, outstanding,
// ready and the chip-select line.
type Engine struct {
	bus  core.Transceiver
	gpio core.GPIODriver
	pins core.ControlPins

	tx       [MaxTransferSize]byte
	rx       [MaxTransferSize]byte
	frameLen int
	command  byte
	done     core.CompletionFunc

	rxLen       atomic.Uint32
	outstanding atomic.Bool
	ready       atomic.Bool
}

// NewEngine binds an engine to its bus and chip-select line
func NewEngine(bus core.Transceiver, gpio core.GPIODriver, pins core.ControlPins) *Engine {
	e := &Engine{}
	e.init(bus, gpio, pins)
	return e
}

func (e *Engine) init(bus core.Transceiver, gpio core.GPIODriver, pins core.ControlPins) {
	e.bus = bus
	e.gpio = gpio
	e.pins = pins
	e.done = e.Complete
}

// BeginWrite starts a W_REGISTER transaction for reg with payload
func (e *Engine) BeginWrite(reg byte, payload []byte) error {
	if len(payload) > MaxRegisterPayload {
		return ErrPayloadTooLarge
	}
	return e.begin(CommandByte(CmdWriteRegister, reg), payload, 0)
}

// BeginRead starts an R_REGISTER transaction for n bytes of reg. The first
// received byte is always STATUS, followed by the register value.
func (e *Engine) BeginRead(reg byte, n int) error {
	if n < 0 || n > MaxRegisterPayload {
		return ErrPayloadTooLarge
	}
	return e.begin(CommandByte(CmdReadRegister, reg), nil, n)
}

// BeginCommand starts a single-byte command such as FLUSH_TX or NOP
func (e *Engine) BeginCommand(cmd byte) error {
	return e.begin(cmd, nil, 0)
}

func (e *Engine) begin(cmd byte, payload []byte, readLen int) error {
	if !e.outstanding.CompareAndSwap(false, true) {
		core.RecordEvent(core.EvtProtocolViolation, 0, uint32(cmd), uint32(e.command))
		return ErrProtocolViolation
	}

	if err := core.SetChipSelect(e.gpio, e.pins, true); err != nil {
		core.RecordEvent(core.EvtGPIOError, 0, uint32(e.pins.CSN), 1)
		e.outstanding.Store(false)
		return err
	}

	n := 1 + len(payload) + readLen
	e.tx[0] = cmd
	copy(e.tx[1:], payload)
	for i := 1 + len(payload); i < n; i++ {
		e.tx[i] = CmdNOP
	}
	for i := range e.rx {
		e.rx[i] = 0
	}
	e.frameLen = n
	e.command = cmd
	e.rxLen.Store(0)
	wasReady := e.ready.Swap(false)

	core.RecordEvent(core.EvtTxBegin, 0, uint32(cmd), uint32(n))
	if err := e.bus.Transceive(e.tx[:n], e.rx[:n], e.done); err != nil {
		core.RecordEvent(core.EvtBusError, 0, uint32(cmd), uint32(n))
		if csErr := core.SetChipSelect(e.gpio, e.pins, false); csErr != nil {
			core.RecordEvent(core.EvtGPIOError, 0, uint32(e.pins.CSN), 0)
		}
		e.outstanding.Store(false)
		e.ready.Store(wasReady)
		return err
	}
	return nil
}

// Complete records the end of the outstanding transaction. It is the
// transceiver's completion callback. Stray calls with nothing outstanding
// are ignored.
func (e *Engine) Complete(n int) {
	if !e.outstanding.Load() {
		return
	}
	if n < 0 {
		n = 0
	}
	e.rxLen.Store(uint32(n))
	if err := core.SetChipSelect(e.gpio, e.pins, false); err != nil {
		core.RecordEvent(core.EvtGPIOError, 0, uint32(e.pins.CSN), 0)
	}
	core.RecordEvent(core.EvtTxComplete, 0, uint32(n), 0)
	// ready first, so a reset that observed !Busy cannot be undone by us
	e.ready.Store(true)
	e.outstanding.Store(false)
}

// Ready reports whether the last transaction completed and nothing is in flight
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// Busy reports whether a transaction is outstanding
func (e *Engine) Busy() bool {
	return e.outstanding.Load()
}

// Received returns the bytes clocked in by the last completed transaction,
// bounded by the frame length. Only valid while Ready.
func (e *Engine) Received() []byte {
	n := int(e.rxLen.Load())
	if n > e.frameLen {
		n = e.frameLen
	}
	return e.rx[:n]
}

// LastCommand returns the command byte of the most recent transaction
func (e *Engine) LastCommand() byte {
	return e.command
}

// reset returns the engine to its zero state, keeping its bindings
func (e *Engine) reset() {
	e.tx = [MaxTransferSize]byte{}
	e.rx = [MaxTransferSize]byte{}
	e.frameLen = 0
	e.command = 0
	e.rxLen.Store(0)
	e.outstanding.Store(false)
	e.ready.Store(false)
}
