// Package nrf24 is a non-blocking driver core for the nRF24L01(+) radio.
//
// The driver never waits on the bus. Drive is called repeatedly from one
// loop; each call runs the handler of the current state, which may start one
// asynchronous register transaction and change state at most once. The bus
// reports completion through NotifyTransactionComplete from any context.
// Request* and NotifyInterrupt only set flags and are safe to call from
// interrupt handlers or other goroutines.
package nrf24

import (
	"errors"
	"sync/atomic"

	"gonrf/core"
)

// PowerOnSettleMillis is the time the module needs after PWR_UP before it
// accepts configuration
const PowerOnSettleMillis = 100

// Hardware bundles the external collaborators of a Device
type Hardware struct {
	Bus   core.Transceiver
	GPIO  core.GPIODriver
	Pins  core.ControlPins
	Clock core.Clock
}

// requestFlags are set by callers or ISRs and cleared only by the machine
type requestFlags struct {
	powerOn   atomic.Bool
	wake      atomic.Bool
	sleep     atomic.Bool
	interrupt atomic.Bool
}

func (f *requestFlags) reset() {
	f.powerOn.Store(false)
	f.wake.Store(false)
	f.sleep.Store(false)
	f.interrupt.Store(false)
}

// Device is one radio driver instance
type Device struct {
	hw Hardware

	regs   RegisterCache
	pipes  [MaxPipes]PipeConfig
	engine Engine
	flags  requestFlags

	state      State
	deadline   uint64
	configStep uint8
	scratch    [MaxRegisterPayload]byte
	configured atomic.Bool

	onTransition func(from, to State)
}

// New creates an unconfigured driver bound to hw
func New(hw Hardware) (*Device, error) {
	if hw.Bus == nil || hw.GPIO == nil || hw.Clock == nil {
		return nil, ErrInvalidArgument
	}
	d := &Device{hw: hw}
	d.engine.init(hw.Bus, hw.GPIO, hw.Pins)
	return d, nil
}

// Configure validates init and resets the driver to PowerOff with the
// resulting register image. Any failure leaves the driver zeroed and
// unconfigured, discarding an earlier valid configuration.
func (d *Device) Configure(init *InitData) error {
	if d == nil || init == nil {
		return ErrInvalidArgument
	}
	if d.engine.Busy() {
		return ErrProtocolViolation
	}

	d.reset()

	regs, err := BuildRegisters(init)
	if err != nil {
		pipe := uint32(0xFF)
		var pe *PipeError
		if errors.As(err, &pe) {
			pipe = uint32(pe.Pipe)
		}
		core.RecordEvent(core.EvtConfigError, uint8(d.state), pipe, 0)
		return err
	}

	d.regs = regs
	for i := range init.Pipes {
		if init.Pipes[i].Enabled {
			d.pipes[i] = init.Pipes[i]
		}
	}
	d.configured.Store(true)
	return nil
}

func (d *Device) reset() {
	d.configured.Store(false)
	d.regs = RegisterCache{}
	d.pipes = [MaxPipes]PipeConfig{}
	d.engine.reset()
	d.flags.reset()
	d.state = StatePowerOff
	d.deadline = 0
	d.configStep = 0
	d.scratch = [MaxRegisterPayload]byte{}
}

func (d *Device) check() error {
	if d == nil {
		return ErrInvalidArgument
	}
	if !d.configured.Load() {
		return ErrNotConfigured
	}
	return nil
}

// RequestPowerOn asks the machine to leave PowerOff
func (d *Device) RequestPowerOn() error {
	if err := d.check(); err != nil {
		return err
	}
	d.flags.powerOn.Store(true)
	return nil
}

// RequestWake asks the machine to leave Sleep and arm the receiver
func (d *Device) RequestWake() error {
	if err := d.check(); err != nil {
		return err
	}
	d.flags.wake.Store(true)
	return nil
}

// RequestSleep asks the machine to drop from Idle back to Sleep
func (d *Device) RequestSleep() error {
	if err := d.check(); err != nil {
		return err
	}
	d.flags.sleep.Store(true)
	return nil
}

// NotifyInterrupt records an IRQ edge. Safe from interrupt context.
func (d *Device) NotifyInterrupt() error {
	if err := d.check(); err != nil {
		return err
	}
	d.flags.interrupt.Store(true)
	return nil
}

// NotifyTransactionComplete is the bus completion entry point. It only
// records the received length and readiness.
func (d *Device) NotifyTransactionComplete(n int) {
	if d == nil {
		return
	}
	d.engine.Complete(n)
}

// OnTransition registers fn to be called from Drive on every state change
func (d *Device) OnTransition(fn func(from, to State)) {
	d.onTransition = fn
}

// State returns the current lifecycle state
func (d *Device) State() State {
	return d.state
}

// Configured reports whether Configure succeeded
func (d *Device) Configured() bool {
	return d != nil && d.configured.Load()
}

// Registers returns a copy of the register cache
func (d *Device) Registers() RegisterCache {
	return d.regs
}

// Status returns the last decoded STATUS register
func (d *Device) Status() StatusReg {
	return DecodeStatus(d.regs.Status)
}

// FIFOStatus returns the last decoded FIFO_STATUS register
func (d *Device) FIFOStatus() FIFOStatusReg {
	return DecodeFIFOStatus(d.regs.FIFOStatus)
}

// ReceiveHandler returns the callback configured for pipe, nil if the pipe
// is disabled or has none
func (d *Device) ReceiveHandler(pipe int) ReceiveFunc {
	if pipe < 0 || pipe >= MaxPipes {
		return nil
	}
	return d.pipes[pipe].OnReceive
}

// TransactionPending reports whether a bus transaction is outstanding
func (d *Device) TransactionPending() bool {
	return d.engine.Busy()
}
