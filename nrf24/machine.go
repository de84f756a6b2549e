package nrf24

import "gonrf/core"

// stateHandlers maps every state to its handler. Indexing is bounded by
// State.Valid, so an out-of-range state is a no-op.
var stateHandlers = [numStates]func(*Device){
	StatePowerOff:          (*Device).handlePowerOff,
	StateModuleStartup:     (*Device).handleModuleStartup,
	StateConfigure:         (*Device).handleConfigure,
	StateSleep:             (*Device).handleSleep,
	StateIdle:              (*Device).handleIdle,
	StateExternalInterrupt: (*Device).handleExternalInterrupt,
	StateStatusReading:     (*Device).handleStatusReading,
	StateReceive:           (*Device).handleReserved,
	StateReceiving:         (*Device).handleReserved,
	StateTransmit:          (*Device).handleReserved,
	StateTransmitting:      (*Device).handleReserved,
	StatePoweringOff:       (*Device).handleReserved,
}

// Drive advances the machine by one step. It never blocks and must be
// called repeatedly. Does nothing on a nil or unconfigured device.
func (d *Device) Drive() {
	if d == nil || !d.configured.Load() {
		return
	}
	if !d.state.Valid() {
		return
	}
	stateHandlers[d.state](d)
}

func (d *Device) transition(to State) {
	from := d.state
	core.RecordEvent(core.EvtTransition, uint8(from), uint32(from), uint32(to))
	d.state = to
	if d.onTransition != nil {
		d.onTransition(from, to)
	}
}

func (d *Device) setChipEnable(active bool) bool {
	if err := core.SetChipEnable(d.hw.GPIO, d.hw.Pins, active); err != nil {
		core.RecordEvent(core.EvtGPIOError, uint8(d.state), uint32(d.hw.Pins.CE), 0)
		core.DebugPrintln("nrf24: CE: " + err.Error())
		return false
	}
	return true
}

// PowerOff: on a power-on request, drop CE, write CONFIG with PWR_UP and
// start the settle timer. CE may still be high after a reconfigure from Idle.
func (d *Device) handlePowerOff() {
	if !d.flags.powerOn.Load() {
		return
	}
	if !d.setChipEnable(false) {
		return
	}

	cfg := DecodeConfig(d.regs.Config)
	cfg.PwrUp = true
	cfg.PrimRx = true
	cfg.MaskTxDS = true
	cfg.MaskMaxRT = true
	raw := cfg.Apply(d.regs.Config)

	d.scratch[0] = raw
	if err := d.engine.BeginWrite(RegConfig, d.scratch[:1]); err != nil {
		return
	}
	d.regs.Config = raw
	d.flags.powerOn.Store(false)
	d.deadline = d.hw.Clock.NowMillis() + PowerOnSettleMillis
	d.transition(StateModuleStartup)
}

// ModuleStartup: wait for the CONFIG write and the settle time
func (d *Device) handleModuleStartup() {
	if !d.engine.Ready() {
		return
	}
	if d.hw.Clock.NowMillis() < d.deadline {
		return
	}
	d.configStep = 0
	d.transition(StateConfigure)
}

// Configure sequence, one transaction per step
const (
	stepEnAA = iota
	stepEnRxAddr
	stepSetupAW
	stepRxAddrP0
	stepRxAddrP5 = stepRxAddrP0 + MaxPipes - 1
	stepFlushTx  = stepRxAddrP5 + 1
	stepFlushRx  = stepFlushTx + 1
	configSteps  = stepFlushRx + 1
)

func (d *Device) beginConfigStep(step uint8) error {
	switch {
	case step == stepEnAA:
		d.scratch[0] = d.regs.EnAA
		return d.engine.BeginWrite(RegEnAA, d.scratch[:1])
	case step == stepEnRxAddr:
		d.scratch[0] = d.regs.EnRxAddr
		return d.engine.BeginWrite(RegEnRxAddr, d.scratch[:1])
	case step == stepSetupAW:
		d.scratch[0] = d.regs.SetupAW
		return d.engine.BeginWrite(RegSetupAW, d.scratch[:1])
	case step >= stepRxAddrP0 && step <= stepRxAddrP5:
		pipe := int(step - stepRxAddrP0)
		payload := d.regs.RxAddressPayload(pipe, d.scratch[:])
		return d.engine.BeginWrite(RxAddrRegister(pipe), payload)
	case step == stepFlushTx:
		return d.engine.BeginCommand(CmdFlushTx)
	default:
		return d.engine.BeginCommand(CmdFlushRx)
	}
}

// Configure: program the remaining registers and flush both FIFOs. Each
// step waits for the previous one, so with a transceiver that completes
// inline the whole sequence runs in one call.
func (d *Device) handleConfigure() {
	for d.engine.Ready() {
		if d.configStep >= configSteps {
			d.transition(StateSleep)
			return
		}
		if err := d.beginConfigStep(d.configStep); err != nil {
			return
		}
		d.configStep++
	}
}

// Sleep: on a wake request, raise CE
func (d *Device) handleSleep() {
	if !d.flags.wake.Load() {
		d.flags.sleep.Store(false)
		return
	}
	if !d.setChipEnable(true) {
		return
	}
	d.flags.wake.Store(false)
	d.transition(StateIdle)
}

// Idle: an interrupt takes priority over a sleep request
func (d *Device) handleIdle() {
	if d.flags.interrupt.Load() {
		d.transition(StateExternalInterrupt)
		return
	}
	if d.flags.sleep.Load() {
		if !d.setChipEnable(false) {
			return
		}
		d.flags.sleep.Store(false)
		d.transition(StateSleep)
		return
	}
	// Already awake.
	d.flags.wake.Store(false)
}

// ExternalInterrupt: read FIFO_STATUS; the frame clocks STATUS in first
func (d *Device) handleExternalInterrupt() {
	if d.engine.Busy() {
		return
	}
	d.flags.interrupt.Store(false)
	if err := d.engine.BeginRead(RegFIFOStatus, 1); err != nil {
		d.flags.interrupt.Store(true)
		return
	}
	d.transition(StateStatusReading)
}

// StatusReading: decode STATUS and FIFO_STATUS once the read completes
func (d *Device) handleStatusReading() {
	if !d.engine.Ready() {
		return
	}

	rx := d.engine.Received()
	if len(rx) > 0 {
		d.regs.Status = rx[0]
	}
	if len(rx) > 1 {
		d.regs.FIFOStatus = rx[1]
	}
	core.RecordEvent(core.EvtStatus, uint8(d.state), uint32(d.regs.Status), uint32(d.regs.FIFOStatus))

	status := DecodeStatus(d.regs.Status)
	pending := len(rx) > 0 && (status.RxDR || status.RxPending())
	if len(rx) > 1 && !DecodeFIFOStatus(d.regs.FIFOStatus).RxEmpty {
		pending = true
	}
	if pending {
		d.transition(StateReceive)
		return
	}
	d.transition(StateIdle)
}

// Payload states are reserved
func (d *Device) handleReserved() {}
