//go:build rp2040 || rp2350

package main

import (
	"time"

	"tinygo.org/x/drivers"

	"gonrf/core"
	"gonrf/nrf24"
)

// drivePeriodMillis is how often the state machine is stepped
const drivePeriodMillis = 1

// RunNativeMode runs the radio driver on the MCU and prints transitions and
// decoded status over USB
func RunNativeMode(gpio *RPGPIODriver, bus drivers.SPI) {
	core.SetDebugWriter(func(s string) {
		writeUSB([]byte(s + "\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	clock := hwClock{}
	core.SetTransceiver(core.NewAsyncSPI(bus))
	dev, err := nrf24.New(nrf24.Hardware{
		Bus:   core.MustTransceiver(),
		GPIO:  core.MustGPIO(),
		Pins:  radioPins,
		Clock: clock,
	})
	if err != nil {
		fatalBlink()
	}

	if err := dev.Configure(defaultInit()); err != nil {
		core.DebugPrintln("nrf24: configure: " + err.Error())
		core.DumpEventRing(nil)
		fatalBlink()
	}
	if err := core.ConfigureControlPins(gpio, radioPins); err != nil {
		fatalBlink()
	}

	dev.OnTransition(func(from, to nrf24.State) {
		core.DebugPrintln("nrf24: " + from.String() + " -> " + to.String())
		if from == nrf24.StateStatusReading {
			core.DebugPrintln("nrf24: STATUS=0x" + core.Hex8(dev.Registers().Status) +
				" FIFO_STATUS=0x" + core.Hex8(dev.Registers().FIFOStatus))
		}
	})

	if err := gpio.ConfigureIRQ(pinIRQ, func() { _ = dev.NotifyInterrupt() }); err != nil {
		fatalBlink()
	}

	_ = dev.RequestPowerOn()
	_ = dev.RequestWake()

	runner := core.NewRunner(clock)
	runner.Every(drivePeriodMillis, dev.Drive)
	for {
		if runner.Step() == 0 {
			time.Sleep(100 * time.Microsecond)
		}
	}
}

// defaultInit listens on the radio's reset addresses
func defaultInit() *nrf24.InitData {
	init := &nrf24.InitData{AddressWidth: 5}
	init.Pipes[0] = nrf24.PipeConfig{Enabled: true, AutoAck: true, Address: [5]byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}}
	init.Pipes[1] = nrf24.PipeConfig{Enabled: true, AutoAck: true, Address: [5]byte{0xC2, 0xC2, 0xC2, 0xC2, 0xC2}}
	return init
}
