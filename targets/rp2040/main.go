//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"gonrf/core"
)

// Radio wiring on the default board
const (
	pinCSN core.GPIOPin = 17
	pinCE  core.GPIOPin = 20
	pinIRQ core.GPIOPin = 22
)

var radioPins = core.ControlPins{CSN: pinCSN, CE: pinCE}

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	core.SetEventClock(hwClock{})

	gpioDriver := NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)

	mode := GetMode()
	bus, err := ConfigureRadioSPI(mode.PIO)
	if err != nil {
		fatalBlink()
	}

	if mode.Bridge {
		RunBridgeMode(gpioDriver, bus)
	} else {
		RunNativeMode(gpioDriver, bus)
	}
}

// fatalBlink flashes the LED rapidly forever to signal a startup failure
func fatalBlink() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
