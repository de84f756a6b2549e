//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"gonrf/core"
)

var errInvalidPin = errors.New("invalid GPIO pin")

// maxPin is the highest user GPIO on the RP2040
const maxPin = 29

// RPGPIODriver implements core.GPIODriver on machine.Pin
type RPGPIODriver struct {
	// Track configured pins to skip reconfiguration
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin > maxPin {
		return errInvalidPin
	}
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}
	machinePin.Set(value)
	return nil
}

// ConfigureIRQ arms a falling-edge interrupt on the radio's active-low IRQ
// line. fn runs in interrupt context.
func (d *RPGPIODriver) ConfigureIRQ(pin core.GPIOPin, fn func()) error {
	if pin > maxPin {
		return errInvalidPin
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return machinePin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		fn()
	})
}
