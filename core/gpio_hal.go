package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Returns error if pin is invalid or already in use
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}

// ControlPins describes the radio control lines.
// CSN frames a bus transaction, CE arms the RF part.
type ControlPins struct {
	CSN          GPIOPin
	CE           GPIOPin
	CSActiveHigh bool // default is active low (nCS)
}

// SetChipSelect drives CSN to its active or inactive level
func SetChipSelect(d GPIODriver, pins ControlPins, active bool) error {
	level := !active // active low
	if pins.CSActiveHigh {
		level = active
	}
	return d.SetPin(pins.CSN, level)
}

// SetChipEnable drives CE high (active) or low
func SetChipEnable(d GPIODriver, pins ControlPins, active bool) error {
	return d.SetPin(pins.CE, active)
}

// ConfigureControlPins configures CSN and CE as outputs and parks them
// deasserted.
func ConfigureControlPins(d GPIODriver, pins ControlPins) error {
	if err := d.ConfigureOutput(pins.CSN); err != nil {
		return err
	}
	if err := d.ConfigureOutput(pins.CE); err != nil {
		return err
	}
	if err := SetChipSelect(d, pins, false); err != nil {
		return err
	}
	return SetChipEnable(d, pins, false)
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
