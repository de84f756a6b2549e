//go:build rp2040 || rp2350

package main

// ModeConfig determines which mode to run
type ModeConfig struct {
	// Bridge serves the host link over USB and leaves the radio driver to
	// the host. Otherwise the driver runs on the MCU.
	Bridge bool
	// PIO clocks SPI from a PIO state machine instead of the SPI block
	PIO bool
}

// GetMode returns the current mode configuration.
// Change at compile time; bridge mode is the default.
func GetMode() ModeConfig {
	return ModeConfig{
		Bridge: true,
		PIO:    false,
	}
}
