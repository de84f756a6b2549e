// Package serial opens the host end of the bridge link
package serial

import (
	"io"
)

// Port is the byte stream under the bridge. Native ports, pipes and test
// doubles all satisfy it.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; ignored by USB CDC
	Baud int

	// ReadTimeout bounds each Read in milliseconds so the reader can
	// notice shutdown (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the bridge defaults for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
	}
}
