// Package config describes a radio installation in JSON: which backend
// drives the bus, the control pins and the pipe setup.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gonrf/core"
	"gonrf/nrf24"
)

// Backends
const (
	BackendBridge = "bridge"
	BackendCH341  = "ch341"
	BackendSpidev = "spidev"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrBadAddress     = errors.New("bad pipe address")
	ErrBadPipe        = errors.New("pipe index out of range")
)

// PipeSettings is one RX pipe. Address is hex, most significant byte first,
// with optional ':' separators.
type PipeSettings struct {
	Pipe    int    `json:"pipe"`
	Enabled bool   `json:"enabled"`
	AutoAck bool   `json:"auto_ack"`
	Address string `json:"address"`
}

// PinSettings names the control pins. Pin numbers are backend specific: MCU
// GPIO numbers for the bridge, D0-D5 for the CH341, BCM numbers for spidev.
type PinSettings struct {
	CSN uint32 `json:"csn"`
	CE  uint32 `json:"ce"`
	IRQ uint32 `json:"irq"`
}

// RadioConfig is the complete on-disk description
type RadioConfig struct {
	Backend      string         `json:"backend"`
	Device       string         `json:"device,omitempty"`
	Baud         int            `json:"baud,omitempty"`
	SpeedHz      int64          `json:"speed_hz,omitempty"`
	PollMillis   uint64         `json:"poll_ms,omitempty"`
	AddressWidth int            `json:"address_width"`
	Pins         PinSettings    `json:"pins"`
	Pipes        []PipeSettings `json:"pipes"`
}

// Default returns the radio's power-on addressing with pipes 0 and 1
// enabled on a bridge
func Default() *RadioConfig {
	return &RadioConfig{
		Backend:      BackendBridge,
		Device:       "/dev/ttyACM0",
		Baud:         250000,
		SpeedHz:      1000000,
		PollMillis:   1,
		AddressWidth: 5,
		Pins:         PinSettings{CSN: 17, CE: 20, IRQ: 22},
		Pipes: []PipeSettings{
			{Pipe: 0, Enabled: true, AutoAck: true, Address: "E7E7E7E7E7"},
			{Pipe: 1, Enabled: true, AutoAck: true, Address: "C2C2C2C2C2"},
		},
	}
}

// applyDefaults fills zero fields from Default
func (c *RadioConfig) applyDefaults() {
	d := Default()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Baud == 0 {
		c.Baud = d.Baud
	}
	if c.SpeedHz == 0 {
		c.SpeedHz = d.SpeedHz
	}
	if c.PollMillis == 0 {
		c.PollMillis = d.PollMillis
	}
	if c.AddressWidth == 0 {
		c.AddressWidth = d.AddressWidth
	}
}

// Validate checks the parts the driver does not check itself
func (c *RadioConfig) Validate() error {
	switch c.Backend {
	case BackendBridge, BackendCH341, BackendSpidev:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	for _, p := range c.Pipes {
		if p.Pipe < 0 || p.Pipe >= nrf24.MaxPipes {
			return fmt.Errorf("%w: %d", ErrBadPipe, p.Pipe)
		}
	}
	return nil
}

// ControlPins returns the CSN/CE pair for the driver
func (c *RadioConfig) ControlPins() core.ControlPins {
	return core.ControlPins{CSN: core.GPIOPin(c.Pins.CSN), CE: core.GPIOPin(c.Pins.CE)}
}

// InitData converts the description into driver configuration. Address
// consistency between pipes is left to nrf24.Device.Configure.
func (c *RadioConfig) InitData() (*nrf24.InitData, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	init := &nrf24.InitData{AddressWidth: c.AddressWidth}
	for _, p := range c.Pipes {
		cfg := &init.Pipes[p.Pipe]
		cfg.Enabled = p.Enabled
		cfg.AutoAck = p.AutoAck
		if p.Address == "" {
			if p.Enabled {
				return nil, fmt.Errorf("pipe %d: %w: missing", p.Pipe, ErrBadAddress)
			}
			continue
		}
		addr, err := ParseAddress(p.Address, c.AddressWidth)
		if err != nil {
			return nil, fmt.Errorf("pipe %d: %w", p.Pipe, err)
		}
		cfg.Address = addr
	}
	return init, nil
}

// ParseAddress decodes a width-byte hex address, most significant byte first
func ParseAddress(s string, width int) ([nrf24.MaxAddressWidth]byte, error) {
	var addr [nrf24.MaxAddressWidth]byte
	raw, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if len(raw) != width {
		return addr, fmt.Errorf("%w: %q has %d bytes, expected %d", ErrBadAddress, s, len(raw), width)
	}
	copy(addr[:], raw)
	return addr, nil
}

// FormatAddress is the inverse of ParseAddress
func FormatAddress(addr [nrf24.MaxAddressWidth]byte, width int) string {
	if width < 0 || width > len(addr) {
		width = len(addr)
	}
	return strings.ToUpper(hex.EncodeToString(addr[:width]))
}
