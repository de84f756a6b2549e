//go:build rp2040 || rp2350

// Package pio provides a PIO-clocked SPI bus for the radio. It frees the
// SPI blocks and lets the radio sit on any three GPIOs.
package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// NewSPI claims a state machine, trying PIO0 then PIO1, and runs a mode 0
// SPI master on it. The result satisfies drivers.SPI.
func NewSPI(sck, sdo, sdi machine.Pin, frequency uint32) (*piolib.SPI, error) {
	sm, err := rp2pio.PIO0.ClaimStateMachine()
	if err != nil {
		sm, err = rp2pio.PIO1.ClaimStateMachine()
		if err != nil {
			return nil, err
		}
	}
	return piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: frequency,
		SCK:       sck,
		SDO:       sdo,
		SDI:       sdi,
		Mode:      0,
	})
}
