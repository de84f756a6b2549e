//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers"

	"gonrf/targets/pio"
)

// spiBusConfig names the controller and pins of one SPI bus option
type spiBusConfig struct {
	spi  *machine.SPI // SPI controller (SPI0 or SPI1)
	sck  machine.Pin  // Clock pin
	sdo  machine.Pin  // Serial Data Out (MOSI)
	sdi  machine.Pin  // Serial Data In (MISO)
	name string       // Human-readable name
}

var rp2040SPIBuses = []spiBusConfig{
	{spi: machine.SPI0, sck: machine.GPIO2, sdo: machine.GPIO3, sdi: machine.GPIO0, name: "spi0a"},
	{spi: machine.SPI0, sck: machine.GPIO6, sdo: machine.GPIO7, sdi: machine.GPIO4, name: "spi0b"},
	{spi: machine.SPI0, sck: machine.GPIO18, sdo: machine.GPIO19, sdi: machine.GPIO16, name: "spi0c"},
	{spi: machine.SPI0, sck: machine.GPIO22, sdo: machine.GPIO23, sdi: machine.GPIO20, name: "spi0d"},
	{spi: machine.SPI1, sck: machine.GPIO10, sdo: machine.GPIO11, sdi: machine.GPIO8, name: "spi1a"},
	{spi: machine.SPI1, sck: machine.GPIO14, sdo: machine.GPIO15, sdi: machine.GPIO12, name: "spi1b"},
}

// radioBus is the bus option the radio is wired to
const radioBus = 2

// radioSPIFrequency stays below the nRF24L01's 10MHz limit
const radioSPIFrequency = 8000000

// ConfigureRadioSPI sets up the radio's bus in mode 0, on the SPI block or
// on a PIO state machine
func ConfigureRadioSPI(usePIO bool) (drivers.SPI, error) {
	if radioBus >= len(rp2040SPIBuses) {
		return nil, errors.New("invalid SPI bus ID")
	}
	bus := rp2040SPIBuses[radioBus]

	if usePIO {
		return pio.NewSPI(bus.sck, bus.sdo, bus.sdi, radioSPIFrequency)
	}

	err := bus.spi.Configure(machine.SPIConfig{
		Frequency: radioSPIFrequency,
		SCK:       bus.sck,
		SDO:       bus.sdo,
		SDI:       bus.sdi,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return bus.spi, nil
}
