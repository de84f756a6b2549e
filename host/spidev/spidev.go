// Package spidev drives a radio wired straight to a Linux SPI port, such as
// a Raspberry Pi header, through periph.io.
//
// Chip select is driven as a plain GPIO by the radio driver, so the port is
// opened without hardware CS. Pins are named by their BCM number.
package spidev

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"gonrf/core"
	"gonrf/host/logging"
)

// ErrUnknownPin is returned when the registry has no pin by that number
var ErrUnknownPin = errors.New("spidev: unknown pin")

// edgePoll bounds how long the IRQ watcher blocks before checking for
// cancellation
const edgePoll = 100 * time.Millisecond

// Config selects the SPI port and bus speed
type Config struct {
	// Port is a spireg name such as "/dev/spidev0.0"; empty picks the first
	Port    string
	SpeedHz int64
}

// Device is an open SPI port plus the GPIO pins the driver touches
type Device struct {
	port spi.PortCloser
	conn spi.Conn

	mu   sync.Mutex
	pins map[core.GPIOPin]gpio.PinIO
}

// Open initialises periph and connects to the port in mode 0
func Open(cfg Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spidev: host init: %w", err)
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %q: %w", cfg.Port, err)
	}
	speed := physic.Frequency(cfg.SpeedHz) * physic.Hertz
	if speed <= 0 {
		speed = physic.MegaHertz
	}
	conn, err := port.Connect(speed, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spidev: connect: %w", err)
	}
	logging.LogInfo(logging.ComponentRadio, "spi port opened", "port", cfg.Port, "speed", speed.String())
	return &Device{
		port: port,
		conn: conn,
		pins: make(map[core.GPIOPin]gpio.PinIO),
	}, nil
}

// Close releases the port
func (d *Device) Close() error {
	return d.port.Close()
}

// Tx runs a full-duplex transfer
func (d *Device) Tx(w, r []byte) error {
	return d.conn.Tx(w, r)
}

// Transfer clocks out one byte and returns the byte clocked in
func (d *Device) Transfer(b byte) (byte, error) {
	var rx [1]byte
	if err := d.conn.Tx([]byte{b}, rx[:]); err != nil {
		return 0, err
	}
	return rx[0], nil
}

func (d *Device) pin(n core.GPIOPin) (gpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pins[n]; ok {
		return p, nil
	}
	p := gpioreg.ByName(pinName(n))
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPin, n)
	}
	d.pins[n] = p
	return p, nil
}

// ConfigureOutput makes pin an output driven low
func (d *Device) ConfigureOutput(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

// SetPin drives pin
func (d *Device) SetPin(pin core.GPIOPin, value bool) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(value))
}

// WatchIRQ calls fn on every falling edge of the active-low IRQ pin until
// ctx is done. It blocks; run it on its own goroutine.
func (d *Device) WatchIRQ(ctx context.Context, pin core.GPIOPin, fn func()) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("spidev: irq pin %d: %w", pin, err)
	}
	defer p.In(gpio.PullNoChange, gpio.NoEdge)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if p.WaitForEdge(edgePoll) {
			fn()
		}
	}
}

func pinName(n core.GPIOPin) string {
	return "GPIO" + strconv.FormatUint(uint64(n), 10)
}
