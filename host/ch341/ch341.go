// Package ch341 drives a radio from a CH341A USB adapter in SPI mode.
//
// The adapter's D0-D5 lines are exposed as GPIO pins 0-5, so CSN and CE can
// be wired to any of them. Device implements drivers.SPI and
// core.GPIODriver; wrap it in core.NewAsyncSPI to give the radio a
// non-blocking bus.
package ch341

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"gonrf/core"
	"gonrf/host/logging"
)

// USB identifiers of the CH341A in SPI/I2C mode
const (
	VendorID  = 0x1A86
	ProductID = 0x5512
)

const (
	bulkEndpoint = 2
	ioTimeout    = time.Second
)

var (
	// ErrNotFound is returned when no adapter is attached
	ErrNotFound = errors.New("ch341: device not found")
	// ErrInvalidPin is returned for pins outside D0-D5
	ErrInvalidPin = errors.New("ch341: pin out of range")
)

// Device is an open CH341A adapter
type Device struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	iface  *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint

	mu      sync.Mutex
	levels  byte
	outputs byte
	packet  []byte
	reply   [packetLength]byte
}

// Open claims the first attached adapter
func Open() (*Device, error) {
	ctx := gousb.NewContext()
	usbDev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("ch341: open: %w", err)
	}
	if usbDev == nil {
		ctx.Close()
		return nil, ErrNotFound
	}

	d, err := wrapDevice(ctx, usbDev)
	if err != nil {
		usbDev.Close()
		ctx.Close()
		return nil, err
	}
	if err := d.write(speedPacket(3)); err != nil {
		d.Close()
		return nil, err
	}
	logging.LogInfo(logging.ComponentCH341, "adapter opened",
		"bus", usbDev.Desc.Bus, "address", usbDev.Desc.Address)
	return d, nil
}

func wrapDevice(ctx *gousb.Context, usbDev *gousb.Device) (*Device, error) {
	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("ch341: configuration: %w", err)
	}
	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("ch341: claim interface: %w", err)
	}
	epIn, err := iface.InEndpoint(bulkEndpoint)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("ch341: IN endpoint: %w", err)
	}
	epOut, err := iface.OutEndpoint(bulkEndpoint)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("ch341: OUT endpoint: %w", err)
	}

	return &Device{
		ctx:    ctx,
		dev:    usbDev,
		config: config,
		iface:  iface,
		epIn:   epIn,
		epOut:  epOut,
		packet: make([]byte, 0, packetLength),
	}, nil
}

// Close releases the interface and the USB context
func (d *Device) Close() error {
	if d.iface != nil {
		d.iface.Close()
	}
	if d.config != nil {
		d.config.Close()
	}
	var err error
	if d.dev != nil {
		err = d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
	return err
}

// Tx runs a full-duplex transfer. len(r) must equal len(w) or be zero.
func (d *Device) Tx(w, r []byte) error {
	if len(r) != 0 && len(r) != len(w) {
		return core.ErrLengthMismatch
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for off := 0; off < len(w); off += spiChunk {
		end := min(off+spiChunk, len(w))
		d.packet = appendSPIPacket(d.packet[:0], w[off:end])
		if err := d.write(d.packet); err != nil {
			return err
		}
		if err := d.read(d.reply[:end-off]); err != nil {
			return err
		}
		if len(r) != 0 {
			for i, b := range d.reply[:end-off] {
				r[off+i] = reverseBits(b)
			}
		}
	}
	return nil
}

// Transfer clocks out one byte and returns the byte clocked in
func (d *Device) Transfer(b byte) (byte, error) {
	var rx [1]byte
	if err := d.Tx([]byte{b}, rx[:]); err != nil {
		return 0, err
	}
	return rx[0], nil
}

// ConfigureOutput makes D<pin> an output driven low
func (d *Device) ConfigureOutput(pin core.GPIOPin) error {
	if pin > 5 {
		return ErrInvalidPin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs |= 1 << pin
	d.levels &^= 1 << pin
	return d.write(uioPacket(d.levels, d.outputs))
}

// SetPin drives D<pin>
func (d *Device) SetPin(pin core.GPIOPin, value bool) error {
	if pin > 5 {
		return ErrInvalidPin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if value {
		d.levels |= 1 << pin
	} else {
		d.levels &^= 1 << pin
	}
	return d.write(uioPacket(d.levels, d.outputs))
}

func (d *Device) write(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	n, err := d.epOut.WriteContext(ctx, p)
	if err != nil {
		return fmt.Errorf("ch341: write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("ch341: short write %d/%d", n, len(p))
	}
	return nil
}

func (d *Device) read(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	for got := 0; got < len(p); {
		n, err := d.epIn.ReadContext(ctx, p[got:])
		if err != nil {
			return fmt.Errorf("ch341: read: %w", err)
		}
		got += n
	}
	return nil
}
