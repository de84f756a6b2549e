//go:build rp2040 || rp2350

package main

import (
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"gonrf/core"
)

var (
	irqPending atomic.Bool

	// Debug counters
	writeFailures uint32
)

// RunBridgeMode serves the host link. The host runs the radio driver and
// reaches the bus and pins through framed USB commands.
func RunBridgeMode(gpio *RPGPIODriver, bus drivers.SPI) {
	server := core.NewBridgeServer(gpio, bus, writeUSB)

	if err := gpio.ConfigureIRQ(pinIRQ, func() { irqPending.Store(true) }); err != nil {
		fatalBlink()
	}

	var buf [64]byte
	for {
		n := 0
		for n < len(buf) && USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				break
			}
			buf[n] = b
			n++
		}
		if n > 0 {
			server.Receive(buf[:n])
		}

		// The edge is reported from the loop, never from interrupt context
		if irqPending.Swap(false) {
			server.NotifyIRQ(pinIRQ)
		}

		if n == 0 {
			time.Sleep(50 * time.Microsecond)
		}
	}
}

// writeUSB sends one frame, handling partial writes. The frame is dropped
// after repeated failures; the host counts the sequence gap.
func writeUSB(frame []byte) {
	written := 0
	for attempts := 0; written < len(frame); attempts++ {
		if attempts > 10 {
			writeFailures++
			return
		}
		n, err := USBWriteBytes(frame[written:])
		if err != nil || n == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		written += n
	}
}
