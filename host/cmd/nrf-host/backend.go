package main

import (
	"context"
	"fmt"
	"time"

	"gonrf/config"
	"gonrf/core"
	"gonrf/host/bridge"
	"gonrf/host/ch341"
	"gonrf/host/logging"
	"gonrf/host/serial"
	"gonrf/host/spidev"
)

// identifyTimeout bounds the bridge handshake
const identifyTimeout = 2 * time.Second

// ch341PollMillis is the STATUS sampling period when no IRQ line exists
const ch341PollMillis = 20

// backend is an opened bus plus pins for the driver
type backend struct {
	bus     core.Transceiver
	gpio    core.GPIODriver
	pollIRQ uint64

	startIRQ   func(ctx context.Context, pin core.GPIOPin, notify func())
	printStats func()
	closers    []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logging.LogWarn(logging.ComponentRadio, "close failed", "err", err)
		}
	}
}

func openBackend(ctx context.Context, cfg *config.RadioConfig) (*backend, error) {
	switch cfg.Backend {
	case config.BackendBridge:
		return openBridge(ctx, cfg)
	case config.BackendCH341:
		return openCH341()
	case config.BackendSpidev:
		return openSpidev(cfg)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

func openBridge(ctx context.Context, cfg *config.RadioConfig) (*backend, error) {
	scfg := serial.DefaultConfig(cfg.Device)
	scfg.Baud = cfg.Baud
	port, err := serial.Open(scfg)
	if err != nil {
		return nil, err
	}
	b := bridge.New(port)

	idCtx, cancel := context.WithTimeout(ctx, identifyTimeout)
	defer cancel()
	version, err := b.Identify(idCtx)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bridge on %s: %w", cfg.Device, err)
	}
	logging.LogInfo(logging.ComponentBridge, "connected", "device", cfg.Device, "firmware", version)

	return &backend{
		bus:  b,
		gpio: b,
		startIRQ: func(_ context.Context, pin core.GPIOPin, notify func()) {
			b.OnIRQ(func(p core.GPIOPin) {
				if p == pin {
					notify()
				}
			})
		},
		printStats: func() {
			s := b.Stats()
			fmt.Printf("frames=%d crc_errors=%d resyncs=%d seq_gaps=%d bad_commands=%d remote_errors=%d stray=%d\n",
				s.Frames.Load(), s.CRCErrors.Load(), s.Resyncs.Load(), s.SeqGaps.Load(),
				s.BadCommands.Load(), b.RemoteErrors.Load(), b.StrayResponses.Load())
		},
		closers: []func() error{b.Close},
	}, nil
}

func openCH341() (*backend, error) {
	d, err := ch341.Open()
	if err != nil {
		return nil, err
	}
	async := core.NewAsyncSPI(d)
	return &backend{
		bus:      async,
		gpio:     d,
		pollIRQ:  ch341PollMillis,
		startIRQ: func(context.Context, core.GPIOPin, func()) {},
		printStats: func() {
			fmt.Printf("spi failures=%d\n", async.Failures.Load())
		},
		closers: []func() error{
			d.Close,
			func() error { async.Close(); return nil },
		},
	}, nil
}

func openSpidev(cfg *config.RadioConfig) (*backend, error) {
	d, err := spidev.Open(spidev.Config{Port: cfg.Device, SpeedHz: cfg.SpeedHz})
	if err != nil {
		return nil, err
	}
	async := core.NewAsyncSPI(d)
	return &backend{
		bus:  async,
		gpio: d,
		startIRQ: func(ctx context.Context, pin core.GPIOPin, notify func()) {
			go func() {
				if err := d.WatchIRQ(ctx, pin, notify); err != nil {
					logging.LogError(logging.ComponentRadio, "irq watcher stopped", "err", err)
				}
			}()
		},
		printStats: func() {
			fmt.Printf("spi failures=%d\n", async.Failures.Load())
		},
		closers: []func() error{
			d.Close,
			func() error { async.Close(); return nil },
		},
	}, nil
}
