package nrf24

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"gonrf/core"
)

const (
	testCSN core.GPIOPin = 17
	testCE  core.GPIOPin = 20
)

var testPins = core.ControlPins{CSN: testCSN, CE: testCE}

// fakeBus records frames and completes them inline or on demand
type fakeBus struct {
	inline bool
	reply  []byte
	err    error

	frames  [][]byte
	pending core.CompletionFunc
	pendLen int
}

func (b *fakeBus) Transceive(tx, rx []byte, done core.CompletionFunc) error {
	if b.err != nil {
		return b.err
	}
	b.frames = append(b.frames, append([]byte(nil), tx...))
	copy(rx, b.reply)
	if b.inline {
		done(len(rx))
		return nil
	}
	b.pending = done
	b.pendLen = len(rx)
	return nil
}

// finish completes the deferred transfer
func (b *fakeBus) finish() {
	done := b.pending
	b.pending = nil
	if done != nil {
		done(b.pendLen)
	}
}

func (b *fakeBus) last() []byte {
	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1]
}

type pinWrite struct {
	pin   core.GPIOPin
	value bool
}

// fakeGPIO records every pin write
type fakeGPIO struct {
	mu     sync.Mutex
	levels map[core.GPIOPin]bool
	writes []pinWrite
	fail   map[core.GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		levels: make(map[core.GPIOPin]bool),
		fail:   make(map[core.GPIOPin]bool),
	}
}

var errPin = errors.New("pin fault")

func (g *fakeGPIO) ConfigureOutput(pin core.GPIOPin) error {
	return nil
}

func (g *fakeGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail[pin] {
		return errPin
	}
	g.levels[pin] = value
	g.writes = append(g.writes, pinWrite{pin, value})
	return nil
}

func (g *fakeGPIO) level(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin]
}

func (g *fakeGPIO) count(pin core.GPIOPin, value bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, w := range g.writes {
		if w.pin == pin && w.value == value {
			n++
		}
	}
	return n
}

type testRig struct {
	bus   *fakeBus
	gpio  *fakeGPIO
	clock *core.ManualClock
	dev   *Device
}

func newRig(t *testing.T, inline bool) *testRig {
	t.Helper()
	r := &testRig{
		bus:   &fakeBus{inline: inline},
		gpio:  newFakeGPIO(),
		clock: &core.ManualClock{},
	}
	dev, err := New(Hardware{Bus: r.bus, GPIO: r.gpio, Pins: testPins, Clock: r.clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r.dev = dev
	return r
}

// testInit enables pipes 0-2 with addresses sharing pipe 1's upper bytes
func testInit() *InitData {
	init := &InitData{AddressWidth: 5}
	init.Pipes[0] = PipeConfig{Enabled: true, AutoAck: true, Address: [5]byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}}
	init.Pipes[1] = PipeConfig{Enabled: true, AutoAck: true, Address: [5]byte{0xC2, 0xC2, 0xC2, 0xC2, 0xC2}}
	init.Pipes[2] = PipeConfig{Enabled: true, Address: [5]byte{0xC2, 0xC2, 0xC2, 0xC2, 0xC3}}
	return init
}

// toSleep configures and drives the rig into Sleep with inline completion
func (r *testRig) toSleep(t *testing.T) {
	t.Helper()
	if err := r.dev.Configure(testInit()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := r.dev.RequestPowerOn(); err != nil {
		t.Fatalf("RequestPowerOn failed: %v", err)
	}
	for i := 0; i < 10 && r.dev.State() != StateSleep; i++ {
		r.dev.Drive()
		if r.bus.pending != nil {
			r.bus.finish()
		}
		r.clock.Advance(PowerOnSettleMillis)
	}
	if r.dev.State() != StateSleep {
		t.Fatalf("expected Sleep, got %v", r.dev.State())
	}
}

// loopbackSPI is a blocking drivers.SPI that echoes tx into rx
type loopbackSPI struct {
	calls atomic.Int32
}

func (s *loopbackSPI) Tx(w, r []byte) error {
	s.calls.Add(1)
	copy(r, w)
	return nil
}

func (s *loopbackSPI) Transfer(b byte) (byte, error) {
	return b, nil
}
