// Package bridge drives a radio attached to a bridge MCU. The MCU owns the
// SPI bus and the control pins; the host sends framed commands over a
// serial link and receives transfer results and IRQ edges back.
//
// Bridge implements core.Transceiver and core.GPIODriver, so an nrf24.Device
// runs on the host unchanged. Transfer completions are delivered from the
// reader goroutine.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"gonrf/core"
	"gonrf/host/logging"
	"gonrf/host/serial"
	"gonrf/protocol"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("bridge closed")

// idleRead is how long the reader waits after an empty read
const idleRead = 5 * time.Millisecond

type transfer struct {
	rx   []byte
	done core.CompletionFunc
}

// Bridge is the host end of the link
type Bridge struct {
	port serial.Port

	writeMu sync.Mutex
	out     protocol.ScratchOutput
	seq     byte

	in      *protocol.ByteQueue
	decoder *protocol.Decoder

	mu      sync.Mutex
	pending *transfer
	onIRQ   func(pin core.GPIOPin)
	version chan string

	// RemoteErrors counts error events received from the MCU
	RemoteErrors atomic.Uint32
	// StrayResponses counts transfer results with no transfer outstanding
	StrayResponses atomic.Uint32

	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

// New starts the reader goroutine on port
func New(port serial.Port) *Bridge {
	b := &Bridge{
		port:    port,
		seq:     protocol.DestMCU,
		in:      protocol.NewByteQueue(4 * protocol.MessageLengthMax),
		version: make(chan string, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	b.decoder = protocol.NewDecoder(protocol.DestHost, b.handle)
	go b.readLoop()
	return b
}

// OnIRQ registers fn to be called from the reader goroutine on each IRQ edge
func (b *Bridge) OnIRQ(fn func(pin core.GPIOPin)) {
	b.mu.Lock()
	b.onIRQ = fn
	b.mu.Unlock()
}

// Stats returns the link decoder counters
func (b *Bridge) Stats() *protocol.DecoderStats {
	return &b.decoder.Stats
}

// Transceive sends tx to the MCU's SPI bus. done runs on the reader
// goroutine when the MCU reports the result.
func (b *Bridge) Transceive(tx, rx []byte, done core.CompletionFunc) error {
	if len(tx) != len(rx) {
		return core.ErrLengthMismatch
	}
	if len(tx) > protocol.MaxTransferData {
		return protocol.ErrTransferTooBig
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	if b.pending != nil {
		b.mu.Unlock()
		return core.ErrBusBusy
	}
	b.pending = &transfer{rx: rx, done: done}
	b.mu.Unlock()

	err := b.send(func(out protocol.OutputBuffer) error {
		return protocol.EncodeTransfer(out, protocol.CmdTransfer, tx)
	})
	if err != nil {
		b.mu.Lock()
		b.pending = nil
		b.mu.Unlock()
		return err
	}
	return nil
}

// ConfigureOutput asks the MCU to make pin an output
func (b *Bridge) ConfigureOutput(pin core.GPIOPin) error {
	return b.send(func(out protocol.OutputBuffer) error {
		protocol.EncodePin(out, protocol.CmdConfigurePin, uint32(pin))
		return nil
	})
}

// SetPin asks the MCU to drive pin. The write is ordered with transfers.
func (b *Bridge) SetPin(pin core.GPIOPin, value bool) error {
	return b.send(func(out protocol.OutputBuffer) error {
		protocol.EncodeSetPin(out, uint32(pin), value)
		return nil
	})
}

// Identify asks the MCU for its firmware version
func (b *Bridge) Identify(ctx context.Context) (string, error) {
	select {
	case <-b.version:
	default:
	}

	err := b.send(func(out protocol.OutputBuffer) error {
		protocol.EncodeVLQUint(out, protocol.CmdIdentify)
		return nil
	})
	if err != nil {
		return "", err
	}

	select {
	case v := <-b.version:
		return v, nil
	case <-ctx.Done():
		return "", fmt.Errorf("identify: %w", ctx.Err())
	case <-b.done:
		return "", ErrClosed
	}
}

// Close stops the reader, closes the port and fails any outstanding
// transfer with zero bytes received
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.stop)
	err := b.port.Close()
	<-b.done
	return err
}

func (b *Bridge) send(encode func(out protocol.OutputBuffer) error) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.out.Reset()
	var encErr error
	err := protocol.EncodeFrame(&b.out, b.seq, func(out protocol.OutputBuffer) {
		encErr = encode(out)
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		return err
	}

	frame := b.out.Result()
	n, err := b.port.Write(frame)
	if err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("bridge write: incomplete %d/%d bytes", n, len(frame))
	}
	b.seq = protocol.NextSequence(b.seq)
	return nil
}

func (b *Bridge) readLoop() {
	defer close(b.done)
	defer b.failPending()

	buf := make([]byte, 2*protocol.MessageLengthMax)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		n, err := b.port.Read(buf)
		if n > 0 {
			if w := b.in.Write(buf[:n]); w < n {
				logging.LogWarn(logging.ComponentBridge, "input overflow", "dropped", n-w)
			}
			b.decoder.Receive(b.in)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			// Read timeout on a native port, or a closed pipe
			select {
			case <-b.stop:
				return
			case <-time.After(idleRead):
			}
			continue
		}
		if b.closed.Load() {
			return
		}
		logging.LogError(logging.ComponentBridge, "read failed", "err", err)
		return
	}
}

func (b *Bridge) failPending() {
	b.mu.Lock()
	t := b.pending
	b.pending = nil
	b.mu.Unlock()
	if t != nil {
		t.done(0)
	}
}

func (b *Bridge) complete(data []byte) {
	b.mu.Lock()
	t := b.pending
	b.pending = nil
	b.mu.Unlock()

	if t == nil {
		b.StrayResponses.Add(1)
		logging.LogWarn(logging.ComponentBridge, "transfer result with nothing outstanding", "len", len(data))
		return
	}
	t.done(copy(t.rx, data))
}

// handle runs on the reader goroutine for every command the MCU sends
func (b *Bridge) handle(cmdID uint16, args *[]byte) error {
	switch cmdID {
	case protocol.CmdTransferResponse:
		data, err := protocol.DecodeTransfer(args)
		if err != nil {
			return err
		}
		b.complete(data)

	case protocol.CmdIRQ:
		pin, err := protocol.DecodePin(args)
		if err != nil {
			return err
		}
		b.mu.Lock()
		fn := b.onIRQ
		b.mu.Unlock()
		if fn != nil {
			fn(core.GPIOPin(pin))
		}

	case protocol.CmdIdentifyResponse:
		v, err := protocol.DecodeVLQString(args)
		if err != nil {
			return err
		}
		select {
		case b.version <- v:
		default:
		}

	case protocol.CmdError:
		code, cmd, err := protocol.DecodeError(args)
		if err != nil {
			return err
		}
		b.RemoteErrors.Add(1)
		logging.LogWarn(logging.ComponentBridge, "MCU error",
			"code", protocol.ErrorCodeName(code), "command", cmd)
		if cmd == protocol.CmdTransfer {
			// The transfer will not be answered
			b.complete(nil)
		}

	default:
		return fmt.Errorf("%w: %d", protocol.ErrUnknownCommand, cmdID)
	}
	return nil
}
