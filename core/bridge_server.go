package core

import (
	"errors"
	"sync"

	"gonrf/protocol"
	"tinygo.org/x/drivers"
)

// BridgeServer is the MCU end of the host bridge. It decodes host frames,
// drives the local SPI bus and pins on the host's behalf and sends results
// and IRQ edges back.
type BridgeServer struct {
	gpio GPIODriver
	bus  drivers.SPI
	send func(frame []byte)

	registry *CommandRegistry
	decoder  *protocol.Decoder
	in       *protocol.ByteQueue

	mu  sync.Mutex
	out protocol.ScratchOutput
	seq byte
	rx  [protocol.MaxTransferData]byte

	// Counters for the debug console
	Transfers uint32
	Errors    uint32
}

// NewBridgeServer creates a server that writes its outgoing frames with
// send. send must not retain the frame after it returns.
func NewBridgeServer(gpio GPIODriver, bus drivers.SPI, send func(frame []byte)) *BridgeServer {
	s := &BridgeServer{
		gpio:     gpio,
		bus:      bus,
		send:     send,
		registry: NewCommandRegistry(),
		in:       protocol.NewByteQueue(4 * protocol.MessageLengthMax),
		seq:      protocol.DestHost,
	}
	s.registry.Register(protocol.CmdIdentify, "identify", s.handleIdentify)
	s.registry.Register(protocol.CmdConfigurePin, "configure_pin", s.handleConfigurePin)
	s.registry.Register(protocol.CmdSetPin, "set_pin", s.handleSetPin)
	s.registry.Register(protocol.CmdTransfer, "transfer", s.handleTransfer)
	s.decoder = protocol.NewDecoder(protocol.DestMCU, s.dispatch)
	return s
}

// Receive feeds bytes read from the link and runs every complete command
func (s *BridgeServer) Receive(data []byte) {
	for len(data) > 0 {
		n := s.in.Write(data)
		data = data[n:]
		s.decoder.Receive(s.in)
		if n == 0 {
			// Queue full of garbage with no frame boundary
			s.in.Reset()
		}
	}
}

// Stats returns the link decoder counters
func (s *BridgeServer) Stats() *protocol.DecoderStats {
	return &s.decoder.Stats
}

// NotifyIRQ reports an IRQ edge on pin to the host. Call from the main
// loop, not from the interrupt handler.
func (s *BridgeServer) NotifyIRQ(pin GPIOPin) {
	s.reply(func(out protocol.OutputBuffer) error {
		protocol.EncodePin(out, protocol.CmdIRQ, uint32(pin))
		return nil
	})
}

func (s *BridgeServer) dispatch(cmdID uint16, args *[]byte) error {
	err := s.registry.Dispatch(cmdID, args)
	if err == nil {
		return nil
	}

	code := uint8(protocol.ErrCodeMalformed)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		code = protocol.ErrCodeUnknownCommand
	case errors.Is(err, errPinFailed):
		code = protocol.ErrCodePin
	case errors.Is(err, errBusFailed):
		code = protocol.ErrCodeBus
	}
	s.Errors++
	RecordEvent(EvtBusError, 0, uint32(cmdID), uint32(code))
	s.reply(func(out protocol.OutputBuffer) error {
		protocol.EncodeError(out, code, cmdID)
		return nil
	})
	if code == protocol.ErrCodePin || code == protocol.ErrCodeBus {
		// Arguments were consumed; keep going with the rest of the frame
		return nil
	}
	return err
}

var (
	errPinFailed = errors.New("pin operation failed")
	errBusFailed = errors.New("spi transfer failed")
)

func (s *BridgeServer) handleIdentify(data *[]byte) error {
	s.reply(func(out protocol.OutputBuffer) error {
		protocol.EncodeVLQUint(out, protocol.CmdIdentifyResponse)
		protocol.EncodeVLQString(out, protocol.Version)
		return nil
	})
	return nil
}

func (s *BridgeServer) handleConfigurePin(data *[]byte) error {
	pin, err := protocol.DecodePin(data)
	if err != nil {
		return err
	}
	if err := s.gpio.ConfigureOutput(GPIOPin(pin)); err != nil {
		DebugPrintln("bridge: configure pin " + Utoa(uint64(pin)) + ": " + err.Error())
		return errPinFailed
	}
	return nil
}

func (s *BridgeServer) handleSetPin(data *[]byte) error {
	pc, err := protocol.DecodeSetPin(data)
	if err != nil {
		return err
	}
	if err := s.gpio.SetPin(GPIOPin(pc.Pin), pc.Value); err != nil {
		return errPinFailed
	}
	return nil
}

func (s *BridgeServer) handleTransfer(data *[]byte) error {
	tx, err := protocol.DecodeTransfer(data)
	if err != nil {
		return err
	}
	if len(tx) > len(s.rx) {
		return protocol.ErrTransferTooBig
	}
	rx := s.rx[:len(tx)]
	if err := s.bus.Tx(tx, rx); err != nil {
		DebugPrintln("bridge: spi: " + err.Error())
		return errBusFailed
	}
	s.Transfers++
	return s.reply(func(out protocol.OutputBuffer) error {
		return protocol.EncodeTransfer(out, protocol.CmdTransferResponse, rx)
	})
}

func (s *BridgeServer) reply(encode func(out protocol.OutputBuffer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Reset()
	var encErr error
	err := protocol.EncodeFrame(&s.out, s.seq, func(out protocol.OutputBuffer) {
		encErr = encode(out)
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		return err
	}
	s.seq = protocol.NextSequence(s.seq)
	s.send(s.out.Result())
	return nil
}
